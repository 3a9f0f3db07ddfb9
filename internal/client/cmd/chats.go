package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/GilChiu/AutoSaaz-Garage-Client-sub000/internal/client/garage"
)

func addWatchFlags(cmd *cobra.Command, poll *time.Duration) {
	cmd.Flags().DurationVar(poll, "poll", 0, "Poll at this interval instead of using the change feed")
}

func newChatsCmd(o *rootOptions) *cobra.Command {
	cmd := &cobra.Command{Use: "chats", Short: "Customer conversations"}

	var (
		fresh bool
		file  string
		poll  time.Duration
	)
	list := &cobra.Command{Use: "list", Short: "List conversations", RunE: o.run(func(cmd *cobra.Command, _ []string, a *app) error {
		cs, err := a.garage.ListConversations(cmd.Context(), readOpts(fresh)...)
		if err != nil {
			return err
		}
		return printJSON(cmd, cs)
	})}
	addFreshFlag(list, &fresh)

	start := &cobra.Command{Use: "start", Short: "Start a conversation from JSON", RunE: o.run(func(cmd *cobra.Command, _ []string, a *app) error {
		var in garage.ConversationInput
		if err := readInput(cmd, file, &in); err != nil {
			return err
		}
		c, err := a.garage.CreateConversation(cmd.Context(), in)
		if err != nil {
			return err
		}
		return printJSON(cmd, c)
	})}
	addFileFlag(start, &file)

	messages := &cobra.Command{Use: "messages ID", Short: "Show a conversation's messages", Args: cobra.ExactArgs(1), RunE: o.run(func(cmd *cobra.Command, args []string, a *app) error {
		ms, err := a.garage.ListMessages(cmd.Context(), args[0], readOpts(fresh)...)
		if err != nil {
			return err
		}
		return printJSON(cmd, ms)
	})}
	addFreshFlag(messages, &fresh)

	var attachment string
	send := &cobra.Command{Use: "send ID [TEXT]", Short: "Send a message", Args: cobra.RangeArgs(1, 2), RunE: o.run(func(cmd *cobra.Command, args []string, a *app) error {
		in := garage.MessageInput{AttachmentURL: attachment}
		if len(args) == 2 {
			in.Content = args[1]
		}
		m, err := a.garage.SendMessage(cmd.Context(), args[0], in)
		if err != nil {
			return err
		}
		return printJSON(cmd, m)
	})}
	send.Flags().StringVar(&attachment, "attachment", "", "Attachment URL from 'garagectl upload'")

	read := &cobra.Command{Use: "read ID", Short: "Mark a conversation read", Args: cobra.ExactArgs(1), RunE: o.run(func(cmd *cobra.Command, args []string, a *app) error {
		return a.garage.MarkConversationRead(cmd.Context(), args[0])
	})}

	watch := &cobra.Command{Use: "watch ID", Short: "Print a conversation whenever it changes", Args: cobra.ExactArgs(1), RunE: o.run(func(cmd *cobra.Command, args []string, a *app) error {
		ctx := cmd.Context()
		a.runCleanup(ctx)
		ms, err := a.garage.ListMessages(ctx, args[0])
		if err != nil {
			return err
		}
		if err := printJSON(cmd, ms); err != nil {
			return err
		}
		sub := a.subscriber(poll, a.garage.ConversationProbe)
		unsubscribe := a.garage.WatchConversation(ctx, sub, args[0], func(ms []garage.Message, err error) {
			if err == nil {
				err = printJSON(cmd, ms)
			}
			if err != nil {
				a.log.Warn().Err(err).Msg("refresh conversation")
			}
		})
		defer unsubscribe()
		<-ctx.Done()
		return nil
	})}
	addWatchFlags(watch, &poll)

	cmd.AddCommand(list, start, messages, send, read, watch)
	return cmd
}

func newNotificationsCmd(o *rootOptions) *cobra.Command {
	cmd := &cobra.Command{Use: "notifications", Short: "Notifications"}

	var (
		params garage.ListParams
		fresh  bool
		poll   time.Duration
	)
	list := &cobra.Command{Use: "list", Short: "List notifications", RunE: o.run(func(cmd *cobra.Command, _ []string, a *app) error {
		ns, err := a.garage.ListNotifications(cmd.Context(), params, readOpts(fresh)...)
		if err != nil {
			return err
		}
		return printJSON(cmd, ns)
	})}
	addListFlags(list, &params, &fresh)

	unread := &cobra.Command{Use: "unread", Short: "Unread count", RunE: o.run(func(cmd *cobra.Command, _ []string, a *app) error {
		n, err := a.garage.UnreadCount(cmd.Context(), readOpts(fresh)...)
		if err != nil {
			return err
		}
		printf(cmd, "%d\n", n)
		return nil
	})}
	addFreshFlag(unread, &fresh)

	read := &cobra.Command{Use: "read [ID]", Short: "Mark one notification read, or all without ID", Args: cobra.MaximumNArgs(1), RunE: o.run(func(cmd *cobra.Command, args []string, a *app) error {
		if len(args) == 0 {
			return a.garage.MarkAllNotificationsRead(cmd.Context())
		}
		return a.garage.MarkNotificationRead(cmd.Context(), args[0])
	})}

	watch := &cobra.Command{Use: "watch", Short: "Print the unread count whenever it changes", RunE: o.run(func(cmd *cobra.Command, _ []string, a *app) error {
		ctx := cmd.Context()
		a.runCleanup(ctx)
		sub := a.subscriber(poll, a.garage.NotificationProbe)
		unsubscribe := a.garage.WatchNotifications(ctx, sub, func(n int, err error) {
			if err != nil {
				a.log.Warn().Err(err).Msg("refresh unread count")
				return
			}
			printf(cmd, "%s unread: %d\n", time.Now().Format(time.Kitchen), n)
		})
		defer unsubscribe()
		<-ctx.Done()
		return nil
	})}
	addWatchFlags(watch, &poll)

	cmd.AddCommand(list, unread, read, watch)
	return cmd
}
