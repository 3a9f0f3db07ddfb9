package cmd

import (
	"github.com/spf13/cobra"

	"github.com/GilChiu/AutoSaaz-Garage-Client-sub000/internal/client/garage"
)

func newDisputesCmd(o *rootOptions) *cobra.Command {
	cmd := &cobra.Command{Use: "disputes", Short: "Resolution center"}

	var (
		status string
		fresh  bool
		file   string
	)
	list := &cobra.Command{Use: "list", Short: "List disputes", RunE: o.run(func(cmd *cobra.Command, _ []string, a *app) error {
		var st garage.DisputeStatus
		if status != "" {
			st = garage.MapDisputeStatus(status)
		}
		ds, err := a.garage.ListDisputes(cmd.Context(), st, readOpts(fresh)...)
		if err != nil {
			return err
		}
		return printJSON(cmd, ds)
	})}
	list.Flags().StringVar(&status, "status", "", "open, in_review, resolved or closed")
	addFreshFlag(list, &fresh)

	get := &cobra.Command{Use: "get ID", Short: "Show a dispute with its messages", Args: cobra.ExactArgs(1), RunE: o.run(func(cmd *cobra.Command, args []string, a *app) error {
		d, err := a.garage.GetDispute(cmd.Context(), args[0], readOpts(fresh)...)
		if err != nil {
			return err
		}
		return printJSON(cmd, d)
	})}
	addFreshFlag(get, &fresh)

	create := &cobra.Command{Use: "create", Short: "Open a dispute from JSON", RunE: o.run(func(cmd *cobra.Command, _ []string, a *app) error {
		var in garage.DisputeInput
		if err := readInput(cmd, file, &in); err != nil {
			return err
		}
		d, err := a.garage.CreateDispute(cmd.Context(), in)
		if err != nil {
			return err
		}
		return printJSON(cmd, d)
	})}
	addFileFlag(create, &file)

	reply := &cobra.Command{Use: "reply ID MESSAGE", Short: "Post a message on a dispute", Args: cobra.ExactArgs(2), RunE: o.run(func(cmd *cobra.Command, args []string, a *app) error {
		m, err := a.garage.PostDisputeMessage(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		return printJSON(cmd, m)
	})}

	var in garage.ResolutionInput
	resolve := &cobra.Command{Use: "resolve ID", Short: "Resolve a dispute", Args: cobra.ExactArgs(1), RunE: o.run(func(cmd *cobra.Command, args []string, a *app) error {
		d, err := a.garage.ResolveDispute(cmd.Context(), args[0], in)
		if err != nil {
			return err
		}
		return printJSON(cmd, d)
	})}
	resolve.Flags().StringVar(&in.Resolution, "resolution", "", "Resolution summary")
	resolve.Flags().Float64Var(&in.Refund, "refund", 0, "Refund amount")

	cmd.AddCommand(list, get, create, reply, resolve)
	return cmd
}

func newSupportCmd(o *rootOptions) *cobra.Command {
	cmd := &cobra.Command{Use: "support", Short: "Support tickets"}

	var (
		fresh bool
		file  string
	)
	list := &cobra.Command{Use: "list", Short: "List tickets", RunE: o.run(func(cmd *cobra.Command, _ []string, a *app) error {
		ts, err := a.garage.ListTickets(cmd.Context(), readOpts(fresh)...)
		if err != nil {
			return err
		}
		return printJSON(cmd, ts)
	})}
	addFreshFlag(list, &fresh)

	get := &cobra.Command{Use: "get ID", Short: "Show a ticket", Args: cobra.ExactArgs(1), RunE: o.run(func(cmd *cobra.Command, args []string, a *app) error {
		t, err := a.garage.GetTicket(cmd.Context(), args[0], readOpts(fresh)...)
		if err != nil {
			return err
		}
		return printJSON(cmd, t)
	})}
	addFreshFlag(get, &fresh)

	create := &cobra.Command{Use: "create", Short: "Open a ticket from JSON", RunE: o.run(func(cmd *cobra.Command, _ []string, a *app) error {
		var in garage.TicketInput
		if err := readInput(cmd, file, &in); err != nil {
			return err
		}
		t, err := a.garage.CreateTicket(cmd.Context(), in)
		if err != nil {
			return err
		}
		return printJSON(cmd, t)
	})}
	addFileFlag(create, &file)

	reply := &cobra.Command{Use: "reply ID MESSAGE", Short: "Add a message to a ticket", Args: cobra.ExactArgs(2), RunE: o.run(func(cmd *cobra.Command, args []string, a *app) error {
		m, err := a.garage.AddTicketMessage(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		return printJSON(cmd, m)
	})}

	cmd.AddCommand(list, get, create, reply)
	return cmd
}
