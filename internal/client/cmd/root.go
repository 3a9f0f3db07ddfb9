// Package cmd is the garagectl command tree. Every dashboard page action is a
// subcommand calling one resource module.
package cmd

import (
	"github.com/spf13/cobra"
)

type rootOptions struct {
	apiURL   string
	dataDir  string
	logLevel string
}

func NewRootCmd(version, buildDate string) *cobra.Command {
	o := &rootOptions{}
	root := &cobra.Command{
		Use:           "garagectl",
		Short:         "AutoSaaz garage operator CLI",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&o.apiURL, "api-url", "", "API base URL (default $GARAGE_API_URL)")
	root.PersistentFlags().StringVar(&o.dataDir, "data-dir", "", "Local data directory (default $GARAGE_DATA_DIR)")
	root.PersistentFlags().StringVar(&o.logLevel, "log-level", "", "Log level (default $GARAGE_LOG_LEVEL)")

	root.AddCommand(newVersionCmd(version, buildDate))
	root.AddCommand(newAuthCmd(o))
	root.AddCommand(newBookingsCmd(o))
	root.AddCommand(newInspectionsCmd(o))
	root.AddCommand(newAppointmentsCmd(o))
	root.AddCommand(newDisputesCmd(o))
	root.AddCommand(newChatsCmd(o))
	root.AddCommand(newSupportCmd(o))
	root.AddCommand(newNotificationsCmd(o))
	root.AddCommand(newServicesCmd(o))
	root.AddCommand(newProfileCmd(o))
	root.AddCommand(newUploadCmd(o))
	root.AddCommand(newDashboardCmd(o))
	root.AddCommand(newCacheCmd(o))
	root.AddCommand(newVaultCmd(o))
	return root
}

type runFunc func(cmd *cobra.Command, args []string, a *app) error

// run builds the app for one command invocation and closes it afterwards.
func (o *rootOptions) run(fn runFunc) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), o, cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		defer a.Close()
		return fn(cmd, args, a)
	}
}
