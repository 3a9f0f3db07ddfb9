package cmd

import (
	"mime"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/GilChiu/AutoSaaz-Garage-Client-sub000/internal/client/garage"
)

func newServicesCmd(o *rootOptions) *cobra.Command {
	cmd := &cobra.Command{Use: "services", Short: "Garage service catalog"}

	var (
		fresh bool
		file  string
	)
	list := &cobra.Command{Use: "list", Short: "List offered services", RunE: o.run(func(cmd *cobra.Command, _ []string, a *app) error {
		ss, err := a.garage.ListServices(cmd.Context(), readOpts(fresh)...)
		if err != nil {
			return err
		}
		return printJSON(cmd, ss)
	})}
	addFreshFlag(list, &fresh)

	create := &cobra.Command{Use: "create", Short: "Add a service from JSON", RunE: o.run(func(cmd *cobra.Command, _ []string, a *app) error {
		var in garage.GarageServiceInput
		if err := readInput(cmd, file, &in); err != nil {
			return err
		}
		s, err := a.garage.CreateService(cmd.Context(), in)
		if err != nil {
			return err
		}
		return printJSON(cmd, s)
	})}
	addFileFlag(create, &file)

	update := &cobra.Command{Use: "update ID", Short: "Replace a service from JSON", Args: cobra.ExactArgs(1), RunE: o.run(func(cmd *cobra.Command, args []string, a *app) error {
		var in garage.GarageServiceInput
		if err := readInput(cmd, file, &in); err != nil {
			return err
		}
		s, err := a.garage.UpdateService(cmd.Context(), args[0], in)
		if err != nil {
			return err
		}
		return printJSON(cmd, s)
	})}
	addFileFlag(update, &file)

	del := &cobra.Command{Use: "delete ID", Short: "Remove a service", Args: cobra.ExactArgs(1), RunE: o.run(func(cmd *cobra.Command, args []string, a *app) error {
		if err := a.garage.DeleteService(cmd.Context(), args[0]); err != nil {
			return err
		}
		printf(cmd, "Service %s deleted\n", garage.NormalizeID(args[0]))
		return nil
	})}

	cmd.AddCommand(list, create, update, del)
	return cmd
}

func newProfileCmd(o *rootOptions) *cobra.Command {
	cmd := &cobra.Command{Use: "profile", Short: "Garage profile"}

	var (
		fresh   bool
		offline bool
		file    string
	)
	show := &cobra.Command{Use: "show", Short: "Show the garage profile", RunE: o.run(func(cmd *cobra.Command, _ []string, a *app) error {
		if offline {
			p, ok := a.garage.StoredProfile()
			if !ok {
				printf(cmd, "No stored profile\n")
				return nil
			}
			return printJSON(cmd, p)
		}
		p, err := a.garage.GetProfile(cmd.Context(), readOpts(fresh)...)
		if err != nil {
			return err
		}
		return printJSON(cmd, p)
	})}
	addFreshFlag(show, &fresh)
	show.Flags().BoolVar(&offline, "offline", false, "Show the copy stored at last sign-in or update")

	update := &cobra.Command{Use: "update", Short: "Update the profile from JSON", RunE: o.run(func(cmd *cobra.Command, _ []string, a *app) error {
		var in garage.ProfileUpdate
		if err := readInput(cmd, file, &in); err != nil {
			return err
		}
		p, err := a.garage.UpdateProfile(cmd.Context(), in)
		if err != nil {
			return err
		}
		return printJSON(cmd, p)
	})}
	addFileFlag(update, &file)

	cmd.AddCommand(show, update)
	return cmd
}

func newUploadCmd(o *rootOptions) *cobra.Command {
	var contentType string
	cmd := &cobra.Command{Use: "upload FILE", Short: "Upload a file and print its URL", Args: cobra.ExactArgs(1), RunE: o.run(func(cmd *cobra.Command, args []string, a *app) error {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		ct := contentType
		if ct == "" {
			ct = mime.TypeByExtension(filepath.Ext(args[0]))
		}
		u, err := a.garage.Upload(cmd.Context(), args[0], ct, f)
		if err != nil {
			return err
		}
		printf(cmd, "%s\n", u)
		return nil
	})}
	cmd.Flags().StringVar(&contentType, "type", "", "Content type (default from the file extension)")
	return cmd
}

func newDashboardCmd(o *rootOptions) *cobra.Command {
	var fresh bool
	cmd := &cobra.Command{Use: "dashboard", Short: "Overview, counters and recent bookings", RunE: o.run(func(cmd *cobra.Command, _ []string, a *app) error {
		d, err := a.garage.Dashboard(cmd.Context(), readOpts(fresh)...)
		if err != nil {
			return err
		}
		return printJSON(cmd, d)
	})}
	addFreshFlag(cmd, &fresh)
	return cmd
}
