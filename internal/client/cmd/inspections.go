package cmd

import (
	"github.com/spf13/cobra"

	"github.com/GilChiu/AutoSaaz-Garage-Client-sub000/internal/client/garage"
)

func newInspectionsCmd(o *rootOptions) *cobra.Command {
	cmd := &cobra.Command{Use: "inspections", Short: "Manage vehicle inspections"}

	var (
		params garage.ListParams
		fresh  bool
		file   string
	)
	list := &cobra.Command{Use: "list", Short: "List inspections", RunE: o.run(func(cmd *cobra.Command, _ []string, a *app) error {
		page, err := a.garage.ListInspections(cmd.Context(), params, readOpts(fresh)...)
		if err != nil {
			return err
		}
		return printJSON(cmd, page)
	})}
	addListFlags(list, &params, &fresh)

	get := &cobra.Command{Use: "get ID", Short: "Show one inspection", Args: cobra.ExactArgs(1), RunE: o.run(func(cmd *cobra.Command, args []string, a *app) error {
		in, err := a.garage.GetInspection(cmd.Context(), args[0], readOpts(fresh)...)
		if err != nil {
			return err
		}
		return printJSON(cmd, in)
	})}
	addFreshFlag(get, &fresh)

	stats := &cobra.Command{Use: "stats", Short: "Inspection counters", RunE: o.run(func(cmd *cobra.Command, _ []string, a *app) error {
		s, err := a.garage.InspectionStats(cmd.Context(), readOpts(fresh)...)
		if err != nil {
			return err
		}
		return printJSON(cmd, s)
	})}
	addFreshFlag(stats, &fresh)

	create := &cobra.Command{Use: "create", Short: "Schedule an inspection from JSON", RunE: o.run(func(cmd *cobra.Command, _ []string, a *app) error {
		var in garage.InspectionInput
		if err := readInput(cmd, file, &in); err != nil {
			return err
		}
		out, err := a.garage.CreateInspection(cmd.Context(), in)
		if err != nil {
			return err
		}
		return printJSON(cmd, out)
	})}
	addFileFlag(create, &file)

	update := &cobra.Command{Use: "update ID", Short: "Replace an inspection from JSON", Args: cobra.ExactArgs(1), RunE: o.run(func(cmd *cobra.Command, args []string, a *app) error {
		var in garage.InspectionInput
		if err := readInput(cmd, file, &in); err != nil {
			return err
		}
		out, err := a.garage.UpdateInspection(cmd.Context(), args[0], in)
		if err != nil {
			return err
		}
		return printJSON(cmd, out)
	})}
	addFileFlag(update, &file)

	var (
		findings  []string
		mileage   int
		reportURL string
	)
	complete := &cobra.Command{Use: "complete ID", Short: "Record findings and close an inspection", Args: cobra.ExactArgs(1), RunE: o.run(func(cmd *cobra.Command, args []string, a *app) error {
		in := garage.CompletionInput{Findings: findings, Mileage: mileage, ReportURL: reportURL}
		out, err := a.garage.CompleteInspection(cmd.Context(), args[0], in)
		if err != nil {
			return err
		}
		return printJSON(cmd, out)
	})}
	complete.Flags().StringArrayVar(&findings, "finding", nil, "A finding; repeat for several")
	complete.Flags().IntVar(&mileage, "mileage", 0, "Odometer reading")
	complete.Flags().StringVar(&reportURL, "report-url", "", "Uploaded report URL")

	del := &cobra.Command{Use: "delete ID", Short: "Delete an inspection", Args: cobra.ExactArgs(1), RunE: o.run(func(cmd *cobra.Command, args []string, a *app) error {
		if err := a.garage.DeleteInspection(cmd.Context(), args[0]); err != nil {
			return err
		}
		printf(cmd, "Inspection %s deleted\n", garage.NormalizeID(args[0]))
		return nil
	})}

	cmd.AddCommand(list, get, stats, create, update, complete, del)
	return cmd
}

func newAppointmentsCmd(o *rootOptions) *cobra.Command {
	cmd := &cobra.Command{Use: "appointments", Short: "View and reschedule appointments"}

	var (
		params garage.ListParams
		fresh  bool
		file   string
	)
	list := &cobra.Command{Use: "list", Short: "List appointments", RunE: o.run(func(cmd *cobra.Command, _ []string, a *app) error {
		page, err := a.garage.ListAppointments(cmd.Context(), params, readOpts(fresh)...)
		if err != nil {
			return err
		}
		return printJSON(cmd, page)
	})}
	addListFlags(list, &params, &fresh)

	get := &cobra.Command{Use: "get ID", Short: "Show one appointment", Args: cobra.ExactArgs(1), RunE: o.run(func(cmd *cobra.Command, args []string, a *app) error {
		ap, err := a.garage.GetAppointment(cmd.Context(), args[0], readOpts(fresh)...)
		if err != nil {
			return err
		}
		return printJSON(cmd, ap)
	})}
	addFreshFlag(get, &fresh)

	update := &cobra.Command{Use: "update ID", Short: "Change an appointment from JSON", Args: cobra.ExactArgs(1), RunE: o.run(func(cmd *cobra.Command, args []string, a *app) error {
		var in garage.AppointmentUpdate
		if err := readInput(cmd, file, &in); err != nil {
			return err
		}
		ap, err := a.garage.UpdateAppointment(cmd.Context(), args[0], in)
		if err != nil {
			return err
		}
		return printJSON(cmd, ap)
	})}
	addFileFlag(update, &file)

	cmd.AddCommand(list, get, update)
	return cmd
}
