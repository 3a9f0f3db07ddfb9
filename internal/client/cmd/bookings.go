package cmd

import (
	"bufio"
	"context"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/GilChiu/AutoSaaz-Garage-Client-sub000/internal/client/debounce"
	"github.com/GilChiu/AutoSaaz-Garage-Client-sub000/internal/client/garage"
)

const searchDelay = 300 * time.Millisecond

func addListFlags(cmd *cobra.Command, p *garage.ListParams, fresh *bool) {
	cmd.Flags().IntVar(&p.Page, "page", 0, "Page number")
	cmd.Flags().IntVar(&p.Limit, "limit", 0, "Page size")
	cmd.Flags().StringVar(&p.Status, "status", "", "Filter by status")
	addFreshFlag(cmd, fresh)
}

func addFreshFlag(cmd *cobra.Command, fresh *bool) {
	cmd.Flags().BoolVar(fresh, "fresh", false, "Bypass the response cache")
}

func readOpts(fresh bool) []garage.ReadOption {
	if fresh {
		return []garage.ReadOption{garage.Fresh()}
	}
	return nil
}

func newBookingsCmd(o *rootOptions) *cobra.Command {
	cmd := &cobra.Command{Use: "bookings", Short: "Manage bookings"}

	var (
		params garage.ListParams
		fresh  bool
		file   string
	)
	list := &cobra.Command{Use: "list", Short: "List bookings", RunE: o.run(func(cmd *cobra.Command, _ []string, a *app) error {
		page, err := a.garage.ListBookings(cmd.Context(), params, readOpts(fresh)...)
		if err != nil {
			return err
		}
		return printJSON(cmd, page)
	})}
	addListFlags(list, &params, &fresh)

	get := &cobra.Command{Use: "get ID", Short: "Show one booking", Args: cobra.ExactArgs(1), RunE: o.run(func(cmd *cobra.Command, args []string, a *app) error {
		b, err := a.garage.GetBooking(cmd.Context(), args[0], readOpts(fresh)...)
		if err != nil {
			return err
		}
		return printJSON(cmd, b)
	})}
	addFreshFlag(get, &fresh)

	stats := &cobra.Command{Use: "stats", Short: "Booking counters", RunE: o.run(func(cmd *cobra.Command, _ []string, a *app) error {
		s, err := a.garage.BookingStats(cmd.Context(), readOpts(fresh)...)
		if err != nil {
			return err
		}
		return printJSON(cmd, s)
	})}
	addFreshFlag(stats, &fresh)

	var interactive bool
	search := &cobra.Command{
		Use:   "search [QUERY]",
		Short: "Search bookings; with -i, search as you type one query per line",
		Args:  cobra.MaximumNArgs(1),
		RunE: o.run(func(cmd *cobra.Command, args []string, a *app) error {
			if interactive {
				return searchAsYouType(cmd, a, params)
			}
			if len(args) == 0 {
				return cmd.Usage()
			}
			page, err := a.garage.SearchBookings(cmd.Context(), args[0], params)
			if err != nil {
				return err
			}
			return printJSON(cmd, page)
		}),
	}
	search.Flags().BoolVarP(&interactive, "interactive", "i", false, "Read queries from stdin")

	create := &cobra.Command{Use: "create", Short: "Create a booking from JSON", RunE: o.run(func(cmd *cobra.Command, _ []string, a *app) error {
		var in garage.BookingInput
		if err := readInput(cmd, file, &in); err != nil {
			return err
		}
		b, err := a.garage.CreateBooking(cmd.Context(), in)
		if err != nil {
			return err
		}
		return printJSON(cmd, b)
	})}
	addFileFlag(create, &file)

	update := &cobra.Command{Use: "update ID", Short: "Replace a booking from JSON", Args: cobra.ExactArgs(1), RunE: o.run(func(cmd *cobra.Command, args []string, a *app) error {
		var in garage.BookingInput
		if err := readInput(cmd, file, &in); err != nil {
			return err
		}
		b, err := a.garage.UpdateBooking(cmd.Context(), args[0], in)
		if err != nil {
			return err
		}
		return printJSON(cmd, b)
	})}
	addFileFlag(update, &file)

	status := &cobra.Command{
		Use:       "status ID STATUS",
		Short:     "Move a booking to another status",
		Args:      cobra.ExactArgs(2),
		ValidArgs: bookingStatusNames(),
		RunE: o.run(func(cmd *cobra.Command, args []string, a *app) error {
			b, err := a.garage.UpdateBookingStatus(cmd.Context(), args[0], garage.MapBookingStatus(args[1]))
			if err != nil {
				return err
			}
			return printJSON(cmd, b)
		}),
	}

	del := &cobra.Command{Use: "delete ID", Short: "Delete a booking", Args: cobra.ExactArgs(1), RunE: o.run(func(cmd *cobra.Command, args []string, a *app) error {
		if err := a.garage.DeleteBooking(cmd.Context(), args[0]); err != nil {
			return err
		}
		printf(cmd, "Booking %s deleted\n", garage.NormalizeID(args[0]))
		return nil
	})}

	cmd.AddCommand(list, get, stats, search, create, update, status, del)
	return cmd
}

func bookingStatusNames() []string {
	out := make([]string, 0, len(garage.BookingStatuses))
	for _, s := range garage.BookingStatuses {
		out = append(out, string(s))
	}
	return out
}

// searchAsYouType runs a search for the last line typed once input has been
// quiet for searchDelay. A newer query cancels the search still running.
func searchAsYouType(cmd *cobra.Command, a *app, params garage.ListParams) error {
	ls := &liveSearch{
		ctx: cmd.Context(),
		fetch: func(ctx context.Context, q string) (any, error) {
			return a.garage.SearchBookings(ctx, q, params)
		},
		emit: func(v any) error { return printJSON(cmd, v) },
	}
	d := debounce.New(searchDelay, ls.start)

	sc := bufio.NewScanner(cmd.InOrStdin())
	for sc.Scan() {
		if err := ls.Err(); err != nil {
			d.Stop()
			d.Wait()
			return err
		}
		if q := strings.TrimSpace(sc.Text()); q != "" {
			d.Call(q)
		}
	}
	d.Flush()
	d.Wait()
	if err := ls.Err(); err != nil {
		return err
	}
	return sc.Err()
}

// liveSearch keeps one query current. Starting a query cancels the one before
// it, and a canceled query prints nothing.
type liveSearch struct {
	ctx   context.Context
	fetch func(ctx context.Context, q string) (any, error)
	emit  func(v any) error

	mu     sync.Mutex
	cancel context.CancelFunc
	err    error
	// out keeps results from interleaving.
	out sync.Mutex
}

func (s *liveSearch) start(q string) {
	ctx, cancel := context.WithCancel(s.ctx)
	defer cancel()
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.cancel = cancel
	s.mu.Unlock()

	v, err := s.fetch(ctx, q)
	s.out.Lock()
	defer s.out.Unlock()
	if ctx.Err() != nil {
		return
	}
	if err == nil {
		err = s.emit(v)
	}
	if err != nil {
		s.mu.Lock()
		if s.err == nil {
			s.err = err
		}
		s.mu.Unlock()
	}
}

// Err returns the first failure of a query that was not superseded.
func (s *liveSearch) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}
