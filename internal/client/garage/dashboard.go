package garage

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/GilChiu/AutoSaaz-Garage-Client-sub000/internal/client/api"
	"github.com/GilChiu/AutoSaaz-Garage-Client-sub000/internal/client/cache"
)

const dashboardPath = "/dashboard"

type overviewRecord struct {
	MonthlyRevenue  float64 `json:"monthly_revenue"`
	ActiveCustomers int     `json:"active_customers"`
	Rating          float64 `json:"rating"`
	ReviewCount     int     `json:"review_count"`
	OpenDisputes    int     `json:"open_disputes"`
}

type Overview struct {
	MonthlyRevenue  float64 `json:"monthlyRevenue"`
	ActiveCustomers int     `json:"activeCustomers"`
	Rating          float64 `json:"rating"`
	Reviews         int     `json:"reviews"`
	OpenDisputes    int     `json:"openDisputes"`
}

func mapOverview(r overviewRecord) Overview {
	return Overview{
		MonthlyRevenue:  r.MonthlyRevenue,
		ActiveCustomers: r.ActiveCustomers,
		Rating:          min(max(r.Rating, 0), 5),
		Reviews:         r.ReviewCount,
		OpenDisputes:    r.OpenDisputes,
	}
}

// Dashboard is the home page summary.
type Dashboard struct {
	Overview    Overview        `json:"overview"`
	Bookings    BookingStats    `json:"bookings"`
	Inspections InspectionStats `json:"inspections"`
	Unread      int             `json:"unread"`
	Recent      []Booking       `json:"recent"`
}

const recentBookings = 5

func (s *Service) Overview(ctx context.Context, opts ...ReadOption) (Overview, error) {
	path := dashboardPath + "/stats"
	req := cache.Request{Resource: cache.ResourceDashboard, Endpoint: path}
	return read(ctx, s, req, fetchOne(s, api.Get(path, nil), mapOverview), opts)
}

// Dashboard fetches its parts concurrently. Each part goes through the cache
// on its own, so a warm cache answers without any request. The first failure
// cancels the rest.
func (s *Service) Dashboard(ctx context.Context, opts ...ReadOption) (Dashboard, error) {
	var d Dashboard
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		d.Overview, err = s.Overview(gctx, opts...)
		return err
	})
	g.Go(func() (err error) {
		d.Bookings, err = s.BookingStats(gctx, opts...)
		return err
	})
	g.Go(func() (err error) {
		d.Inspections, err = s.InspectionStats(gctx, opts...)
		return err
	})
	g.Go(func() (err error) {
		d.Unread, err = s.UnreadCount(gctx, opts...)
		return err
	})
	g.Go(func() error {
		page, err := s.ListBookings(gctx, ListParams{Page: 1, Limit: recentBookings}, opts...)
		d.Recent = page.Items
		return err
	})
	if err := g.Wait(); err != nil {
		return Dashboard{}, api.Canceled(ctx, dashboardPath, err)
	}
	return d, nil
}
