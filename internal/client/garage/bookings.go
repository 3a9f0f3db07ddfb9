package garage

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/GilChiu/AutoSaaz-Garage-Client-sub000/internal/client/api"
	"github.com/GilChiu/AutoSaaz-Garage-Client-sub000/internal/client/cache"
)

const bookingsPath = "/bookings"

type bookingRecord struct {
	ID            string     `json:"id"`
	BookingNumber string     `json:"booking_number"`
	CustomerName  string     `json:"customer_name"`
	CustomerPhone string     `json:"customer_phone"`
	VehicleMake   string     `json:"vehicle_make"`
	VehicleModel  string     `json:"vehicle_model"`
	VehicleYear   int        `json:"vehicle_year"`
	PlateNumber   string     `json:"plate_number"`
	ServiceType   string     `json:"service_type"`
	Status        string     `json:"status"`
	ScheduledAt   *time.Time `json:"scheduled_at"`
	EstimatedCost float64    `json:"estimated_cost"`
	Notes         string     `json:"notes"`
	CreatedAt     time.Time  `json:"created_at"`
}

type Booking struct {
	ID            string        `json:"id"`
	Number        string        `json:"number"`
	CustomerName  string        `json:"customerName"`
	CustomerPhone string        `json:"customerPhone"`
	Vehicle       string        `json:"vehicle"`
	PlateNumber   string        `json:"plateNumber"`
	Service       string        `json:"service"`
	Status        BookingStatus `json:"status"`
	ScheduledAt   time.Time     `json:"scheduledAt"`
	Cost          float64       `json:"cost"`
	Notes         string        `json:"notes"`
	CreatedAt     time.Time     `json:"createdAt"`
}

func (m mapper) booking(r bookingRecord) Booking {
	b := Booking{
		ID:            r.ID,
		Number:        r.BookingNumber,
		CustomerName:  or(r.CustomerName, "Unknown customer"),
		CustomerPhone: r.CustomerPhone,
		Vehicle:       vehicleName(r.VehicleMake, r.VehicleModel, r.VehicleYear),
		PlateNumber:   r.PlateNumber,
		Service:       or(r.ServiceType, "General service"),
		Status:        m.bookingStatus(r.Status),
		Cost:          r.EstimatedCost,
		Notes:         r.Notes,
		CreatedAt:     r.CreatedAt,
	}
	if b.Number == "" && r.ID != "" {
		b.Number = "#" + strings.ToUpper(shortID(r.ID))
	}
	if r.ScheduledAt != nil {
		b.ScheduledAt = *r.ScheduledAt
	}
	return b
}

func vehicleName(brand, model string, year int) string {
	parts := make([]string, 0, 2)
	for _, p := range []string{brand, model} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return "Unknown vehicle"
	}
	name := strings.Join(parts, " ")
	if year > 0 {
		name += " " + strconv.Itoa(year)
	}
	return name
}

// BookingInput is the create and update payload.
type BookingInput struct {
	CustomerName  string    `json:"customer_name" validate:"required,min=2,max=100"`
	CustomerPhone string    `json:"customer_phone,omitempty" validate:"omitempty,e164"`
	VehicleMake   string    `json:"vehicle_make" validate:"required,max=50"`
	VehicleModel  string    `json:"vehicle_model" validate:"required,max=50"`
	VehicleYear   int       `json:"vehicle_year,omitempty" validate:"omitempty,gte=1950,lte=2100"`
	PlateNumber   string    `json:"plate_number,omitempty" validate:"max=20"`
	ServiceType   string    `json:"service_type" validate:"required"`
	ScheduledAt   time.Time `json:"scheduled_at" validate:"required"`
	EstimatedCost float64   `json:"estimated_cost,omitempty" validate:"gte=0"`
	Notes         string    `json:"notes,omitempty" validate:"max=1000"`
}

type bookingStatsRecord struct {
	Total      int     `json:"total"`
	Pending    int     `json:"pending"`
	Confirmed  int     `json:"confirmed"`
	InProgress int     `json:"in_progress"`
	Completed  int     `json:"completed"`
	Cancelled  int     `json:"cancelled"`
	Today      int     `json:"today"`
	Revenue    float64 `json:"revenue"`
}

type BookingStats struct {
	Total      int     `json:"total"`
	Pending    int     `json:"pending"`
	InProgress int     `json:"inProgress"`
	Completed  int     `json:"completed"`
	Cancelled  int     `json:"cancelled"`
	Today      int     `json:"today"`
	Revenue    float64 `json:"revenue"`
}

func mapBookingStats(r bookingStatsRecord) BookingStats {
	st := BookingStats{
		Total:      r.Total,
		Pending:    r.Pending + r.Confirmed,
		InProgress: r.InProgress,
		Completed:  r.Completed,
		Cancelled:  r.Cancelled,
		Today:      r.Today,
		Revenue:    r.Revenue,
	}
	if st.Total == 0 {
		st.Total = st.Pending + st.InProgress + st.Completed + st.Cancelled
	}
	return st
}

func (s *Service) ListBookings(ctx context.Context, p ListParams, opts ...ReadOption) (Page[Booking], error) {
	params := p.cacheParams()
	req := cache.Request{Resource: cache.ResourceBookings, Endpoint: bookingsPath, Params: params}
	return read(ctx, s, req, fetchList(s, withParams(bookingsPath, params), "bookings", s.m.booking), opts)
}

// SearchBookings is ListBookings filtered by a free-text query.
func (s *Service) SearchBookings(ctx context.Context, query string, p ListParams, opts ...ReadOption) (Page[Booking], error) {
	p.Search = strings.TrimSpace(query)
	return s.ListBookings(ctx, p, opts...)
}

func (s *Service) GetBooking(ctx context.Context, id string, opts ...ReadOption) (Booking, error) {
	path, err := idPath(bookingsPath, id)
	if err != nil {
		return Booking{}, err
	}
	return read(ctx, s, detail(cache.ResourceBookings, path), fetchOne(s, api.Get(path, nil), s.m.booking), opts)
}

func (s *Service) BookingStats(ctx context.Context, opts ...ReadOption) (BookingStats, error) {
	path := bookingsPath + "/stats"
	req := cache.Request{Resource: cache.ResourceDashboard, Endpoint: path}
	return read(ctx, s, req, fetchOne(s, api.Get(path, nil), mapBookingStats), opts)
}

func (s *Service) CreateBooking(ctx context.Context, in BookingInput) (Booking, error) {
	if err := s.check(in); err != nil {
		return Booking{}, err
	}
	return s.writeBooking(ctx, api.Request{Method: http.MethodPost, Path: bookingsPath, Body: in}, "")
}

func (s *Service) UpdateBooking(ctx context.Context, id string, in BookingInput) (Booking, error) {
	if err := s.check(in); err != nil {
		return Booking{}, err
	}
	path, err := idPath(bookingsPath, id)
	if err != nil {
		return Booking{}, err
	}
	return s.writeBooking(ctx, api.Request{Method: http.MethodPut, Path: path, Body: in}, path)
}

func (s *Service) UpdateBookingStatus(ctx context.Context, id string, status BookingStatus) (Booking, error) {
	path, err := idPath(bookingsPath, id)
	if err != nil {
		return Booking{}, err
	}
	body := map[string]string{"status": BookingStatusToAPI(status)}
	return s.writeBooking(ctx, api.Request{Method: http.MethodPatch, Path: path + "/status", Body: body}, path)
}

func (s *Service) DeleteBooking(ctx context.Context, id string) error {
	path, err := idPath(bookingsPath, id)
	if err != nil {
		return err
	}
	_, err = s.write(ctx, api.Request{Method: http.MethodDelete, Path: path}, bookingFamilies, detail(cache.ResourceBookings, path))
	return err
}

// Booking writes also drop the dashboard, whose counters derive from them.
var bookingFamilies = []string{bookingsPath, dashboardPath}

func (s *Service) writeBooking(ctx context.Context, req api.Request, detailPath string) (Booking, error) {
	var details []cache.Request
	if detailPath != "" {
		details = append(details, detail(cache.ResourceBookings, detailPath))
	}
	return writeOne(ctx, s, req, s.m.booking, bookingFamilies, details...)
}
