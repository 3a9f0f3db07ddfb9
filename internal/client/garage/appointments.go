package garage

import (
	"context"
	"net/http"
	"time"

	"github.com/GilChiu/AutoSaaz-Garage-Client-sub000/internal/client/api"
	"github.com/GilChiu/AutoSaaz-Garage-Client-sub000/internal/client/cache"
)

const appointmentsPath = "/appointments"

type appointmentRecord struct {
	ID           string     `json:"id"`
	BookingID    string     `json:"booking_id"`
	CustomerName string     `json:"customer_name"`
	Service      string     `json:"service_type"`
	Status       string     `json:"status"`
	StartsAt     *time.Time `json:"starts_at"`
	DurationMin  int        `json:"duration_minutes"`
	Bay          string     `json:"bay"`
	Notes        string     `json:"notes"`
}

// Appointment is a booked slot in the garage's calendar. Its status uses
// the booking vocabulary.
type Appointment struct {
	ID           string        `json:"id"`
	BookingID    string        `json:"bookingId"`
	CustomerName string        `json:"customerName"`
	Service      string        `json:"service"`
	Status       BookingStatus `json:"status"`
	StartsAt     time.Time     `json:"startsAt"`
	Duration     time.Duration `json:"duration"`
	Bay          string        `json:"bay"`
	Notes        string        `json:"notes"`
}

func (m mapper) appointment(r appointmentRecord) Appointment {
	a := Appointment{
		ID:           r.ID,
		BookingID:    r.BookingID,
		CustomerName: or(r.CustomerName, "Unknown customer"),
		Service:      or(r.Service, "General service"),
		Status:       m.bookingStatus(r.Status),
		Duration:     time.Duration(r.DurationMin) * time.Minute,
		Bay:          r.Bay,
		Notes:        r.Notes,
	}
	if a.Duration <= 0 {
		a.Duration = time.Hour
	}
	if r.StartsAt != nil {
		a.StartsAt = *r.StartsAt
	}
	return a
}

// AppointmentUpdate changes the slot or status; zero fields are left as is.
type AppointmentUpdate struct {
	StartsAt    *time.Time `json:"starts_at,omitempty"`
	DurationMin int        `json:"duration_minutes,omitempty" validate:"gte=0,lte=720"`
	Bay         string     `json:"bay,omitempty" validate:"max=20"`
	Status      string     `json:"status,omitempty"`
	Notes       string     `json:"notes,omitempty" validate:"max=1000"`
}

func (s *Service) ListAppointments(ctx context.Context, p ListParams, opts ...ReadOption) (Page[Appointment], error) {
	params := p.cacheParams()
	req := cache.Request{Resource: cache.ResourceAppointments, Endpoint: appointmentsPath, Params: params}
	return read(ctx, s, req, fetchList(s, withParams(appointmentsPath, params), "appointments", s.m.appointment), opts)
}

func (s *Service) GetAppointment(ctx context.Context, id string, opts ...ReadOption) (Appointment, error) {
	path, err := idPath(appointmentsPath, id)
	if err != nil {
		return Appointment{}, err
	}
	return read(ctx, s, detail(cache.ResourceAppointments, path), fetchOne(s, api.Get(path, nil), s.m.appointment), opts)
}

// UpdateAppointment also drops cached bookings: both views show the same
// slot.
func (s *Service) UpdateAppointment(ctx context.Context, id string, in AppointmentUpdate) (Appointment, error) {
	if err := s.check(in); err != nil {
		return Appointment{}, err
	}
	path, err := idPath(appointmentsPath, id)
	if err != nil {
		return Appointment{}, err
	}
	if in.Status != "" {
		in.Status = BookingStatusToAPI(BookingStatus(in.Status))
	}
	req := api.Request{Method: http.MethodPut, Path: path, Body: in}
	families := []string{appointmentsPath, bookingsPath, dashboardPath}
	return writeOne(ctx, s, req, s.m.appointment, families, detail(cache.ResourceAppointments, path))
}
