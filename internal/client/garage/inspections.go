package garage

import (
	"context"
	"net/http"
	"time"

	"github.com/GilChiu/AutoSaaz-Garage-Client-sub000/internal/client/api"
	"github.com/GilChiu/AutoSaaz-Garage-Client-sub000/internal/client/cache"
)

const inspectionsPath = "/inspections"

type inspectionRecord struct {
	ID           string     `json:"id"`
	BookingID    string     `json:"booking_id"`
	CustomerName string     `json:"customer_name"`
	VehicleMake  string     `json:"vehicle_make"`
	VehicleModel string     `json:"vehicle_model"`
	VehicleYear  int        `json:"vehicle_year"`
	PlateNumber  string     `json:"plate_number"`
	Type         string     `json:"inspection_type"`
	Status       string     `json:"status"`
	Findings     []string   `json:"findings"`
	Mileage      int        `json:"mileage"`
	ScheduledAt  *time.Time `json:"scheduled_at"`
	CompletedAt  *time.Time `json:"completed_at"`
	ReportURL    string     `json:"report_url"`
	CreatedAt    time.Time  `json:"created_at"`
}

type Inspection struct {
	ID           string           `json:"id"`
	BookingID    string           `json:"bookingId"`
	CustomerName string           `json:"customerName"`
	Vehicle      string           `json:"vehicle"`
	PlateNumber  string           `json:"plateNumber"`
	Type         string           `json:"type"`
	Status       InspectionStatus `json:"status"`
	Findings     []string         `json:"findings"`
	Mileage      int              `json:"mileage"`
	ScheduledAt  time.Time        `json:"scheduledAt"`
	CompletedAt  time.Time        `json:"completedAt"`
	ReportURL    string           `json:"reportUrl"`
	CreatedAt    time.Time        `json:"createdAt"`
}

func (m mapper) inspection(r inspectionRecord) Inspection {
	in := Inspection{
		ID:           r.ID,
		BookingID:    r.BookingID,
		CustomerName: or(r.CustomerName, "Unknown customer"),
		Vehicle:      vehicleName(r.VehicleMake, r.VehicleModel, r.VehicleYear),
		PlateNumber:  r.PlateNumber,
		Type:         or(r.Type, "general"),
		Status:       m.inspectionStatus(r.Status),
		Findings:     r.Findings,
		Mileage:      r.Mileage,
		ReportURL:    r.ReportURL,
		CreatedAt:    r.CreatedAt,
	}
	if in.Findings == nil {
		in.Findings = []string{}
	}
	if r.ScheduledAt != nil {
		in.ScheduledAt = *r.ScheduledAt
	}
	if r.CompletedAt != nil {
		in.CompletedAt = *r.CompletedAt
	}
	return in
}

type InspectionInput struct {
	BookingID    string    `json:"booking_id,omitempty"`
	CustomerName string    `json:"customer_name" validate:"required,min=2,max=100"`
	VehicleMake  string    `json:"vehicle_make" validate:"required,max=50"`
	VehicleModel string    `json:"vehicle_model" validate:"required,max=50"`
	VehicleYear  int       `json:"vehicle_year,omitempty" validate:"omitempty,gte=1950,lte=2100"`
	PlateNumber  string    `json:"plate_number,omitempty" validate:"max=20"`
	Type         string    `json:"inspection_type" validate:"required,oneof=general pre_purchase safety emissions accident"`
	Mileage      int       `json:"mileage,omitempty" validate:"gte=0"`
	ScheduledAt  time.Time `json:"scheduled_at" validate:"required"`
}

// CompletionInput closes an inspection with its findings.
type CompletionInput struct {
	Findings  []string `json:"findings" validate:"required,min=1,dive,required,max=500"`
	Mileage   int      `json:"mileage,omitempty" validate:"gte=0"`
	ReportURL string   `json:"report_url,omitempty" validate:"omitempty,url"`
}

type inspectionStatsRecord struct {
	Total      int `json:"total"`
	Pending    int `json:"pending"`
	Scheduled  int `json:"scheduled"`
	InProgress int `json:"in_progress"`
	Completed  int `json:"completed"`
}

type InspectionStats struct {
	Total      int `json:"total"`
	Pending    int `json:"pending"`
	InProgress int `json:"inProgress"`
	Completed  int `json:"completed"`
}

func mapInspectionStats(r inspectionStatsRecord) InspectionStats {
	st := InspectionStats{
		Total:      r.Total,
		Pending:    r.Pending + r.Scheduled,
		InProgress: r.InProgress,
		Completed:  r.Completed,
	}
	if st.Total == 0 {
		st.Total = st.Pending + st.InProgress + st.Completed
	}
	return st
}

var inspectionFamilies = []string{inspectionsPath, dashboardPath}

func (s *Service) ListInspections(ctx context.Context, p ListParams, opts ...ReadOption) (Page[Inspection], error) {
	params := p.cacheParams()
	req := cache.Request{Resource: cache.ResourceInspections, Endpoint: inspectionsPath, Params: params}
	return read(ctx, s, req, fetchList(s, withParams(inspectionsPath, params), "inspections", s.m.inspection), opts)
}

func (s *Service) GetInspection(ctx context.Context, id string, opts ...ReadOption) (Inspection, error) {
	path, err := idPath(inspectionsPath, id)
	if err != nil {
		return Inspection{}, err
	}
	return read(ctx, s, detail(cache.ResourceInspections, path), fetchOne(s, api.Get(path, nil), s.m.inspection), opts)
}

func (s *Service) InspectionStats(ctx context.Context, opts ...ReadOption) (InspectionStats, error) {
	path := inspectionsPath + "/stats"
	req := cache.Request{Resource: cache.ResourceDashboard, Endpoint: path}
	return read(ctx, s, req, fetchOne(s, api.Get(path, nil), mapInspectionStats), opts)
}

func (s *Service) CreateInspection(ctx context.Context, in InspectionInput) (Inspection, error) {
	if err := s.check(in); err != nil {
		return Inspection{}, err
	}
	in.BookingID = NormalizeID(in.BookingID)
	req := api.Request{Method: http.MethodPost, Path: inspectionsPath, Body: in}
	return writeOne(ctx, s, req, s.m.inspection, inspectionFamilies)
}

func (s *Service) UpdateInspection(ctx context.Context, id string, in InspectionInput) (Inspection, error) {
	if err := s.check(in); err != nil {
		return Inspection{}, err
	}
	path, err := idPath(inspectionsPath, id)
	if err != nil {
		return Inspection{}, err
	}
	in.BookingID = NormalizeID(in.BookingID)
	req := api.Request{Method: http.MethodPut, Path: path, Body: in}
	return writeOne(ctx, s, req, s.m.inspection, inspectionFamilies, detail(cache.ResourceInspections, path))
}

func (s *Service) CompleteInspection(ctx context.Context, id string, in CompletionInput) (Inspection, error) {
	if err := s.check(in); err != nil {
		return Inspection{}, err
	}
	path, err := idPath(inspectionsPath, id)
	if err != nil {
		return Inspection{}, err
	}
	req := api.Request{Method: http.MethodPost, Path: path + "/complete", Body: in}
	return writeOne(ctx, s, req, s.m.inspection, inspectionFamilies, detail(cache.ResourceInspections, path))
}

func (s *Service) DeleteInspection(ctx context.Context, id string) error {
	path, err := idPath(inspectionsPath, id)
	if err != nil {
		return err
	}
	_, err = s.write(ctx, api.Request{Method: http.MethodDelete, Path: path}, inspectionFamilies, detail(cache.ResourceInspections, path))
	return err
}
