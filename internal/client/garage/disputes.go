package garage

import (
	"context"
	"net/http"
	"time"

	"github.com/GilChiu/AutoSaaz-Garage-Client-sub000/internal/client/api"
	"github.com/GilChiu/AutoSaaz-Garage-Client-sub000/internal/client/cache"
)

const (
	disputesListPath = "/resolution-center/disputes"
	disputesPath     = "/disputes"
)

type disputeMessageRecord struct {
	ID         string    `json:"id"`
	SenderID   string    `json:"sender_id"`
	SenderRole string    `json:"sender_role"`
	Body       string    `json:"message"`
	CreatedAt  time.Time `json:"created_at"`
}

type disputeRecord struct {
	ID           string                 `json:"id"`
	BookingID    string                 `json:"booking_id"`
	CustomerName string                 `json:"customer_name"`
	Subject      string                 `json:"subject"`
	Description  string                 `json:"description"`
	Status       string                 `json:"status"`
	Amount       float64                `json:"amount"`
	Resolution   string                 `json:"resolution"`
	Messages     []disputeMessageRecord `json:"messages"`
	CreatedAt    time.Time              `json:"created_at"`
	UpdatedAt    time.Time              `json:"updated_at"`
}

type DisputeMessage struct {
	ID         string    `json:"id"`
	SenderID   string    `json:"senderId"`
	FromGarage bool      `json:"fromGarage"`
	Body       string    `json:"body"`
	CreatedAt  time.Time `json:"createdAt"`
}

type Dispute struct {
	ID           string           `json:"id"`
	BookingID    string           `json:"bookingId"`
	CustomerName string           `json:"customerName"`
	Subject      string           `json:"subject"`
	Description  string           `json:"description"`
	Status       DisputeStatus    `json:"status"`
	Amount       float64          `json:"amount"`
	Resolution   string           `json:"resolution"`
	Messages     []DisputeMessage `json:"messages"`
	CreatedAt    time.Time        `json:"createdAt"`
	UpdatedAt    time.Time        `json:"updatedAt"`
}

func mapDisputeMessage(r disputeMessageRecord) DisputeMessage {
	return DisputeMessage{
		ID:         r.ID,
		SenderID:   r.SenderID,
		FromGarage: r.SenderRole == "garage",
		Body:       r.Body,
		CreatedAt:  r.CreatedAt,
	}
}

func (m mapper) dispute(r disputeRecord) Dispute {
	d := Dispute{
		ID:           r.ID,
		BookingID:    r.BookingID,
		CustomerName: or(r.CustomerName, "Unknown customer"),
		Subject:      or(r.Subject, "Dispute"),
		Description:  r.Description,
		Status:       m.disputeStatus(r.Status),
		Amount:       r.Amount,
		Resolution:   r.Resolution,
		Messages:     mapAll(r.Messages, mapDisputeMessage),
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
	if d.UpdatedAt.IsZero() {
		d.UpdatedAt = d.CreatedAt
	}
	return d
}

type DisputeInput struct {
	BookingID   string  `json:"booking_id" validate:"required"`
	Subject     string  `json:"subject" validate:"required,min=3,max=200"`
	Description string  `json:"description" validate:"required,max=4000"`
	Amount      float64 `json:"amount,omitempty" validate:"gte=0"`
}

type ResolutionInput struct {
	Resolution string  `json:"resolution" validate:"required,max=4000"`
	Refund     float64 `json:"refund_amount,omitempty" validate:"gte=0"`
}

var disputeFamilies = []string{disputesPath}

// ListDisputes lists disputes, optionally filtered by UI status.
func (s *Service) ListDisputes(ctx context.Context, status DisputeStatus, opts ...ReadOption) ([]Dispute, error) {
	params := cache.Params{}
	if status != "" {
		params["status"] = DisputeStatusToAPI(status)
	}
	req := cache.Request{Resource: cache.ResourceDisputes, Endpoint: disputesListPath, Params: params}
	page, err := read(ctx, s, req, fetchList(s, withParams(disputesListPath, params), "disputes", s.m.dispute), opts)
	return page.Items, err
}

func (s *Service) GetDispute(ctx context.Context, id string, opts ...ReadOption) (Dispute, error) {
	path, err := idPath(disputesPath, id)
	if err != nil {
		return Dispute{}, err
	}
	return read(ctx, s, detail(cache.ResourceDisputes, path), fetchOne(s, api.Get(path, nil), s.m.dispute), opts)
}

func (s *Service) CreateDispute(ctx context.Context, in DisputeInput) (Dispute, error) {
	in.BookingID = NormalizeID(in.BookingID)
	if err := s.check(in); err != nil {
		return Dispute{}, err
	}
	req := api.Request{Method: http.MethodPost, Path: disputesPath, Body: in}
	return writeOne(ctx, s, req, s.m.dispute, disputeFamilies)
}

func (s *Service) PostDisputeMessage(ctx context.Context, id, body string) (DisputeMessage, error) {
	if err := s.validate.Var(body, "required,max=4000"); err != nil {
		return DisputeMessage{}, &ValidationError{Err: err}
	}
	path, err := idPath(disputesPath, id)
	if err != nil {
		return DisputeMessage{}, err
	}
	req := api.Request{Method: http.MethodPost, Path: path + "/messages", Body: map[string]string{"message": body}}
	return writeOne(ctx, s, req, mapDisputeMessage, disputeFamilies, detail(cache.ResourceDisputes, path))
}

func (s *Service) ResolveDispute(ctx context.Context, id string, in ResolutionInput) (Dispute, error) {
	if err := s.check(in); err != nil {
		return Dispute{}, err
	}
	path, err := idPath(disputesPath, id)
	if err != nil {
		return Dispute{}, err
	}
	req := api.Request{Method: http.MethodPost, Path: path + "/resolve", Body: in}
	return writeOne(ctx, s, req, s.m.dispute, disputeFamilies, detail(cache.ResourceDisputes, path))
}
