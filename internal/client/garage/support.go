package garage

import (
	"context"
	"net/http"
	"time"

	"github.com/GilChiu/AutoSaaz-Garage-Client-sub000/internal/client/api"
	"github.com/GilChiu/AutoSaaz-Garage-Client-sub000/internal/client/cache"
)

const ticketsPath = "/support/tickets"

type ticketMessageRecord struct {
	ID         string    `json:"id"`
	SenderRole string    `json:"sender_role"`
	Message    string    `json:"message"`
	CreatedAt  time.Time `json:"created_at"`
}

type ticketRecord struct {
	ID           string                `json:"id"`
	TicketNumber string                `json:"ticket_number"`
	Subject      string                `json:"subject"`
	Category     string                `json:"category"`
	Priority     string                `json:"priority"`
	Status       string                `json:"status"`
	Description  string                `json:"description"`
	Messages     []ticketMessageRecord `json:"messages"`
	CreatedAt    time.Time             `json:"created_at"`
	UpdatedAt    time.Time             `json:"updated_at"`
}

type TicketMessage struct {
	ID        string    `json:"id"`
	FromStaff bool      `json:"fromStaff"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}

type SupportTicket struct {
	ID          string          `json:"id"`
	Number      string          `json:"number"`
	Subject     string          `json:"subject"`
	Category    string          `json:"category"`
	Priority    string          `json:"priority"`
	Status      string          `json:"status"`
	Description string          `json:"description"`
	Messages    []TicketMessage `json:"messages"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

func mapTicketMessage(r ticketMessageRecord) TicketMessage {
	return TicketMessage{
		ID:        r.ID,
		FromStaff: r.SenderRole == "support" || r.SenderRole == "admin",
		Message:   r.Message,
		CreatedAt: r.CreatedAt,
	}
}

func mapTicket(r ticketRecord) SupportTicket {
	t := SupportTicket{
		ID:          r.ID,
		Number:      r.TicketNumber,
		Subject:     or(r.Subject, "Support request"),
		Category:    or(r.Category, "general"),
		Priority:    or(r.Priority, "normal"),
		Status:      or(r.Status, "open"),
		Description: r.Description,
		Messages:    mapAll(r.Messages, mapTicketMessage),
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
	if t.Number == "" && r.ID != "" {
		t.Number = "#" + shortID(r.ID)
	}
	return t
}

type TicketInput struct {
	Subject     string `json:"subject" validate:"required,min=3,max=200"`
	Category    string `json:"category" validate:"required,oneof=general billing technical account booking"`
	Priority    string `json:"priority,omitempty" validate:"omitempty,oneof=low normal high urgent"`
	Description string `json:"description" validate:"required,max=4000"`
}

var ticketFamilies = []string{ticketsPath}

func (s *Service) ListTickets(ctx context.Context, opts ...ReadOption) ([]SupportTicket, error) {
	req := cache.Request{Resource: cache.ResourceSupport, Endpoint: ticketsPath}
	page, err := read(ctx, s, req, fetchList(s, api.Get(ticketsPath, nil), "tickets", mapTicket), opts)
	return page.Items, err
}

func (s *Service) GetTicket(ctx context.Context, id string, opts ...ReadOption) (SupportTicket, error) {
	path, err := idPath(ticketsPath, id)
	if err != nil {
		return SupportTicket{}, err
	}
	return read(ctx, s, detail(cache.ResourceSupport, path), fetchOne(s, api.Get(path, nil), mapTicket), opts)
}

func (s *Service) CreateTicket(ctx context.Context, in TicketInput) (SupportTicket, error) {
	if err := s.check(in); err != nil {
		return SupportTicket{}, err
	}
	req := api.Request{Method: http.MethodPost, Path: ticketsPath, Body: in}
	return writeOne(ctx, s, req, mapTicket, ticketFamilies)
}

func (s *Service) AddTicketMessage(ctx context.Context, id, message string) (TicketMessage, error) {
	if err := s.validate.Var(message, "required,max=4000"); err != nil {
		return TicketMessage{}, &ValidationError{Err: err}
	}
	path, err := idPath(ticketsPath, id)
	if err != nil {
		return TicketMessage{}, err
	}
	req := api.Request{Method: http.MethodPost, Path: path + "/messages", Body: map[string]string{"message": message}}
	return writeOne(ctx, s, req, mapTicketMessage, ticketFamilies, detail(cache.ResourceSupport, path))
}
