package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/GilChiu/AutoSaaz-Garage-Client-sub000/internal/sandbox/repository"
	"github.com/GilChiu/AutoSaaz-Garage-Client-sub000/internal/shared/models"
)

var (
	bookingStatuses    = []string{"pending", "confirmed", "in_progress", "completed", "cancelled"}
	inspectionStatuses = []string{"pending", "scheduled", "in_progress", "completed"}
)

func countStatuses(docs []repository.Document, statuses []string) map[string]any {
	out := map[string]any{"total": len(docs)}
	for _, s := range statuses {
		out[s] = 0
	}
	for _, d := range docs {
		if s := str(d.Body["status"]); s != "" {
			if n, ok := out[s].(int); ok {
				out[s] = n + 1
			}
		}
	}
	return out
}

// BookingStats counts bookings per status. Today counts bookings scheduled
// on the current UTC date; revenue sums the cost of completed bookings.
func (s *DocumentsService) BookingStats(ctx context.Context, ownerID string) (map[string]any, error) {
	docs, err := s.all(ctx, ownerID, Bookings, "")
	if err != nil {
		return nil, err
	}
	out := countStatuses(docs, bookingStatuses)
	today := s.now().UTC().Format(time.DateOnly)
	var (
		scheduled int
		revenue   float64
	)
	for _, d := range docs {
		if strings.HasPrefix(str(d.Body["scheduled_at"]), today) {
			scheduled++
		}
		if str(d.Body["status"]) == "completed" {
			revenue += num(d.Body["estimated_cost"])
		}
	}
	out["today"] = scheduled
	out["revenue"] = revenue
	return out, nil
}

func (s *DocumentsService) InspectionStats(ctx context.Context, ownerID string) (map[string]any, error) {
	docs, err := s.all(ctx, ownerID, Inspections, "")
	if err != nil {
		return nil, err
	}
	return countStatuses(docs, inspectionStatuses), nil
}

// CreateBooking stores a pending booking and raises a notification for it.
func (s *DocumentsService) CreateBooking(ctx context.Context, ownerID string, body map[string]any) (map[string]any, error) {
	if str(body["status"]) == "" {
		body["status"] = "pending"
	}
	b, err := s.Create(ctx, ownerID, Bookings, "", body)
	if err != nil {
		return nil, err
	}
	s.notify(ctx, ownerID, "booking", "New booking", str(b["customer_name"])+" booked "+str(b["service_type"]), "/bookings/"+str(b["id"]))
	return b, nil
}

// CompleteInspection marks an inspection completed with its findings.
func (s *DocumentsService) CompleteInspection(ctx context.Context, ownerID, id string, patch map[string]any) (map[string]any, error) {
	patch["status"] = "completed"
	patch["completed_at"] = s.now().UTC()
	return s.Update(ctx, ownerID, Inspections, id, patch)
}

func (s *DocumentsService) ResolveDispute(ctx context.Context, ownerID, id, resolution string, refund float64) (map[string]any, error) {
	patch := map[string]any{"status": "resolved", "resolution": resolution}
	if refund > 0 {
		patch["refund_amount"] = refund
	}
	if _, err := s.Update(ctx, ownerID, Disputes, id, patch); err != nil {
		return nil, err
	}
	return s.Thread(ctx, ownerID, Disputes, id)
}

func threadMessages(collection string) string {
	if collection == Tickets {
		return TicketMessages
	}
	return DisputeMessages
}

// Thread returns a dispute or ticket with its messages oldest first.
func (s *DocumentsService) Thread(ctx context.Context, ownerID, collection, id string) (map[string]any, error) {
	out, err := s.Get(ctx, ownerID, collection, id)
	if err != nil {
		return nil, err
	}
	msgs, err := s.all(ctx, ownerID, threadMessages(collection), id)
	if err != nil {
		return nil, err
	}
	list := make([]map[string]any, 0, len(msgs))
	for _, m := range msgs {
		list = append(list, view(m))
	}
	out["messages"] = list
	return out, nil
}

// Reply appends a garage message to a dispute or ticket thread.
func (s *DocumentsService) Reply(ctx context.Context, ownerID, collection, id, message string) (map[string]any, error) {
	if _, err := s.repo.GetDocument(ctx, ownerID, collection, id); err != nil {
		return nil, err
	}
	body := map[string]any{"message": message, "sender_id": ownerID, "sender_role": "garage"}
	if _, err := s.Create(ctx, ownerID, threadMessages(collection), id, body); err != nil {
		return nil, err
	}
	if _, err := s.Update(ctx, ownerID, collection, id, map[string]any{}); err != nil {
		return nil, err
	}
	return s.Thread(ctx, ownerID, collection, id)
}

// SendMessage appends a message to a conversation. Customer messages count
// as unread and raise a notification.
func (s *DocumentsService) SendMessage(ctx context.Context, ownerID, conversationID string, body map[string]any) (map[string]any, error) {
	conv, err := s.repo.GetDocument(ctx, ownerID, Conversations, conversationID)
	if err != nil {
		return nil, err
	}
	role := str(body["sender_role"])
	if role != "customer" {
		role = "garage"
		body["sender_id"] = ownerID
	}
	body["sender_role"] = role
	body["conversation_id"] = conversationID
	msg, err := s.Create(ctx, ownerID, Messages, conversationID, body)
	if err != nil {
		return nil, err
	}
	patch := map[string]any{"last_message": str(msg["content"]), "last_message_at": msg["created_at"]}
	if role == "customer" {
		patch["unread_count"] = num(conv.Body["unread_count"]) + 1
	}
	if _, err := s.Update(ctx, ownerID, Conversations, conversationID, patch); err != nil {
		return nil, err
	}
	if role == "customer" {
		s.notify(ctx, ownerID, "message", "New message", str(msg["content"]), "/chat/"+conversationID)
	}
	return msg, nil
}

// MarkConversationRead stamps read_at on unread customer messages.
func (s *DocumentsService) MarkConversationRead(ctx context.Context, ownerID, conversationID string) error {
	if _, err := s.repo.GetDocument(ctx, ownerID, Conversations, conversationID); err != nil {
		return err
	}
	msgs, err := s.all(ctx, ownerID, Messages, conversationID)
	if err != nil {
		return err
	}
	now := s.now().UTC()
	for _, m := range msgs {
		if m.Body["read_at"] != nil || str(m.Body["sender_role"]) != "customer" {
			continue
		}
		m.Body["read_at"] = now
		if _, err := s.repo.UpdateDocument(ctx, m); err != nil {
			return err
		}
	}
	_, err = s.Update(ctx, ownerID, Conversations, conversationID, map[string]any{"unread_count": 0})
	return err
}

func (s *DocumentsService) notify(ctx context.Context, ownerID, kind, title, body, link string) {
	n := map[string]any{"type": kind, "title": title, "body": body, "link": link, "is_read": false}
	if _, err := s.Create(ctx, ownerID, Notifications, "", n); err != nil {
		s.log.Warn().Err(err).Str("type", kind).Msg("create notification")
	}
}

func (s *DocumentsService) UnreadCount(ctx context.Context, ownerID string) (int, error) {
	docs, err := s.all(ctx, ownerID, Notifications, "")
	if err != nil {
		return 0, err
	}
	n := 0
	for _, d := range docs {
		if !truthy(d.Body["is_read"]) {
			n++
		}
	}
	return n, nil
}

func (s *DocumentsService) MarkNotificationRead(ctx context.Context, ownerID, id string) (map[string]any, error) {
	return s.Update(ctx, ownerID, Notifications, id, map[string]any{"is_read": true, "read_at": s.now().UTC()})
}

// MarkAllNotificationsRead publishes one event for the whole collection
// rather than one per notification.
func (s *DocumentsService) MarkAllNotificationsRead(ctx context.Context, ownerID string) (int, error) {
	docs, err := s.all(ctx, ownerID, Notifications, "")
	if err != nil {
		return 0, err
	}
	now, n := s.now().UTC(), 0
	for _, d := range docs {
		if truthy(d.Body["is_read"]) {
			continue
		}
		d.Body["is_read"], d.Body["read_at"] = true, now
		if _, err := s.repo.UpdateDocument(ctx, d); err != nil {
			return n, err
		}
		n++
	}
	if n > 0 {
		s.publish(ownerID, Notifications, Notifications, "", models.ChangeUpdate)
	}
	return n, nil
}

// Dashboard summarizes the garage: revenue of bookings completed this month,
// distinct customers, profile rating and disputes still open. A booking
// belongs to the month it is scheduled in.
func (s *DocumentsService) Dashboard(ctx context.Context, ownerID string) (map[string]any, error) {
	bookings, err := s.all(ctx, ownerID, Bookings, "")
	if err != nil {
		return nil, err
	}
	month := s.now().UTC().Format("2006-01")
	var revenue float64
	customers := map[string]struct{}{}
	for _, b := range bookings {
		status := str(b.Body["status"])
		when := str(b.Body["scheduled_at"])
		if when == "" {
			when = b.CreatedAt.UTC().Format(time.RFC3339)
		}
		if status == "completed" && strings.HasPrefix(when, month) {
			revenue += num(b.Body["estimated_cost"])
		}
		if name := str(b.Body["customer_name"]); name != "" && status != "cancelled" {
			customers[strings.ToLower(name)] = struct{}{}
		}
	}
	disputes, err := s.all(ctx, ownerID, Disputes, "")
	if err != nil {
		return nil, err
	}
	open := 0
	for _, d := range disputes {
		if st := str(d.Body["status"]); st != "resolved" && st != "closed" {
			open++
		}
	}
	out := map[string]any{
		"monthly_revenue":  revenue,
		"active_customers": len(customers),
		"rating":           0.0,
		"review_count":     0,
		"open_disputes":    open,
	}
	if p, err := s.repo.GetDocument(ctx, ownerID, Profiles, ownerID); err == nil {
		out["rating"] = num(p.Body["rating"])
		out["review_count"] = int(num(p.Body["review_count"]))
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	return out, nil
}

// Profile returns the garage profile. Accounts without one get a profile
// built from the user record.
func (s *DocumentsService) Profile(ctx context.Context, owner models.User) (map[string]any, error) {
	out, err := s.Get(ctx, owner.ID, Profiles, owner.ID)
	if errors.Is(err, repository.ErrNotFound) {
		return map[string]any{
			"id":           owner.ID,
			"owner_name":   owner.FullName,
			"email":        owner.Email,
			"phone_number": owner.Phone,
		}, nil
	}
	return out, err
}

func (s *DocumentsService) UpdateProfile(ctx context.Context, ownerID string, patch map[string]any) (map[string]any, error) {
	delete(patch, "email")
	delete(patch, "rating")
	return s.Upsert(ctx, ownerID, Profiles, ownerID, patch)
}

func (s *DocumentsService) Upload(ctx context.Context, ownerID, name, contentType string, data []byte) (repository.Upload, error) {
	return s.repo.CreateUpload(ctx, repository.Upload{OwnerID: ownerID, Name: name, ContentType: contentType, Data: data})
}

func (s *DocumentsService) GetUpload(ctx context.Context, id string) (repository.Upload, error) {
	return s.repo.GetUpload(ctx, id)
}
