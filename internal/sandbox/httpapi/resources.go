package httpapi

import (
	"context"
	"io"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/GilChiu/AutoSaaz-Garage-Client-sub000/internal/sandbox/service"
)

const defaultPageSize = 20

// Field rules for map bodies, keyed by JSON field.
var (
	bookingRules = map[string]any{
		"customer_name":  "required,min=2,max=100",
		"vehicle_make":   "required,max=50",
		"vehicle_model":  "required,max=50",
		"service_type":   "required",
		"scheduled_at":   "required",
		"estimated_cost": "omitempty,gte=0",
	}
	inspectionRules = map[string]any{
		"customer_name":   "required,min=2,max=100",
		"vehicle_make":    "required,max=50",
		"vehicle_model":   "required,max=50",
		"inspection_type": "required,oneof=general pre_purchase safety emissions accident",
		"scheduled_at":    "required",
	}
	appointmentRules = map[string]any{
		"customer_name": "required,min=2,max=100",
		"starts_at":     "required",
		"status":        "omitempty,oneof=scheduled confirmed in_progress completed cancelled no_show",
	}
	disputeRules = map[string]any{
		"booking_id":  "required",
		"subject":     "required,min=3,max=200",
		"description": "required,max=4000",
	}
	conversationRules = map[string]any{
		"customer_id": "required",
		"subject":     "omitempty,max=200",
	}
	ticketRules = map[string]any{
		"subject":     "required,min=3,max=200",
		"category":    "required,oneof=general billing technical account booking",
		"description": "required,max=4000",
	}
	serviceRules = map[string]any{
		"name":     "required,min=2,max=100",
		"category": "required",
		"price":    "omitempty,gte=0",
	}
)

type statusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending confirmed in_progress completed cancelled"`
}

type completionRequest struct {
	Findings  []string `json:"findings" validate:"required,min=1,dive,required,max=500"`
	Mileage   int      `json:"mileage" validate:"gte=0"`
	ReportURL string   `json:"report_url" validate:"omitempty,url"`
}

type replyRequest struct {
	Message string `json:"message" validate:"required,max=4000"`
}

type resolveRequest struct {
	Resolution string  `json:"resolution" validate:"required,max=4000"`
	Refund     float64 `json:"refund_amount" validate:"gte=0"`
}

type messageRequest struct {
	Content       string `json:"content" validate:"required_without=AttachmentURL,max=4000"`
	AttachmentURL string `json:"attachment_url" validate:"omitempty,url"`
	SenderRole    string `json:"sender_role" validate:"omitempty,oneof=garage customer"`
	SenderID      string `json:"sender_id"`
}

func listQuery(req *http.Request, paginate bool) service.ListQuery {
	q := req.URL.Query()
	lq := service.ListQuery{Status: q.Get("status"), Search: strings.TrimSpace(q.Get("search"))}
	if paginate {
		lq.Page, _ = strconv.Atoi(q.Get("page"))
		lq.Limit, _ = strconv.Atoi(q.Get("limit"))
		if lq.Limit <= 0 || lq.Limit > 100 {
			lq.Limit = defaultPageSize
		}
		if lq.Page < 1 {
			lq.Page = 1
		}
	}
	return lq
}

// list answers paginated collections as {field: [...], total, page, limit}
// and the rest as a bare array.
func (r *Router) list(collection, field string, paginate bool) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		res, err := r.services.Documents.List(req.Context(), getUserID(req.Context()), collection, listQuery(req, paginate))
		if err != nil {
			r.fail(w, req, err)
			return
		}
		if !paginate {
			writeData(w, http.StatusOK, "ok", res.Items)
			return
		}
		writeData(w, http.StatusOK, "ok", map[string]any{
			field:   res.Items,
			"total": res.Total,
			"page":  res.Page,
			"limit": res.Limit,
		})
	}
}

func (r *Router) get(collection string) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		doc, err := r.services.Documents.Get(req.Context(), getUserID(req.Context()), collection, chi.URLParam(req, "id"))
		if err != nil {
			r.fail(w, req, err)
			return
		}
		writeData(w, http.StatusOK, "ok", doc)
	}
}

// create stores a validated body. Defaults fill fields the body leaves out.
func (r *Router) create(collection string, rules, defaults map[string]any) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		var body map[string]any
		if !r.decode(w, req, &body) || !r.checkMap(w, body, rules, false) {
			return
		}
		for k, v := range defaults {
			if _, ok := body[k]; !ok {
				body[k] = v
			}
		}
		doc, err := r.services.Documents.Create(req.Context(), getUserID(req.Context()), collection, "", body)
		if err != nil {
			r.fail(w, req, err)
			return
		}
		writeData(w, http.StatusCreated, "Created", doc)
	}
}

func (r *Router) update(collection string, rules map[string]any) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		var body map[string]any
		if !r.decode(w, req, &body) || !r.checkMap(w, body, rules, true) {
			return
		}
		doc, err := r.services.Documents.Update(req.Context(), getUserID(req.Context()), collection, chi.URLParam(req, "id"), body)
		if err != nil {
			r.fail(w, req, err)
			return
		}
		writeData(w, http.StatusOK, "Updated", doc)
	}
}

func (r *Router) remove(collection string) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if err := r.services.Documents.Delete(req.Context(), getUserID(req.Context()), collection, chi.URLParam(req, "id")); err != nil {
			r.fail(w, req, err)
			return
		}
		writeData(w, http.StatusOK, "Deleted", nil)
	}
}

func (r *Router) stats(fn func(ctx context.Context, ownerID string) (map[string]any, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		out, err := fn(req.Context(), getUserID(req.Context()))
		if err != nil {
			r.fail(w, req, err)
			return
		}
		writeData(w, http.StatusOK, "ok", out)
	}
}

func (r *Router) thread(collection string) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		out, err := r.services.Documents.Thread(req.Context(), getUserID(req.Context()), collection, chi.URLParam(req, "id"))
		if err != nil {
			r.fail(w, req, err)
			return
		}
		writeData(w, http.StatusOK, "ok", out)
	}
}

func (r *Router) reply(collection string) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		var body replyRequest
		if !r.decode(w, req, &body) {
			return
		}
		out, err := r.services.Documents.Reply(req.Context(), getUserID(req.Context()), collection, chi.URLParam(req, "id"), body.Message)
		if err != nil {
			r.fail(w, req, err)
			return
		}
		writeData(w, http.StatusCreated, "Message sent", out)
	}
}

func (r *Router) handleCreateBooking(w http.ResponseWriter, req *http.Request) {
	var body map[string]any
	if !r.decode(w, req, &body) || !r.checkMap(w, body, bookingRules, false) {
		return
	}
	doc, err := r.services.Documents.CreateBooking(req.Context(), getUserID(req.Context()), body)
	if err != nil {
		r.fail(w, req, err)
		return
	}
	writeData(w, http.StatusCreated, "Booking created", doc)
}

func (r *Router) handleBookingStatus(w http.ResponseWriter, req *http.Request) {
	var body statusRequest
	if !r.decode(w, req, &body) {
		return
	}
	doc, err := r.services.Documents.Update(req.Context(), getUserID(req.Context()), service.Bookings, chi.URLParam(req, "id"), map[string]any{"status": body.Status})
	if err != nil {
		r.fail(w, req, err)
		return
	}
	writeData(w, http.StatusOK, "Status updated", doc)
}

func (r *Router) handleCompleteInspection(w http.ResponseWriter, req *http.Request) {
	var body completionRequest
	if !r.decode(w, req, &body) {
		return
	}
	patch := map[string]any{"findings": body.Findings}
	if body.Mileage > 0 {
		patch["mileage"] = body.Mileage
	}
	if body.ReportURL != "" {
		patch["report_url"] = body.ReportURL
	}
	doc, err := r.services.Documents.CompleteInspection(req.Context(), getUserID(req.Context()), chi.URLParam(req, "id"), patch)
	if err != nil {
		r.fail(w, req, err)
		return
	}
	writeData(w, http.StatusOK, "Inspection completed", doc)
}

func (r *Router) handleResolveDispute(w http.ResponseWriter, req *http.Request) {
	var body resolveRequest
	if !r.decode(w, req, &body) {
		return
	}
	doc, err := r.services.Documents.ResolveDispute(req.Context(), getUserID(req.Context()), chi.URLParam(req, "id"), body.Resolution, body.Refund)
	if err != nil {
		r.fail(w, req, err)
		return
	}
	writeData(w, http.StatusOK, "Dispute resolved", doc)
}

func (r *Router) handleCreateTicket(w http.ResponseWriter, req *http.Request) {
	var body map[string]any
	if !r.decode(w, req, &body) || !r.checkMap(w, body, ticketRules, false) {
		return
	}
	body["status"] = "open"
	body["ticket_number"] = "TCK-" + strings.ToUpper(uuid.NewString()[:8])
	if _, ok := body["priority"]; !ok {
		body["priority"] = "normal"
	}
	doc, err := r.services.Documents.Create(req.Context(), getUserID(req.Context()), service.Tickets, "", body)
	if err != nil {
		r.fail(w, req, err)
		return
	}
	writeData(w, http.StatusCreated, "Ticket created", doc)
}

func (r *Router) handleListMessages(w http.ResponseWriter, req *http.Request) {
	ctx, owner, id := req.Context(), getUserID(req.Context()), chi.URLParam(req, "id")
	if _, err := r.services.Documents.Get(ctx, owner, service.Conversations, id); err != nil {
		r.fail(w, req, err)
		return
	}
	res, err := r.services.Documents.List(ctx, owner, service.Messages, service.ListQuery{ParentID: id, Oldest: true})
	if err != nil {
		r.fail(w, req, err)
		return
	}
	writeData(w, http.StatusOK, "ok", res.Items)
}

func (r *Router) handleSendMessage(w http.ResponseWriter, req *http.Request) {
	var body messageRequest
	if !r.decode(w, req, &body) {
		return
	}
	msg := map[string]any{"content": body.Content, "sender_role": body.SenderRole, "sender_id": body.SenderID}
	if body.AttachmentURL != "" {
		msg["attachment_url"] = body.AttachmentURL
	}
	doc, err := r.services.Documents.SendMessage(req.Context(), getUserID(req.Context()), chi.URLParam(req, "id"), msg)
	if err != nil {
		r.fail(w, req, err)
		return
	}
	writeData(w, http.StatusCreated, "Message sent", doc)
}

func (r *Router) handleReadConversation(w http.ResponseWriter, req *http.Request) {
	if err := r.services.Documents.MarkConversationRead(req.Context(), getUserID(req.Context()), chi.URLParam(req, "id")); err != nil {
		r.fail(w, req, err)
		return
	}
	writeData(w, http.StatusOK, "Conversation marked read", nil)
}

func (r *Router) handleUnreadCount(w http.ResponseWriter, req *http.Request) {
	n, err := r.services.Documents.UnreadCount(req.Context(), getUserID(req.Context()))
	if err != nil {
		r.fail(w, req, err)
		return
	}
	writeData(w, http.StatusOK, "ok", map[string]int{"count": n})
}

func (r *Router) handleReadNotification(w http.ResponseWriter, req *http.Request) {
	doc, err := r.services.Documents.MarkNotificationRead(req.Context(), getUserID(req.Context()), chi.URLParam(req, "id"))
	if err != nil {
		r.fail(w, req, err)
		return
	}
	writeData(w, http.StatusOK, "Notification marked read", doc)
}

func (r *Router) handleReadAllNotifications(w http.ResponseWriter, req *http.Request) {
	n, err := r.services.Documents.MarkAllNotificationsRead(req.Context(), getUserID(req.Context()))
	if err != nil {
		r.fail(w, req, err)
		return
	}
	writeData(w, http.StatusOK, "All notifications marked read", map[string]int{"updated": n})
}

func (r *Router) handleGetProfile(w http.ResponseWriter, req *http.Request) {
	u, err := r.services.Auth.User(req.Context(), getUserID(req.Context()))
	if err != nil {
		r.fail(w, req, err)
		return
	}
	p, err := r.services.Documents.Profile(req.Context(), u)
	if err != nil {
		r.fail(w, req, err)
		return
	}
	writeData(w, http.StatusOK, "ok", p)
}

func (r *Router) handleUpdateProfile(w http.ResponseWriter, req *http.Request) {
	var body map[string]any
	if !r.decode(w, req, &body) {
		return
	}
	p, err := r.services.Documents.UpdateProfile(req.Context(), getUserID(req.Context()), body)
	if err != nil {
		r.fail(w, req, err)
		return
	}
	writeData(w, http.StatusOK, "Profile updated", p)
}

// handleUpload stores the raw request body and answers with the URL it can
// be fetched from.
func (r *Router) handleUpload(w http.ResponseWriter, req *http.Request) {
	if r.maxRequestBytes > 0 {
		req.Body = http.MaxBytesReader(w, req.Body, r.maxRequestBytes)
	}
	data, err := io.ReadAll(req.Body)
	if err != nil {
		r.fail(w, req, errPayloadTooLarge)
		return
	}
	if len(data) == 0 {
		writeError(w, http.StatusBadRequest, "Empty upload")
		return
	}
	name := path.Base(req.URL.Query().Get("name"))
	if name == "." || name == "/" {
		name = "upload"
	}
	ct := req.Header.Get("Content-Type")
	if ct == "" {
		ct = http.DetectContentType(data)
	}
	u, err := r.services.Documents.Upload(req.Context(), getUserID(req.Context()), name, ct, data)
	if err != nil {
		r.fail(w, req, err)
		return
	}
	scheme := "http"
	if req.TLS != nil {
		scheme = "https"
	}
	url := scheme + "://" + req.Host + BasePath + "/uploads/" + u.ID
	writeData(w, http.StatusCreated, "Uploaded", map[string]string{"url": url, "name": u.Name})
}

func (r *Router) handleGetUpload(w http.ResponseWriter, req *http.Request) {
	u, err := r.services.Documents.GetUpload(req.Context(), chi.URLParam(req, "id"))
	if err != nil {
		r.fail(w, req, err)
		return
	}
	w.Header().Set("Content-Type", u.ContentType)
	w.Header().Set("Content-Disposition", `inline; filename="`+u.Name+`"`)
	_, _ = w.Write(u.Data)
}

func (r *Router) handleRealtime(w http.ResponseWriter, req *http.Request) {
	r.hub.Serve(w, req, getUserID(req.Context()))
}
