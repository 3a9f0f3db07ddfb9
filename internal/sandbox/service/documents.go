package service

import (
	"context"
	"errors"
	"maps"
	"time"

	"github.com/rs/zerolog"

	"github.com/GilChiu/AutoSaaz-Garage-Client-sub000/internal/sandbox/repository"
	"github.com/GilChiu/AutoSaaz-Garage-Client-sub000/internal/shared/models"
)

// Collection names. They double as the collection of published change
// events.
const (
	Bookings        = "bookings"
	Inspections     = "inspections"
	Appointments    = "appointments"
	Disputes        = "disputes"
	DisputeMessages = "dispute_messages"
	Conversations   = "conversations"
	Messages        = "messages"
	Tickets         = "tickets"
	TicketMessages  = "ticket_messages"
	Notifications   = "notifications"
	GarageServices  = "services"
	Profiles        = "profiles"
)

// reserved fields are owned by the store and never taken from a request body.
var reserved = []string{"id", "created_at", "updated_at"}

// ListQuery is a page request. Page and Limit are ignored when Limit is zero.
type ListQuery struct {
	ParentID string
	Status   string
	Search   string
	Page     int
	Limit    int
	Oldest   bool
}

type ListResult struct {
	Items []map[string]any
	Total int
	Page  int
	Limit int
}

// DocumentsService stores each resource as JSON documents and publishes a
// change event after every mutation.
type DocumentsService struct {
	repo Repository
	pub  Publisher
	now  func() time.Time
	log  zerolog.Logger
}

func view(d repository.Document) map[string]any {
	out := make(map[string]any, len(d.Body)+3)
	maps.Copy(out, d.Body)
	out["id"] = d.ID
	out["created_at"] = d.CreatedAt
	out["updated_at"] = d.UpdatedAt
	return out
}

func clean(body map[string]any) map[string]any {
	out := make(map[string]any, len(body))
	maps.Copy(out, body)
	for _, k := range reserved {
		delete(out, k)
	}
	return out
}

func (s *DocumentsService) publish(ownerID, collection, resourceID, documentID string, op models.ChangeOp) {
	ev := models.ChangeEvent{Collection: collection, ResourceID: resourceID, DocumentID: documentID, Op: op, At: s.now().UTC()}
	s.pub.Publish(ownerID, ev)
	s.log.Debug().Str("collection", collection).Str("resource", resourceID).Str("op", string(op)).Msg("change published")
}

func (s *DocumentsService) List(ctx context.Context, ownerID, collection string, q ListQuery) (ListResult, error) {
	dq := repository.DocumentQuery{
		OwnerID:    ownerID,
		Collection: collection,
		ParentID:   q.ParentID,
		Search:     q.Search,
		Oldest:     q.Oldest,
	}
	if q.Status != "" {
		dq.Filters = map[string]string{"status": q.Status}
	}
	res := ListResult{Page: q.Page, Limit: q.Limit}
	if q.Limit > 0 {
		if res.Page < 1 {
			res.Page = 1
		}
		dq.Limit, dq.Offset = q.Limit, (res.Page-1)*q.Limit
	}
	docs, total, err := s.repo.ListDocuments(ctx, dq)
	if err != nil {
		return ListResult{}, err
	}
	res.Total = total
	res.Items = make([]map[string]any, 0, len(docs))
	for _, d := range docs {
		res.Items = append(res.Items, view(d))
	}
	return res, nil
}

func (s *DocumentsService) all(ctx context.Context, ownerID, collection, parentID string) ([]repository.Document, error) {
	docs, _, err := s.repo.ListDocuments(ctx, repository.DocumentQuery{OwnerID: ownerID, Collection: collection, ParentID: parentID, Oldest: true})
	return docs, err
}

func (s *DocumentsService) Get(ctx context.Context, ownerID, collection, id string) (map[string]any, error) {
	d, err := s.repo.GetDocument(ctx, ownerID, collection, id)
	if err != nil {
		return nil, err
	}
	return view(d), nil
}

// Create stores body as a new document. Nested documents pass the id of their
// parent, which is also the resource id of the published event.
func (s *DocumentsService) Create(ctx context.Context, ownerID, collection, parentID string, body map[string]any) (map[string]any, error) {
	d, err := s.repo.CreateDocument(ctx, repository.Document{Collection: collection, OwnerID: ownerID, ParentID: parentID, Body: clean(body)})
	if err != nil {
		return nil, err
	}
	resource := d.ID
	if parentID != "" {
		resource = parentID
	}
	s.publish(ownerID, collection, resource, d.ID, models.ChangeInsert)
	return view(d), nil
}

// Update merges patch into the stored body. Fields absent from patch keep
// their values.
func (s *DocumentsService) Update(ctx context.Context, ownerID, collection, id string, patch map[string]any) (map[string]any, error) {
	d, err := s.repo.GetDocument(ctx, ownerID, collection, id)
	if err != nil {
		return nil, err
	}
	maps.Copy(d.Body, clean(patch))
	if d, err = s.repo.UpdateDocument(ctx, d); err != nil {
		return nil, err
	}
	resource := d.ID
	if d.ParentID != "" {
		resource = d.ParentID
	}
	s.publish(ownerID, collection, resource, d.ID, models.ChangeUpdate)
	return view(d), nil
}

func (s *DocumentsService) Delete(ctx context.Context, ownerID, collection, id string) error {
	if err := s.repo.DeleteDocument(ctx, ownerID, collection, id); err != nil {
		return err
	}
	s.publish(ownerID, collection, id, id, models.ChangeDelete)
	return nil
}

// Upsert updates the document with id, creating it when absent.
func (s *DocumentsService) Upsert(ctx context.Context, ownerID, collection, id string, body map[string]any) (map[string]any, error) {
	out, err := s.Update(ctx, ownerID, collection, id, body)
	if !errors.Is(err, repository.ErrNotFound) {
		return out, err
	}
	d, err := s.repo.CreateDocument(ctx, repository.Document{Collection: collection, ID: id, OwnerID: ownerID, Body: clean(body)})
	if err != nil {
		return nil, err
	}
	s.publish(ownerID, collection, id, id, models.ChangeInsert)
	return view(d), nil
}

func str(v any) string {
	s, _ := v.(string)
	return s
}

func num(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	}
	return 0
}

func truthy(v any) bool {
	b, _ := v.(bool)
	return b
}
