package garage

import (
	"context"
	"net/http"
	"time"

	"github.com/GilChiu/AutoSaaz-Garage-Client-sub000/internal/client/api"
	"github.com/GilChiu/AutoSaaz-Garage-Client-sub000/internal/client/cache"
)

const notificationsPath = "/notifications"

type notificationRecord struct {
	ID        string     `json:"id"`
	Type      string     `json:"type"`
	Title     string     `json:"title"`
	Body      string     `json:"body"`
	Link      string     `json:"link"`
	ReadAt    *time.Time `json:"read_at"`
	IsRead    bool       `json:"is_read"`
	CreatedAt time.Time  `json:"created_at"`
}

type Notification struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Link      string    `json:"link"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"createdAt"`
}

func mapNotification(r notificationRecord) Notification {
	return Notification{
		ID:        r.ID,
		Type:      or(r.Type, "system"),
		Title:     or(r.Title, "Notification"),
		Body:      r.Body,
		Link:      r.Link,
		Read:      r.IsRead || r.ReadAt != nil,
		CreatedAt: r.CreatedAt,
	}
}

type unreadRecord struct {
	Count int `json:"count"`
}

var notificationFamilies = []string{notificationsPath, dashboardPath}

func (s *Service) ListNotifications(ctx context.Context, p ListParams, opts ...ReadOption) ([]Notification, error) {
	params := p.cacheParams()
	req := cache.Request{Resource: cache.ResourceNotifications, Endpoint: notificationsPath, Params: params}
	page, err := read(ctx, s, req, fetchList(s, withParams(notificationsPath, params), "notifications", mapNotification), opts)
	return page.Items, err
}

func (s *Service) UnreadCount(ctx context.Context, opts ...ReadOption) (int, error) {
	path := notificationsPath + "/unread-count"
	req := cache.Request{Resource: cache.ResourceNotifications, Endpoint: path}
	return read(ctx, s, req, fetchOne(s, api.Get(path, nil), func(r unreadRecord) int { return max(r.Count, 0) }), opts)
}

func (s *Service) MarkNotificationRead(ctx context.Context, id string) error {
	path, err := idPath(notificationsPath, id, "read")
	if err != nil {
		return err
	}
	_, err = s.write(ctx, api.Request{Method: http.MethodPatch, Path: path}, notificationFamilies)
	return err
}

func (s *Service) MarkAllNotificationsRead(ctx context.Context) error {
	req := api.Request{Method: http.MethodPatch, Path: notificationsPath + "/read-all"}
	_, err := s.write(ctx, req, notificationFamilies)
	return err
}
