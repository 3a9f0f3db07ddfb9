package garage

import (
	"context"
	"strconv"

	"github.com/GilChiu/AutoSaaz-Garage-Client-sub000/internal/client/realtime"
	"github.com/GilChiu/AutoSaaz-Garage-Client-sub000/internal/shared/models"
)

// NotificationsResource is the resource id notification watchers subscribe
// to.
const NotificationsResource = "notifications"

// WatchConversation calls onMessages with the conversation's messages each
// time it changes. Cached chat pages are dropped before the refetch so no
// later read serves pre-event data.
func (s *Service) WatchConversation(ctx context.Context, sub realtime.Subscriber, conversationID string, onMessages func([]Message, error)) func() {
	id := NormalizeID(conversationID)
	return sub.Subscribe(ctx, id, func(ev models.ChangeEvent) {
		s.cache.InvalidatePattern(ctx, conversationsPath)
		msgs, err := s.ListMessages(ctx, id, Fresh())
		if err != nil && ctx.Err() != nil {
			return
		}
		onMessages(msgs, err)
	})
}

// WatchNotifications calls onUnread with the unread count after every
// notification change.
func (s *Service) WatchNotifications(ctx context.Context, sub realtime.Subscriber, onUnread func(int, error)) func() {
	return sub.Subscribe(ctx, NotificationsResource, func(ev models.ChangeEvent) {
		s.cache.InvalidatePattern(ctx, notificationsPath)
		n, err := s.UnreadCount(ctx, Fresh())
		if err != nil && ctx.Err() != nil {
			return
		}
		onUnread(n, err)
	})
}

// ConversationProbe is the polling fingerprint for a conversation: message
// count and newest message id. It reads fresh and rewrites the cache.
func (s *Service) ConversationProbe(ctx context.Context, conversationID string) (string, error) {
	msgs, err := s.ListMessages(ctx, conversationID, Fresh())
	if err != nil {
		return "", err
	}
	fp := strconv.Itoa(len(msgs))
	if len(msgs) > 0 {
		fp += ":" + msgs[len(msgs)-1].ID
	}
	return fp, nil
}

// NotificationProbe fingerprints the unread count.
func (s *Service) NotificationProbe(ctx context.Context, _ string) (string, error) {
	n, err := s.UnreadCount(ctx, Fresh())
	if err != nil {
		return "", err
	}
	return strconv.Itoa(n), nil
}
