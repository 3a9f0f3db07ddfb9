package garage

import (
	"context"
	"net/http"
	"time"

	"github.com/GilChiu/AutoSaaz-Garage-Client-sub000/internal/client/api"
	"github.com/GilChiu/AutoSaaz-Garage-Client-sub000/internal/client/cache"
)

const conversationsPath = "/chat/conversations"

type conversationRecord struct {
	ID            string     `json:"id"`
	BookingID     string     `json:"booking_id"`
	CustomerID    string     `json:"customer_id"`
	CustomerName  string     `json:"customer_name"`
	Subject       string     `json:"subject"`
	LastMessage   string     `json:"last_message"`
	LastMessageAt *time.Time `json:"last_message_at"`
	UnreadCount   int        `json:"unread_count"`
	CreatedAt     time.Time  `json:"created_at"`
}

type Conversation struct {
	ID            string    `json:"id"`
	BookingID     string    `json:"bookingId"`
	CustomerID    string    `json:"customerId"`
	CustomerName  string    `json:"customerName"`
	Subject       string    `json:"subject"`
	LastMessage   string    `json:"lastMessage"`
	LastMessageAt time.Time `json:"lastMessageAt"`
	Unread        int       `json:"unread"`
	CreatedAt     time.Time `json:"createdAt"`
}

func mapConversation(r conversationRecord) Conversation {
	c := Conversation{
		ID:           r.ID,
		BookingID:    r.BookingID,
		CustomerID:   r.CustomerID,
		CustomerName: or(r.CustomerName, "Customer"),
		Subject:      r.Subject,
		LastMessage:  r.LastMessage,
		Unread:       max(r.UnreadCount, 0),
		CreatedAt:    r.CreatedAt,
	}
	if r.LastMessageAt != nil {
		c.LastMessageAt = *r.LastMessageAt
	} else {
		c.LastMessageAt = r.CreatedAt
	}
	return c
}

type messageRecord struct {
	ID             string     `json:"id"`
	ConversationID string     `json:"conversation_id"`
	SenderID       string     `json:"sender_id"`
	SenderRole     string     `json:"sender_role"`
	Content        string     `json:"content"`
	AttachmentURL  string     `json:"attachment_url"`
	ReadAt         *time.Time `json:"read_at"`
	CreatedAt      time.Time  `json:"created_at"`
}

// Message references its conversation by id only.
type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversationId"`
	SenderID       string    `json:"senderId"`
	FromGarage     bool      `json:"fromGarage"`
	Content        string    `json:"content"`
	AttachmentURL  string    `json:"attachmentUrl"`
	Read           bool      `json:"read"`
	CreatedAt      time.Time `json:"createdAt"`
}

func mapMessage(r messageRecord) Message {
	return Message{
		ID:             r.ID,
		ConversationID: r.ConversationID,
		SenderID:       r.SenderID,
		FromGarage:     r.SenderRole == "garage",
		Content:        r.Content,
		AttachmentURL:  r.AttachmentURL,
		Read:           r.ReadAt != nil,
		CreatedAt:      r.CreatedAt,
	}
}

type ConversationInput struct {
	CustomerID string `json:"customer_id" validate:"required"`
	BookingID  string `json:"booking_id,omitempty"`
	Subject    string `json:"subject,omitempty" validate:"max=200"`
}

type MessageInput struct {
	Content       string `json:"content" validate:"required_without=AttachmentURL,max=4000"`
	AttachmentURL string `json:"attachment_url,omitempty" validate:"omitempty,url"`
}

var chatFamilies = []string{conversationsPath}

func (s *Service) ListConversations(ctx context.Context, opts ...ReadOption) ([]Conversation, error) {
	req := cache.Request{Resource: cache.ResourceChats, Endpoint: conversationsPath}
	page, err := read(ctx, s, req, fetchList(s, api.Get(conversationsPath, nil), "conversations", mapConversation), opts)
	return page.Items, err
}

func (s *Service) GetConversation(ctx context.Context, id string, opts ...ReadOption) (Conversation, error) {
	path, err := idPath(conversationsPath, id)
	if err != nil {
		return Conversation{}, err
	}
	return read(ctx, s, detail(cache.ResourceChats, path), fetchOne(s, api.Get(path, nil), mapConversation), opts)
}

func (s *Service) CreateConversation(ctx context.Context, in ConversationInput) (Conversation, error) {
	in.BookingID = NormalizeID(in.BookingID)
	if err := s.check(in); err != nil {
		return Conversation{}, err
	}
	req := api.Request{Method: http.MethodPost, Path: conversationsPath, Body: in}
	return writeOne(ctx, s, req, mapConversation, chatFamilies)
}

func (s *Service) ListMessages(ctx context.Context, conversationID string, opts ...ReadOption) ([]Message, error) {
	path, err := idPath(conversationsPath, conversationID, "messages")
	if err != nil {
		return nil, err
	}
	req := cache.Request{Resource: cache.ResourceMessages, Endpoint: path}
	page, err := read(ctx, s, req, fetchList(s, api.Get(path, nil), "messages", mapMessage), opts)
	return page.Items, err
}

// SendMessage drops every cached chat page: the conversation list shows the
// last message too.
func (s *Service) SendMessage(ctx context.Context, conversationID string, in MessageInput) (Message, error) {
	if err := s.check(in); err != nil {
		return Message{}, err
	}
	path, err := idPath(conversationsPath, conversationID, "messages")
	if err != nil {
		return Message{}, err
	}
	req := api.Request{Method: http.MethodPost, Path: path, Body: in}
	return writeOne(ctx, s, req, mapMessage, chatFamilies)
}

func (s *Service) MarkConversationRead(ctx context.Context, conversationID string) error {
	path, err := idPath(conversationsPath, conversationID, "read")
	if err != nil {
		return err
	}
	_, err = s.write(ctx, api.Request{Method: http.MethodPost, Path: path}, chatFamilies)
	return err
}
