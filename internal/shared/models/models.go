package models

import (
	"encoding/json"
	"time"
)

// Envelope is the response shape every backend endpoint returns.
type Envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
	Errors  []FieldError    `json:"errors,omitempty"`
}

// FieldError is one entry of a 400 validation errors array.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Page is the paginated list shape. Items holds the raw array found under the
// "<resource>s" key of data.
type Page struct {
	Items json.RawMessage `json:"-"`
	Total int             `json:"total"`
	Page  int             `json:"page"`
	Limit int             `json:"limit"`
}

type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name,omitempty"`
	Phone     string    `json:"phone_number,omitempty"`
	Role      string    `json:"role,omitempty"`
	Verified  bool      `json:"is_verified"`
	CreatedAt time.Time `json:"created_at"`
}

type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	User         *User  `json:"user,omitempty"`
}

// RegistrationStep is returned by every registration step call.
type RegistrationStep struct {
	SessionID            string         `json:"session_id"`
	ExpiresAt            time.Time      `json:"expires_at"`
	NextStep             string         `json:"next_step"`
	RequiresVerification bool           `json:"requires_verification"`
	Tokens               *TokenResponse `json:"tokens,omitempty"`
}

type ChangeOp string

const (
	ChangeInsert ChangeOp = "INSERT"
	ChangeUpdate ChangeOp = "UPDATE"
	ChangeDelete ChangeOp = "DELETE"
)

// ChangeEvent is published on the realtime change feed after a mutation.
// ResourceID is the id subscribers register for: a document id, or the parent
// id for nested collections (conversation id for chat messages).
type ChangeEvent struct {
	Collection string    `json:"collection"`
	ResourceID string    `json:"resource_id"`
	DocumentID string    `json:"document_id"`
	Op         ChangeOp  `json:"op"`
	At         time.Time `json:"at"`
}
