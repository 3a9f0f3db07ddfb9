package repository

import "time"

type User struct {
	ID           string
	Email        string
	FullName     string
	Phone        string
	PasswordHash []byte
	Role         string
	Verified     bool
	FailedLogins int
	LockedUntil  time.Time
	CreatedAt    time.Time
}

// Registration is a garage sign-up in progress. It becomes a User when the
// last step is submitted.
type Registration struct {
	ID           string
	Email        string
	FullName     string
	Phone        string
	PasswordHash []byte
	Code         string
	Verified     bool
	Step         string
	Location     map[string]any
	ExpiresAt    time.Time
	CreatedAt    time.Time
}

// Document is one JSON record of a collection. Nested records such as chat
// messages carry the id of their parent.
type Document struct {
	Collection string
	ID         string
	OwnerID    string
	ParentID   string
	Body       map[string]any
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// DocumentQuery selects documents of one owner and collection. Filters match
// top-level body fields exactly; Search matches anywhere in the body. A zero
// Limit returns every match.
type DocumentQuery struct {
	OwnerID    string
	Collection string
	ParentID   string
	Filters    map[string]string
	Search     string
	Offset     int
	Limit      int
	Oldest     bool
}

type Upload struct {
	ID          string
	OwnerID     string
	Name        string
	ContentType string
	Data        []byte
	CreatedAt   time.Time
}
