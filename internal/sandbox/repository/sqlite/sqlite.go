package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/GilChiu/AutoSaaz-Garage-Client-sub000/internal/sandbox/repository"
)

type Repository struct {
	db *sql.DB
}

func New(dsn string) (*Repository, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			email TEXT UNIQUE NOT NULL,
			full_name TEXT NOT NULL,
			phone TEXT NOT NULL,
			password_hash BLOB NOT NULL,
			role TEXT NOT NULL,
			verified INTEGER NOT NULL,
			failed_logins INTEGER NOT NULL DEFAULT 0,
			locked_until INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL
		);
		CREATE TABLE IF NOT EXISTS refresh_tokens (
			token TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			expires_at TIMESTAMP NOT NULL,
			created_at TIMESTAMP NOT NULL,
			FOREIGN KEY(user_id) REFERENCES users(id)
		);
		CREATE TABLE IF NOT EXISTS registrations (
			id TEXT PRIMARY KEY,
			email TEXT NOT NULL,
			full_name TEXT NOT NULL,
			phone TEXT NOT NULL,
			password_hash BLOB NOT NULL,
			code TEXT NOT NULL,
			verified INTEGER NOT NULL,
			step TEXT NOT NULL,
			location TEXT NOT NULL,
			expires_at TIMESTAMP NOT NULL,
			created_at TIMESTAMP NOT NULL
		);
		CREATE TABLE IF NOT EXISTS documents (
			collection TEXT NOT NULL,
			id TEXT NOT NULL,
			owner_id TEXT NOT NULL,
			parent_id TEXT NOT NULL,
			body TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL,
			PRIMARY KEY(collection, id)
		);
		CREATE INDEX IF NOT EXISTS documents_owner ON documents(owner_id, collection, parent_id);
		CREATE TABLE IF NOT EXISTS uploads (
			id TEXT PRIMARY KEY,
			owner_id TEXT NOT NULL,
			name TEXT NOT NULL,
			content_type TEXT NOT NULL,
			data BLOB NOT NULL,
			created_at TIMESTAMP NOT NULL
		);
	`); err != nil {
		return nil, err
	}
	return &Repository{db: db}, nil
}

func (r *Repository) Close() error { return r.db.Close() }

func isUnique(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return repository.ErrNotFound
	}
	return err
}

// Users

func (r *Repository) CreateUser(ctx context.Context, u repository.User) (repository.User, error) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	u.CreatedAt = time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `INSERT INTO users(id,email,full_name,phone,password_hash,role,verified,created_at) VALUES(?,?,?,?,?,?,?,?)`,
		u.ID, u.Email, u.FullName, u.Phone, u.PasswordHash, u.Role, u.Verified, u.CreatedAt)
	if isUnique(err) {
		return repository.User{}, repository.ErrDuplicate
	}
	if err != nil {
		return repository.User{}, err
	}
	return u, nil
}

const userColumns = `id,email,full_name,phone,password_hash,role,verified,failed_logins,locked_until,created_at`

func scanUser(row *sql.Row) (repository.User, error) {
	var (
		u      repository.User
		locked int64
	)
	err := row.Scan(&u.ID, &u.Email, &u.FullName, &u.Phone, &u.PasswordHash, &u.Role, &u.Verified, &u.FailedLogins, &locked, &u.CreatedAt)
	if err != nil {
		return repository.User{}, notFound(err)
	}
	if locked > 0 {
		u.LockedUntil = time.Unix(0, locked).UTC()
	}
	return u, nil
}

func (r *Repository) GetUserByEmail(ctx context.Context, email string) (repository.User, error) {
	return scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email))
}

func (r *Repository) GetUser(ctx context.Context, id string) (repository.User, error) {
	return scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
}

// SetLoginState records the failed login counter and lock expiry. A zero
// lockedUntil clears the lock.
func (r *Repository) SetLoginState(ctx context.Context, userID string, failed int, lockedUntil time.Time) error {
	var locked int64
	if !lockedUntil.IsZero() {
		locked = lockedUntil.UnixNano()
	}
	_, err := r.db.ExecContext(ctx, `UPDATE users SET failed_logins = ?, locked_until = ? WHERE id = ?`, failed, locked, userID)
	return err
}

// Refresh tokens

func (r *Repository) CreateRefreshToken(ctx context.Context, userID, token string, expiresAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO refresh_tokens(token, user_id, expires_at, created_at) VALUES(?,?,?,?)`, token, userID, expiresAt, time.Now().UTC())
	return err
}

func (r *Repository) GetRefreshToken(ctx context.Context, token string) (userID string, expiresAt time.Time, err error) {
	row := r.db.QueryRowContext(ctx, `SELECT user_id, expires_at FROM refresh_tokens WHERE token = ?`, token)
	err = notFound(row.Scan(&userID, &expiresAt))
	return
}

func (r *Repository) DeleteRefreshToken(ctx context.Context, token string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE token = ?`, token)
	return err
}

// Registrations

func (r *Repository) SaveRegistration(ctx context.Context, reg repository.Registration) error {
	if reg.CreatedAt.IsZero() {
		reg.CreatedAt = time.Now().UTC()
	}
	loc, err := json.Marshal(reg.Location)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO registrations(id,email,full_name,phone,password_hash,code,verified,step,location,expires_at,created_at)
		VALUES(?,?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT(id) DO UPDATE SET
			code=excluded.code,
			verified=excluded.verified,
			step=excluded.step,
			location=excluded.location,
			expires_at=excluded.expires_at
	`, reg.ID, reg.Email, reg.FullName, reg.Phone, reg.PasswordHash, reg.Code, reg.Verified, reg.Step, string(loc), reg.ExpiresAt, reg.CreatedAt)
	return err
}

func (r *Repository) GetRegistration(ctx context.Context, id string) (repository.Registration, error) {
	row := r.db.QueryRowContext(ctx, `SELECT id,email,full_name,phone,password_hash,code,verified,step,location,expires_at,created_at FROM registrations WHERE id = ?`, id)
	var (
		reg repository.Registration
		loc string
	)
	if err := row.Scan(&reg.ID, &reg.Email, &reg.FullName, &reg.Phone, &reg.PasswordHash, &reg.Code, &reg.Verified, &reg.Step, &loc, &reg.ExpiresAt, &reg.CreatedAt); err != nil {
		return repository.Registration{}, notFound(err)
	}
	if err := json.Unmarshal([]byte(loc), &reg.Location); err != nil {
		return repository.Registration{}, fmt.Errorf("registration %s: %w", id, err)
	}
	return reg, nil
}

// DeleteRegistrations removes the registration with id and any other
// registration for the same email.
func (r *Repository) DeleteRegistrations(ctx context.Context, id, email string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM registrations WHERE id = ? OR email = ?`, id, email)
	return err
}

// Documents

func (r *Repository) CreateDocument(ctx context.Context, d repository.Document) (repository.Document, error) {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	d.CreatedAt, d.UpdatedAt = now, now
	body, err := json.Marshal(d.Body)
	if err != nil {
		return repository.Document{}, err
	}
	_, err = r.db.ExecContext(ctx, `INSERT INTO documents(collection,id,owner_id,parent_id,body,created_at,updated_at) VALUES(?,?,?,?,?,?,?)`,
		d.Collection, d.ID, d.OwnerID, d.ParentID, string(body), d.CreatedAt, d.UpdatedAt)
	if isUnique(err) {
		return repository.Document{}, repository.ErrDuplicate
	}
	if err != nil {
		return repository.Document{}, err
	}
	return d, nil
}

// UpdateDocument replaces the body of an existing document.
func (r *Repository) UpdateDocument(ctx context.Context, d repository.Document) (repository.Document, error) {
	body, err := json.Marshal(d.Body)
	if err != nil {
		return repository.Document{}, err
	}
	d.UpdatedAt = time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `UPDATE documents SET body = ?, updated_at = ? WHERE collection = ? AND id = ? AND owner_id = ?`,
		string(body), d.UpdatedAt, d.Collection, d.ID, d.OwnerID)
	if err != nil {
		return repository.Document{}, err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return repository.Document{}, repository.ErrNotFound
	}
	return d, nil
}

const documentColumns = `collection,id,owner_id,parent_id,body,created_at,updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(s scanner) (repository.Document, error) {
	var (
		d    repository.Document
		body string
	)
	if err := s.Scan(&d.Collection, &d.ID, &d.OwnerID, &d.ParentID, &body, &d.CreatedAt, &d.UpdatedAt); err != nil {
		return repository.Document{}, notFound(err)
	}
	if err := json.Unmarshal([]byte(body), &d.Body); err != nil {
		return repository.Document{}, fmt.Errorf("document %s/%s: %w", d.Collection, d.ID, err)
	}
	return d, nil
}

func (r *Repository) GetDocument(ctx context.Context, ownerID, collection, id string) (repository.Document, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+documentColumns+` FROM documents WHERE collection = ? AND id = ? AND owner_id = ?`, collection, id, ownerID)
	return scanDocument(row)
}

// ListDocuments returns one page of matches and the total number of matches.
func (r *Repository) ListDocuments(ctx context.Context, q repository.DocumentQuery) ([]repository.Document, int, error) {
	where := []string{"collection = ?", "owner_id = ?"}
	args := []any{q.Collection, q.OwnerID}
	if q.ParentID != "" {
		where = append(where, "parent_id = ?")
		args = append(args, q.ParentID)
	}
	for field, v := range q.Filters {
		where = append(where, "json_extract(body, ?) = ?")
		args = append(args, "$."+field, v)
	}
	if q.Search != "" {
		where = append(where, "lower(body) LIKE ?")
		args = append(args, "%"+strings.ToLower(q.Search)+"%")
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	order := "DESC"
	if q.Oldest {
		order = "ASC"
	}
	query := `SELECT ` + documentColumns + ` FROM documents WHERE ` + cond + ` ORDER BY created_at ` + order + `, rowid ` + order
	if q.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, q.Limit, q.Offset)
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []repository.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, d)
	}
	return out, total, rows.Err()
}

func (r *Repository) DeleteDocument(ctx context.Context, ownerID, collection, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM documents WHERE collection = ? AND id = ? AND owner_id = ?`, collection, id, ownerID)
	if err != nil {
		return err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// Uploads

func (r *Repository) CreateUpload(ctx context.Context, u repository.Upload) (repository.Upload, error) {
	u.ID = uuid.NewString()
	u.CreatedAt = time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `INSERT INTO uploads(id,owner_id,name,content_type,data,created_at) VALUES(?,?,?,?,?,?)`,
		u.ID, u.OwnerID, u.Name, u.ContentType, u.Data, u.CreatedAt)
	if err != nil {
		return repository.Upload{}, err
	}
	return u, nil
}

func (r *Repository) GetUpload(ctx context.Context, id string) (repository.Upload, error) {
	row := r.db.QueryRowContext(ctx, `SELECT id,owner_id,name,content_type,data,created_at FROM uploads WHERE id = ?`, id)
	var u repository.Upload
	if err := row.Scan(&u.ID, &u.OwnerID, &u.Name, &u.ContentType, &u.Data, &u.CreatedAt); err != nil {
		return repository.Upload{}, notFound(err)
	}
	return u, nil
}
