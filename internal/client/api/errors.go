package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/GilChiu/AutoSaaz-Garage-Client-sub000/internal/shared/models"
)

// ErrCanceled matches every *CanceledError through errors.Is.
var ErrCanceled = errors.New("request canceled")

// Error is a non-success response. It keeps the status and the backend's
// own message and field errors so callers can classify and display them
// exactly as sent.
type Error struct {
	Status  int
	Message string
	Fields  []models.FieldError
	Body    string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api: %d %s", e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("api: %d %s", e.Status, e.Message)
}

func (e *Error) HTTPStatus() int { return e.Status }

func (e *Error) RawBody() string { return e.Body }

// CanceledError is returned when the caller's context was canceled while the
// request was in flight. It is never retried, cached or shown to the user.
type CanceledError struct {
	Method string
	Path   string
	Err    error
}

func (e *CanceledError) Error() string {
	return fmt.Sprintf("api: %s %s canceled", e.Method, e.Path)
}

func (e *CanceledError) Unwrap() error { return e.Err }

func (e *CanceledError) Is(target error) bool {
	return target == ErrCanceled || target == context.Canceled
}

// IsCanceled reports whether err comes from a canceled request, so calling
// code can swallow it.
func IsCanceled(err error) bool {
	return errors.Is(err, ErrCanceled) || errors.Is(err, context.Canceled)
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Status
	}
	return 0
}

// canceled converts err into a *CanceledError when ctx was canceled.
// Deadlines are left alone: they are timeouts, not supersession.
func canceled(ctx context.Context, method, path string, err error) error {
	if err == nil || !errors.Is(ctx.Err(), context.Canceled) {
		return err
	}
	var ce *CanceledError
	if errors.As(err, &ce) {
		return err
	}
	return &CanceledError{Method: method, Path: path, Err: context.Canceled}
}

// Canceled is canceled for callers outside the package, such as the retry
// loop ending in a canceled backoff sleep.
func Canceled(ctx context.Context, path string, err error) error {
	return canceled(ctx, http.MethodGet, path, err)
}
