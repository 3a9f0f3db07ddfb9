package garage

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/GilChiu/AutoSaaz-Garage-Client-sub000/internal/client/api"
	"github.com/GilChiu/AutoSaaz-Garage-Client-sub000/internal/client/retry"
)

var (
	ErrMissingID   = errors.New("missing resource id")
	ErrNotSignedIn = errors.New("not signed in")
)

// ValidationError is returned before any request when local input checks
// fail.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string { return "invalid input: " + e.Err.Error() }

func (e *ValidationError) Unwrap() error { return e.Err }

// Fields lists the failing fields as "field: rule" pairs.
func (e *ValidationError) Fields() []string {
	var ve validator.ValidationErrors
	if !errors.As(e.Err, &ve) {
		return nil
	}
	out := make([]string, 0, len(ve))
	for _, fe := range ve {
		out = append(out, fmt.Sprintf("%s: %s", strings.ToLower(fe.Field()), fe.Tag()))
	}
	return out
}

// UserMessage turns an error into the text shown to the user. It returns ""
// for cancellations, which callers drop silently.
func UserMessage(err error) string {
	if err == nil || api.IsCanceled(err) {
		return ""
	}

	var ve *ValidationError
	if errors.As(err, &ve) {
		if f := ve.Fields(); len(f) > 0 {
			return "Please check: " + strings.Join(f, ", ")
		}
		return ve.Error()
	}
	if errors.Is(err, ErrNotSignedIn) {
		return "You are not signed in. Run 'garagectl auth login'."
	}
	if errors.Is(err, ErrMissingID) {
		return "An id is required."
	}

	var ae *api.Error
	if !errors.As(err, &ae) {
		if retry.IsRetryable(err) {
			return "Cannot reach the server. Check your connection and try again."
		}
		return err.Error()
	}

	msg := ae.Message
	switch {
	case ae.Status >= 500 || (msg == "" && retry.IsRetryable(err)):
		return "The service is unavailable right now. Please try again later."
	case ae.Status == http.StatusUnauthorized:
		return or(msg, "Your session has expired. Please sign in again.")
	case ae.Status == http.StatusForbidden:
		return or(msg, "You do not have permission to do that.")
	case ae.Status == http.StatusNotFound:
		return or(msg, "Not found.")
	case ae.Status == http.StatusConflict:
		return or(msg, "This conflicts with an existing record.")
	case ae.Status == http.StatusLocked:
		return or(msg, "This account is locked. Try again later or contact support.")
	case ae.Status == http.StatusBadRequest:
		if len(ae.Fields) > 0 {
			parts := make([]string, 0, len(ae.Fields))
			for _, f := range ae.Fields {
				parts = append(parts, f.Field+": "+f.Message)
			}
			return or(msg, "Validation failed") + " (" + strings.Join(parts, "; ") + ")"
		}
		return or(msg, "The request was invalid.")
	}
	return or(msg, http.StatusText(ae.Status))
}

func or(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
