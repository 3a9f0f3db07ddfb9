package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sort"

	"github.com/go-playground/validator/v10"

	"github.com/GilChiu/AutoSaaz-Garage-Client-sub000/internal/sandbox/repository"
	"github.com/GilChiu/AutoSaaz-Garage-Client-sub000/internal/sandbox/service"
	"github.com/GilChiu/AutoSaaz-Garage-Client-sub000/internal/shared/models"
)

type envelope struct {
	Success bool                `json:"success"`
	Message string              `json:"message"`
	Data    any                 `json:"data,omitempty"`
	Errors  []models.FieldError `json:"errors,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeData(w http.ResponseWriter, status int, message string, data any) {
	writeJSON(w, status, envelope{Success: true, Message: message, Data: data})
}

func writeError(w http.ResponseWriter, status int, message string, fields ...models.FieldError) {
	writeJSON(w, status, envelope{Message: message, Errors: fields})
}

var errPayloadTooLarge = errors.New("payload too large")

// fail maps a service or repository error to its response. Anything
// unrecognized is a logged 500.
func (r *Router) fail(w http.ResponseWriter, req *http.Request, err error) {
	var se *service.Error
	var verrs validator.ValidationErrors
	switch {
	case errors.As(err, &se):
		writeError(w, se.Status, se.Message)
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "Not found")
	case errors.Is(err, repository.ErrDuplicate):
		writeError(w, http.StatusConflict, "Already exists")
	case errors.Is(err, errPayloadTooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, "Request entity too large")
	case errors.As(err, &verrs):
		fields := make([]models.FieldError, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, models.FieldError{Field: fe.Field(), Message: "failed on " + fe.Tag()})
		}
		writeError(w, http.StatusBadRequest, "Validation failed", fields...)
	default:
		r.logger.Error().Err(err).Str("path", req.URL.Path).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

// decode reads a JSON body into v, answering 400 or 413 itself when it
// cannot. Struct targets are validated.
func (r *Router) decode(w http.ResponseWriter, req *http.Request, v any) bool {
	if r.maxRequestBytes > 0 {
		req.Body = http.MaxBytesReader(w, req.Body, r.maxRequestBytes)
	}
	if err := json.NewDecoder(req.Body).Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			r.fail(w, req, errPayloadTooLarge)
		case errors.Is(err, io.EOF):
			writeError(w, http.StatusBadRequest, "Empty body")
		default:
			writeError(w, http.StatusBadRequest, "Invalid JSON")
		}
		return false
	}
	if _, isMap := v.(*map[string]any); isMap {
		return true
	}
	if err := r.validate.Struct(v); err != nil {
		r.fail(w, req, err)
		return false
	}
	return true
}

// checkMap validates body against per-field rules and answers 400 with one
// field error per failed field. A partial check skips rules for fields the
// body does not carry.
func (r *Router) checkMap(w http.ResponseWriter, body map[string]any, rules map[string]any, partial bool) bool {
	if partial {
		present := make(map[string]any, len(rules))
		for field, rule := range rules {
			if _, ok := body[field]; ok {
				present[field] = rule
			}
		}
		rules = present
	}
	errs := r.validate.ValidateMap(body, rules)
	if len(errs) == 0 {
		return true
	}
	fields := make([]models.FieldError, 0, len(errs))
	for field, err := range errs {
		msg := "is invalid"
		var verrs validator.ValidationErrors
		if e, ok := err.(error); ok && errors.As(e, &verrs) && len(verrs) > 0 {
			msg = "failed on " + verrs[0].Tag()
		}
		fields = append(fields, models.FieldError{Field: field, Message: msg})
	}
	sort.Slice(fields, func(i, j int) bool { return fields[i].Field < fields[j].Field })
	writeError(w, http.StatusBadRequest, "Validation failed", fields...)
	return false
}
