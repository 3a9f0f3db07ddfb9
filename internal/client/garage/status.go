package garage

import (
	"strings"

	"github.com/rs/zerolog"
)

type BookingStatus string

const (
	BookingPending    BookingStatus = "pending"
	BookingConfirmed  BookingStatus = "confirmed"
	BookingInProgress BookingStatus = "in_progress"
	BookingCompleted  BookingStatus = "completed"
	BookingCancelled  BookingStatus = "cancelled"
)

// BookingStatuses lists the UI statuses in display order.
var BookingStatuses = []BookingStatus{BookingPending, BookingConfirmed, BookingInProgress, BookingCompleted, BookingCancelled}

var bookingFromAPI = map[string]BookingStatus{
	"pending":     BookingPending,
	"new":         BookingPending,
	"confirmed":   BookingConfirmed,
	"accepted":    BookingConfirmed,
	"in-progress": BookingInProgress,
	"in_progress": BookingInProgress,
	"completed":   BookingCompleted,
	"cancelled":   BookingCancelled,
	"canceled":    BookingCancelled,
	"rejected":    BookingCancelled,
}

var bookingToAPI = map[BookingStatus]string{
	BookingPending:    "pending",
	BookingConfirmed:  "confirmed",
	BookingInProgress: "in-progress",
	BookingCompleted:  "completed",
	BookingCancelled:  "cancelled",
}

type InspectionStatus string

const (
	InspectionPending    InspectionStatus = "pending"
	InspectionInProgress InspectionStatus = "in_progress"
	InspectionCompleted  InspectionStatus = "completed"
	InspectionCancelled  InspectionStatus = "cancelled"
)

var InspectionStatuses = []InspectionStatus{InspectionPending, InspectionInProgress, InspectionCompleted, InspectionCancelled}

var inspectionFromAPI = map[string]InspectionStatus{
	"pending":     InspectionPending,
	"scheduled":   InspectionPending,
	"in_progress": InspectionInProgress,
	"in-progress": InspectionInProgress,
	"completed":   InspectionCompleted,
	"cancelled":   InspectionCancelled,
	"canceled":    InspectionCancelled,
}

var inspectionToAPI = map[InspectionStatus]string{
	InspectionPending:    "pending",
	InspectionInProgress: "in_progress",
	InspectionCompleted:  "completed",
	InspectionCancelled:  "cancelled",
}

type DisputeStatus string

const (
	DisputeOpen     DisputeStatus = "open"
	DisputeInReview DisputeStatus = "in_review"
	DisputeResolved DisputeStatus = "resolved"
	DisputeClosed   DisputeStatus = "closed"
)

var DisputeStatuses = []DisputeStatus{DisputeOpen, DisputeInReview, DisputeResolved, DisputeClosed}

var disputeFromAPI = map[string]DisputeStatus{
	"open":         DisputeOpen,
	"pending":      DisputeOpen,
	"under_review": DisputeInReview,
	"in_review":    DisputeInReview,
	"escalated":    DisputeInReview,
	"resolved":     DisputeResolved,
	"closed":       DisputeClosed,
}

var disputeToAPI = map[DisputeStatus]string{
	DisputeOpen:     "open",
	DisputeInReview: "under_review",
	DisputeResolved: "resolved",
	DisputeClosed:   "closed",
}

func lookupStatus[S ~string](table map[string]S, raw string) (S, bool) {
	s, ok := table[strings.ToLower(strings.TrimSpace(raw))]
	return s, ok
}

// MapBookingStatus maps a backend status to its UI status. Unknown values
// fall back to in_progress.
func MapBookingStatus(raw string) BookingStatus {
	if s, ok := lookupStatus(bookingFromAPI, raw); ok {
		return s
	}
	return BookingInProgress
}

// BookingStatusToAPI is the inverse of MapBookingStatus for known statuses.
func BookingStatusToAPI(s BookingStatus) string {
	if v, ok := bookingToAPI[s]; ok {
		return v
	}
	return string(s)
}

// MapInspectionStatus falls back to pending for unknown values.
func MapInspectionStatus(raw string) InspectionStatus {
	if s, ok := lookupStatus(inspectionFromAPI, raw); ok {
		return s
	}
	return InspectionPending
}

func InspectionStatusToAPI(s InspectionStatus) string {
	if v, ok := inspectionToAPI[s]; ok {
		return v
	}
	return string(s)
}

// MapDisputeStatus falls back to open for unknown values.
func MapDisputeStatus(raw string) DisputeStatus {
	if s, ok := lookupStatus(disputeFromAPI, raw); ok {
		return s
	}
	return DisputeOpen
}

func DisputeStatusToAPI(s DisputeStatus) string {
	if v, ok := disputeToAPI[s]; ok {
		return v
	}
	return string(s)
}

// mapper holds the record mappers. They are pure apart from a warning for
// status values the client does not recognise, which usually means the
// backend contract moved.
type mapper struct {
	log zerolog.Logger
}

func (m mapper) unknown(kind, raw string, table func(string) bool) {
	if raw != "" && !table(raw) {
		m.log.Warn().Str("kind", kind).Str("status", raw).Msg("unrecognized status, using fallback")
	}
}

func (m mapper) bookingStatus(raw string) BookingStatus {
	m.unknown("booking", raw, func(r string) bool { _, ok := lookupStatus(bookingFromAPI, r); return ok })
	return MapBookingStatus(raw)
}

func (m mapper) inspectionStatus(raw string) InspectionStatus {
	m.unknown("inspection", raw, func(r string) bool { _, ok := lookupStatus(inspectionFromAPI, r); return ok })
	return MapInspectionStatus(raw)
}

func (m mapper) disputeStatus(raw string) DisputeStatus {
	m.unknown("dispute", raw, func(r string) bool { _, ok := lookupStatus(disputeFromAPI, r); return ok })
	return MapDisputeStatus(raw)
}
