package garage

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestMapBookingStatus(t *testing.T) {
	cases := map[string]BookingStatus{
		"pending":     BookingPending,
		"new":         BookingPending,
		"confirmed":   BookingConfirmed,
		"accepted":    BookingConfirmed,
		"in-progress": BookingInProgress,
		"in_progress": BookingInProgress,
		"completed":   BookingCompleted,
		"COMPLETED":   BookingCompleted,
		"cancelled":   BookingCancelled,
		"canceled":    BookingCancelled,
		"rejected":    BookingCancelled,
		"teleported":  BookingInProgress,
		"":            BookingInProgress,
	}
	for in, want := range cases {
		assert.Equal(t, want, MapBookingStatus(in), in)
	}
	for _, s := range BookingStatuses {
		assert.Equal(t, s, MapBookingStatus(BookingStatusToAPI(s)), "round trip %s", s)
	}
}

func TestMapInspectionStatus(t *testing.T) {
	cases := map[string]InspectionStatus{
		"pending":     InspectionPending,
		"scheduled":   InspectionPending,
		"in_progress": InspectionInProgress,
		"in-progress": InspectionInProgress,
		"completed":   InspectionCompleted,
		"cancelled":   InspectionCancelled,
		"canceled":    InspectionCancelled,
		"on_hold":     InspectionPending,
	}
	for in, want := range cases {
		assert.Equal(t, want, MapInspectionStatus(in), in)
	}
	for _, s := range InspectionStatuses {
		assert.Equal(t, s, MapInspectionStatus(InspectionStatusToAPI(s)), "round trip %s", s)
	}
}

func TestMapDisputeStatus(t *testing.T) {
	cases := map[string]DisputeStatus{
		"open":         DisputeOpen,
		"pending":      DisputeOpen,
		"under_review": DisputeInReview,
		"in_review":    DisputeInReview,
		"escalated":    DisputeInReview,
		"resolved":     DisputeResolved,
		"closed":       DisputeClosed,
		"archived":     DisputeOpen,
	}
	for in, want := range cases {
		assert.Equal(t, want, MapDisputeStatus(in), in)
	}
	for _, s := range DisputeStatuses {
		assert.Equal(t, s, MapDisputeStatus(DisputeStatusToAPI(s)), "round trip %s", s)
	}
}

func TestMapper_WarnsOnUnknownStatus(t *testing.T) {
	var buf bytes.Buffer
	m := mapper{log: zerolog.New(&buf)}

	b := m.booking(bookingRecord{ID: "b1", Status: "teleported"})
	assert.Equal(t, BookingInProgress, b.Status)
	assert.Contains(t, buf.String(), `"status":"teleported"`)
	assert.Contains(t, buf.String(), `"level":"warn"`)

	buf.Reset()
	m.booking(bookingRecord{ID: "b2", Status: "completed"})
	m.inspection(inspectionRecord{ID: "i1"})
	assert.Empty(t, buf.String(), "known and missing statuses are not warned about")
}

func TestBookingMapperDefaults(t *testing.T) {
	b := mapper{log: zerolog.Nop()}.booking(bookingRecord{ID: "3f2a9c1e-77aa-4bcd-9e01-1234567890ab"})
	assert.Equal(t, "#3F2A9C1E", b.Number)
	assert.Equal(t, "Unknown customer", b.CustomerName)
	assert.Equal(t, "Unknown vehicle", b.Vehicle)
	assert.Equal(t, "General service", b.Service)
	assert.True(t, b.ScheduledAt.IsZero())
}

func TestNormalizeID(t *testing.T) {
	for in, want := range map[string]string{
		"#BK-1042":  "BK-1042",
		"BK-1042":   "BK-1042",
		" #BK-1042": "BK-1042",
		"##7":       "7",
		"# 7":       "7",
		"":          "",
	} {
		assert.Equal(t, want, NormalizeID(in), in)
	}
}
