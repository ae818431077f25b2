package production

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// EventFilter narrows a scan event query. Nil fields are unconstrained.
// DateTo is exclusive.
type EventFilter struct {
	DateFrom   *time.Time
	DateTo     *time.Time
	StationID  *uuid.UUID
	EmployeeID *uuid.UUID
	ItemIDs    []uuid.UUID
}

// Widen returns a copy of the date range extended by padding on both sides,
// without station, employee or item constraints.
func (f EventFilter) Widen(padding time.Duration) EventFilter {
	out := EventFilter{}
	if f.DateFrom != nil {
		from := f.DateFrom.Add(-padding)
		out.DateFrom = &from
	}
	if f.DateTo != nil {
		to := f.DateTo.Add(padding)
		out.DateTo = &to
	}
	return out
}

// DateRangeOnly returns a copy restricted to the date range
func (f EventFilter) DateRangeOnly() EventFilter {
	return EventFilter{DateFrom: f.DateFrom, DateTo: f.DateTo}
}

// Contains reports whether a start time falls within the date range
func (f EventFilter) Contains(t time.Time) bool {
	if f.DateFrom != nil && t.Before(*f.DateFrom) {
		return false
	}
	if f.DateTo != nil && !t.Before(*f.DateTo) {
		return false
	}
	return true
}

// Hash returns a stable digest of the filter, salted with extra key parts
func (f EventFilter) Hash(parts ...string) string {
	var b strings.Builder
	writeTime := func(label string, t *time.Time) {
		b.WriteString(label)
		if t != nil {
			b.WriteString(t.UTC().Format(time.RFC3339Nano))
		}
		b.WriteByte('|')
	}
	writeID := func(label string, id *uuid.UUID) {
		b.WriteString(label)
		if id != nil {
			b.WriteString(id.String())
		}
		b.WriteByte('|')
	}
	writeTime("from=", f.DateFrom)
	writeTime("to=", f.DateTo)
	writeID("station=", f.StationID)
	writeID("employee=", f.EmployeeID)
	b.WriteString("items=")
	for _, id := range f.ItemIDs {
		b.WriteString(id.String())
		b.WriteByte(',')
	}
	for _, p := range parts {
		fmt.Fprintf(&b, "|%s", p)
	}
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// ItemFilter narrows candidate item queries by the time of their last status change
type ItemFilter struct {
	UpdatedFrom *time.Time
	UpdatedTo   *time.Time
}
