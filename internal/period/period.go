// Package period resolves an analysis type into the current date range and
// the comparable range immediately before it.
package period

import (
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/expense-tracker/internal/domain"
)

// Kind is the analysis window type.
type Kind string

const (
	Weekly  Kind = "weekly"
	Monthly Kind = "monthly"
	Yearly  Kind = "yearly"
	Custom  Kind = "custom"
)

// ParseKind accepts a kind token; the empty string means monthly.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case "":
		return Monthly, nil
	case Weekly, Monthly, Yearly, Custom:
		return k, nil
	}
	return "", &domain.ValidationError{Field: "analysis_type", Msg: fmt.Sprintf("unknown analysis type %q", s)}
}

// Range is a closed interval of calendar dates.
type Range struct {
	Start civil.Date `json:"start"`
	End   civil.Date `json:"end"`
}

// Days is the number of dates in the range, both ends included.
func (r Range) Days() int {
	return r.End.DaysSince(r.Start) + 1
}

// Contains reports whether d falls within the range.
func (r Range) Contains(d civil.Date) bool {
	return !d.Before(r.Start) && !d.After(r.End)
}

func (r Range) String() string {
	return r.Start.String() + ".." + r.End.String()
}

// Window pairs the analysed range with the one preceding it.
type Window struct {
	Kind     Kind  `json:"kind"`
	Current  Range `json:"current"`
	Previous Range `json:"previous"`
}

// Resolve computes the window for kind relative to today. start and end are
// read only for Custom, where either defaults to today when nil.
func Resolve(kind Kind, start, end *civil.Date, today civil.Date) (Window, error) {
	w := Window{Kind: kind}
	switch kind {
	case Weekly:
		// Weeks start on Sunday.
		ws := today.AddDays(-int(weekday(today)))
		w.Current = Range{Start: ws, End: ws.AddDays(6)}
		w.Previous = Range{Start: ws.AddDays(-7), End: ws.AddDays(-1)}
	case Monthly:
		first := civil.Date{Year: today.Year, Month: today.Month, Day: 1}
		w.Current = Range{Start: first, End: lastOfMonth(today.Year, today.Month)}
		prevEnd := first.AddDays(-1)
		w.Previous = Range{Start: civil.Date{Year: prevEnd.Year, Month: prevEnd.Month, Day: 1}, End: prevEnd}
	case Yearly:
		w.Current = Range{
			Start: civil.Date{Year: today.Year, Month: time.January, Day: 1},
			End:   civil.Date{Year: today.Year, Month: time.December, Day: 31},
		}
		w.Previous = Range{
			Start: civil.Date{Year: today.Year - 1, Month: time.January, Day: 1},
			End:   civil.Date{Year: today.Year - 1, Month: time.December, Day: 31},
		}
	case Custom:
		s, e := today, today
		if start != nil {
			s = *start
		}
		if end != nil {
			e = *end
		}
		if !s.IsValid() || !e.IsValid() {
			return Window{}, &domain.ValidationError{Field: "range", Err: domain.ErrInvalidDate}
		}
		if s.After(e) {
			return Window{}, &domain.InvalidRangeError{Start: s, End: e}
		}
		length := e.DaysSince(s)
		prevEnd := s.AddDays(-1)
		w.Current = Range{Start: s, End: e}
		w.Previous = Range{Start: prevEnd.AddDays(-length), End: prevEnd}
	default:
		return Window{}, &domain.ValidationError{Field: "analysis_type", Msg: fmt.Sprintf("unknown analysis type %q", kind)}
	}
	return w, nil
}

// Today returns the current calendar date in loc.
func Today(loc *time.Location) civil.Date {
	return civil.DateOf(time.Now().In(loc))
}

func weekday(d civil.Date) time.Weekday {
	return d.In(time.UTC).Weekday()
}

func lastOfMonth(year int, month time.Month) civil.Date {
	// Day 0 of the next month normalizes to the last day of this one.
	return civil.DateOf(time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC))
}
