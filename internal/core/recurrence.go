package core

import (
	"fmt"
	"strings"
	"time"
)

const (
	OneTime RecurrenceKind = "one_time"
	Daily   RecurrenceKind = "daily"
	Weekly  RecurrenceKind = "weekly"
	Monthly RecurrenceKind = "monthly"
)

// DefaultMaxRuleSpanDays bounds the lifetime of a recurring booking.
const DefaultMaxRuleSpanDays = 3660

type (
	RecurrenceKind string

	// WeekdaySet is a bitmask indexed by time.Weekday.
	WeekdaySet uint8

	// RecurrenceRule describes when a booking is active. Build it with one of
	// the New* constructors; the zero value is invalid.
	RecurrenceRule struct {
		kind     RecurrenceKind
		start    Date
		end      Date
		weekdays WeekdaySet
	}
)

var weekdayByName = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// ParseRecurrenceKind accepts the stored kind names plus the form spelling "one-time".
func ParseRecurrenceKind(s string) (RecurrenceKind, error) {
	k := RecurrenceKind(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_"))
	switch k {
	case OneTime, Daily, Weekly, Monthly:
		return k, nil
	case "":
		return "", fmt.Errorf("%w: missing duration type", ErrInvalidRule)
	default:
		return "", fmt.Errorf("%w: unknown duration type %q", ErrInvalidRule, s)
	}
}

func NewWeekdaySet(days ...time.Weekday) WeekdaySet {
	var s WeekdaySet
	for _, d := range days {
		if d >= time.Sunday && d <= time.Saturday {
			s |= 1 << uint(d)
		}
	}
	return s
}

// ParseWeekdays reads weekday names ("Monday", "thu") case-insensitively.
func ParseWeekdays(names []string) (WeekdaySet, error) {
	var s WeekdaySet
	for _, raw := range names {
		name := strings.ToLower(strings.TrimSpace(raw))
		if name == "" {
			continue
		}
		day, ok := weekdayByName[name]
		if !ok && len(name) >= 3 {
			for full, d := range weekdayByName {
				if strings.HasPrefix(full, name) {
					day, ok = d, true
					break
				}
			}
		}
		if !ok {
			return 0, fmt.Errorf("%w: unknown weekday %q", ErrInvalidRule, raw)
		}
		s |= 1 << uint(day)
	}
	return s, nil
}

func (s WeekdaySet) Has(d time.Weekday) bool {
	return s&(1<<uint(d)) != 0
}

func (s WeekdaySet) IsEmpty() bool {
	return s == 0
}

// Names lists the set in Sunday-first order.
func (s WeekdaySet) Names() []string {
	var out []string
	for d := time.Sunday; d <= time.Saturday; d++ {
		if s.Has(d) {
			out = append(out, d.String())
		}
	}
	return out
}

// NewOneTime builds a single-day rule.
func NewOneTime(start Date) (RecurrenceRule, error) {
	r := RecurrenceRule{kind: OneTime, start: start, end: start}
	return r, r.Validate()
}

func NewDaily(start, end Date) (RecurrenceRule, error) {
	r := RecurrenceRule{kind: Daily, start: start, end: end}
	return r, r.Validate()
}

func NewWeekly(start, end Date, days WeekdaySet) (RecurrenceRule, error) {
	r := RecurrenceRule{kind: Weekly, start: start, end: end, weekdays: days}
	return r, r.Validate()
}

// NewMonthly builds a rule that repeats on the start date's day of month.
func NewMonthly(start, end Date) (RecurrenceRule, error) {
	r := RecurrenceRule{kind: Monthly, start: start, end: end}
	return r, r.Validate()
}

// NewRecurrenceRule dispatches to the constructor for kind. Fields that the
// kind does not use are ignored.
func NewRecurrenceRule(kind RecurrenceKind, start, end Date, days WeekdaySet) (RecurrenceRule, error) {
	switch kind {
	case OneTime:
		return NewOneTime(start)
	case Daily:
		return NewDaily(start, end)
	case Weekly:
		return NewWeekly(start, end, days)
	case Monthly:
		return NewMonthly(start, end)
	default:
		return RecurrenceRule{}, fmt.Errorf("%w: unknown duration type %q", ErrInvalidRule, kind)
	}
}

func (r RecurrenceRule) Kind() RecurrenceKind { return r.kind }
func (r RecurrenceRule) Start() Date          { return r.start }
func (r RecurrenceRule) End() Date            { return r.end }
func (r RecurrenceRule) Weekdays() WeekdaySet { return r.weekdays }

// DayOfMonth is the repeat day for monthly rules and 0 otherwise.
func (r RecurrenceRule) DayOfMonth() int {
	if r.kind != Monthly {
		return 0
	}
	return r.start.Day()
}

// SpanDays is the number of calendar days between start and end, inclusive.
func (r RecurrenceRule) SpanDays() int {
	if r.start.IsZero() || r.end.IsZero() {
		return 0
	}
	return r.start.DaysUntil(r.end) + 1
}

func (r RecurrenceRule) IsZero() bool {
	return r.kind == ""
}

func (r RecurrenceRule) Validate() error {
	if err := r.start.Validate(); err != nil {
		return fmt.Errorf("%w: start date: %v", ErrInvalidRule, err)
	}
	switch r.kind {
	case OneTime:
		return nil
	case Daily, Weekly, Monthly:
	default:
		return fmt.Errorf("%w: unknown duration type %q", ErrInvalidRule, r.kind)
	}
	if r.end.IsZero() {
		return fmt.Errorf("%w: %s booking requires an end date", ErrInvalidRule, r.kind)
	}
	if r.end.Before(r.start.Time) {
		return fmt.Errorf("%w: end date %s is before start date %s", ErrInvalidRule, r.end, r.start)
	}
	if r.kind == Weekly && r.weekdays.IsEmpty() {
		return fmt.Errorf("%w: weekly booking requires at least one weekday", ErrInvalidRule)
	}
	return nil
}

func (r RecurrenceRule) String() string {
	switch r.kind {
	case OneTime:
		return fmt.Sprintf("one_time %s", r.start)
	case Weekly:
		return fmt.Sprintf("weekly %s..%s on %s", r.start, r.end, strings.Join(r.weekdays.Names(), ","))
	case Monthly:
		return fmt.Sprintf("monthly %s..%s on day %d", r.start, r.end, r.DayOfMonth())
	default:
		return fmt.Sprintf("%s %s..%s", r.kind, r.start, r.end)
	}
}
