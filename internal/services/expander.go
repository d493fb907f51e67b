// Package services provides business logic and orchestration services.
//
// This file implements recurrence expansion with one inclusion strategy per
// booking kind. Expansion walks the booking's lifetime one calendar day at a
// time and asks the kind's strategy whether the day belongs to the booking.
package services

import (
	"fmt"

	"mandir/internal/core"
)

// InclusionChecker is the strategy interface for deciding whether a day is
// an occurrence of a rule.
type InclusionChecker interface {
	// Includes reports whether day is an occurrence of rule. Callers only
	// pass days within the rule's start and end dates.
	Includes(day core.Date, rule core.RecurrenceRule) bool
}

// OneTimeChecker implements InclusionChecker for single-day bookings.
type OneTimeChecker struct{}

func (OneTimeChecker) Includes(day core.Date, rule core.RecurrenceRule) bool {
	return day.Equal(rule.Start().Time)
}

// DailyChecker implements InclusionChecker for daily bookings.
type DailyChecker struct{}

func (DailyChecker) Includes(core.Date, core.RecurrenceRule) bool {
	return true
}

// WeeklyChecker implements InclusionChecker for bookings on chosen weekdays.
type WeeklyChecker struct{}

func (WeeklyChecker) Includes(day core.Date, rule core.RecurrenceRule) bool {
	return rule.Weekdays().Has(day.Weekday())
}

// MonthlyChecker implements InclusionChecker for bookings on the start
// date's day of month. Months without that day have no occurrence.
type MonthlyChecker struct{}

func (MonthlyChecker) Includes(day core.Date, rule core.RecurrenceRule) bool {
	return day.Day() == rule.DayOfMonth()
}

var inclusionStrategies = map[core.RecurrenceKind]InclusionChecker{
	core.OneTime: OneTimeChecker{},
	core.Daily:   DailyChecker{},
	core.Weekly:  WeeklyChecker{},
	core.Monthly: MonthlyChecker{},
}

// GetInclusionChecker returns the checker for a booking kind.
func GetInclusionChecker(kind core.RecurrenceKind) (InclusionChecker, error) {
	checker, ok := inclusionStrategies[kind]
	if !ok {
		return nil, fmt.Errorf("%w: unknown duration type %q", core.ErrInvalidRule, kind)
	}
	return checker, nil
}

// Expander turns recurrence rules into concrete dates.
type Expander struct {
	// MaxSpanDays caps the lifetime of a rule; zero disables the cap.
	MaxSpanDays int
}

// Quote is the expansion of a rule together with its price.
type Quote struct {
	Dates     []core.Date
	UnitPrice core.Money
	Total     core.Money
}

// Units is the number of priced occurrences.
func (q Quote) Units() int {
	return len(q.Dates)
}

var defaultExpander = Expander{MaxSpanDays: core.DefaultMaxRuleSpanDays}

// Expand returns every occurrence of rule in ascending order using the
// default lifetime cap.
func Expand(rule core.RecurrenceRule) ([]core.Date, error) {
	return defaultExpander.Expand(rule)
}

// Expand returns every occurrence of rule over its own lifetime, ascending,
// one entry per day. It has no side effects.
func (e Expander) Expand(rule core.RecurrenceRule) ([]core.Date, error) {
	return e.ExpandWithin(rule, rule.Start(), rule.End())
}

// ExpandWithin returns the occurrences of rule that fall in [from, to].
func (e Expander) ExpandWithin(rule core.RecurrenceRule, from, to core.Date) ([]core.Date, error) {
	if err := rule.Validate(); err != nil {
		return nil, err
	}
	if e.MaxSpanDays > 0 && rule.SpanDays() > e.MaxSpanDays {
		return nil, fmt.Errorf("%w: booking spans %d days, limit is %d",
			core.ErrInvalidRule, rule.SpanDays(), e.MaxSpanDays)
	}
	checker, err := GetInclusionChecker(rule.Kind())
	if err != nil {
		return nil, err
	}

	end := rule.End()
	if rule.Kind() == core.OneTime {
		end = rule.Start()
	}
	if from.Before(rule.Start().Time) {
		from = rule.Start()
	}
	if to.After(end.Time) {
		to = end
	}

	var dates []core.Date
	for day := from; !day.After(to.Time); day = day.AddDays(1) {
		if checker.Includes(day, rule) {
			dates = append(dates, day)
		}
	}
	return dates, nil
}

// Quote expands rule and prices it at unitPrice per occurrence, so that
// the charged total always matches the stored occurrence rows.
func (e Expander) Quote(rule core.RecurrenceRule, unitPrice core.Money) (Quote, error) {
	dates, err := e.Expand(rule)
	if err != nil {
		return Quote{}, err
	}
	return Quote{
		Dates:     dates,
		UnitPrice: unitPrice,
		Total:     unitPrice.Times(len(dates)),
	}, nil
}
