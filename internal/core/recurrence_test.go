package core

import (
	"errors"
	"reflect"
	"testing"
	"time"
)

func TestParseRecurrenceKind(t *testing.T) {
	tests := []struct {
		in   string
		want RecurrenceKind
		ok   bool
	}{
		{"one_time", OneTime, true},
		{"one-time", OneTime, true},
		{"Daily", Daily, true},
		{" weekly ", Weekly, true},
		{"monthly", Monthly, true},
		{"yearly", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, err := ParseRecurrenceKind(tt.in)
		if tt.ok && (err != nil || got != tt.want) {
			t.Errorf("ParseRecurrenceKind(%q) = %q, %v", tt.in, got, err)
		}
		if !tt.ok && !errors.Is(err, ErrInvalidRule) {
			t.Errorf("ParseRecurrenceKind(%q) expected ErrInvalidRule, got %v", tt.in, err)
		}
	}
}

func TestParseWeekdays(t *testing.T) {
	set, err := ParseWeekdays([]string{"Monday", "thu", "", "SUNDAY"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"Sunday", "Monday", "Thursday"}
	if got := set.Names(); !reflect.DeepEqual(got, want) {
		t.Fatalf("Names() = %v, want %v", got, want)
	}
	if set != NewWeekdaySet(time.Monday, time.Thursday, time.Sunday) {
		t.Fatalf("set mismatch: %08b", set)
	}
	if _, err := ParseWeekdays([]string{"Funday"}); !errors.Is(err, ErrInvalidRule) {
		t.Fatalf("expected ErrInvalidRule, got %v", err)
	}
}

func TestRecurrenceRuleConstructors(t *testing.T) {
	jan1 := NewDate(2024, 1, 1)
	jan14 := NewDate(2024, 1, 14)
	monThu := NewWeekdaySet(time.Monday, time.Thursday)

	tests := []struct {
		name  string
		build func() (RecurrenceRule, error)
		ok    bool
	}{
		{"one time", func() (RecurrenceRule, error) { return NewOneTime(jan1) }, true},
		{"one time zero start", func() (RecurrenceRule, error) { return NewOneTime(Date{}) }, false},
		{"daily", func() (RecurrenceRule, error) { return NewDaily(jan1, jan14) }, true},
		{"daily single day", func() (RecurrenceRule, error) { return NewDaily(jan1, jan1) }, true},
		{"daily no end", func() (RecurrenceRule, error) { return NewDaily(jan1, Date{}) }, false},
		{"daily reversed", func() (RecurrenceRule, error) { return NewDaily(jan14, jan1) }, false},
		{"weekly", func() (RecurrenceRule, error) { return NewWeekly(jan1, jan14, monThu) }, true},
		{"weekly no days", func() (RecurrenceRule, error) { return NewWeekly(jan1, jan14, 0) }, false},
		{"monthly", func() (RecurrenceRule, error) { return NewMonthly(jan1, jan14) }, true},
		{"monthly no end", func() (RecurrenceRule, error) { return NewMonthly(jan1, Date{}) }, false},
		{"unknown kind", func() (RecurrenceRule, error) { return NewRecurrenceRule("yearly", jan1, jan14, 0) }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.build()
			if tt.ok && err != nil {
				t.Fatalf("expected ok, got %v", err)
			}
			if !tt.ok && !errors.Is(err, ErrInvalidRule) {
				t.Fatalf("expected ErrInvalidRule, got %v", err)
			}
		})
	}
}

func TestNewRecurrenceRuleIgnoresUnusedFields(t *testing.T) {
	start := NewDate(2024, 5, 10)
	// A one-time rule keeps start as its end even if the form sent one.
	r, err := NewRecurrenceRule(OneTime, start, NewDate(2024, 5, 1), NewWeekdaySet(time.Friday))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !r.End().Equal(start.Time) || !r.Weekdays().IsEmpty() {
		t.Fatalf("one-time rule kept unused fields: %s", r)
	}

	r, err = NewRecurrenceRule(Daily, start, NewDate(2024, 5, 12), NewWeekdaySet(time.Friday))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !r.Weekdays().IsEmpty() {
		t.Fatalf("daily rule kept weekdays")
	}
	if r.SpanDays() != 3 {
		t.Fatalf("SpanDays() = %d", r.SpanDays())
	}
}

func TestRecurrenceRuleDayOfMonth(t *testing.T) {
	r, err := NewMonthly(NewDate(2024, 1, 31), NewDate(2024, 4, 30))
	if err != nil {
		t.Fatal(err)
	}
	if r.DayOfMonth() != 31 {
		t.Fatalf("DayOfMonth() = %d", r.DayOfMonth())
	}
	d, _ := NewDaily(NewDate(2024, 1, 31), NewDate(2024, 4, 30))
	if d.DayOfMonth() != 0 {
		t.Fatalf("daily DayOfMonth() = %d", d.DayOfMonth())
	}
}
