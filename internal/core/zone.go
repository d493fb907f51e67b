package core

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DefaultUTCOffset is the temple's local offset (IST).
const DefaultUTCOffset = "+05:30"

// ParseUTCOffset turns "+05:30" or "-0300" into a fixed zone.
func ParseUTCOffset(s string) (*time.Location, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "Z") || strings.EqualFold(s, "UTC") {
		return time.UTC, nil
	}
	sign := 1
	switch s[0] {
	case '+':
	case '-':
		sign = -1
	default:
		return nil, fmt.Errorf("invalid utc offset %q", s)
	}
	body := strings.ReplaceAll(s[1:], ":", "")
	if len(body) != 4 {
		return nil, fmt.Errorf("invalid utc offset %q", s)
	}
	hh, err := strconv.Atoi(body[:2])
	if err != nil || hh > 14 {
		return nil, fmt.Errorf("invalid utc offset %q", s)
	}
	mm, err := strconv.Atoi(body[2:])
	if err != nil || mm > 59 {
		return nil, fmt.Errorf("invalid utc offset %q", s)
	}
	return time.FixedZone("UTC"+s, sign*(hh*3600+mm*60)), nil
}

// Today returns the current calendar date in loc.
func Today(loc *time.Location) Date {
	return DateOf(time.Now(), loc)
}
