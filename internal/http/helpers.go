package http

import (
	"errors"
	"html/template"
	"net/http"
	"strconv"
	"strings"

	"mandir/internal/core"
)

// clientErrors are failures caused by the request rather than the server.
var clientErrors = []error{
	core.ErrInvalidRule,
	core.ErrInvalidRange,
	core.ErrInvalidGroupBy,
	core.ErrInvalidPuja,
	core.ErrInvalidDay,
	core.ErrInvalidMonth,
	core.ErrInvalidAmount,
	core.ErrEmptyName,
	core.ErrInvalidMobile,
	core.ErrInvalidEmail,
	errBadRequest,
}

var errBadRequest = errors.New("bad request")

// statusForError maps service errors onto HTTP status codes.
func statusForError(err error) int {
	for _, target := range clientErrors {
		if errors.Is(err, target) {
			return http.StatusBadRequest
		}
	}
	if errors.Is(err, core.ErrNotFound) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// formatRupees formats paise as "₹1,250.50" with Indian digit grouping.
func formatRupees(m core.Money) string {
	cents := m.Cents
	neg := cents < 0
	if neg {
		cents = -cents
	}
	whole := strconv.FormatInt(cents/100, 10)
	frac := cents % 100

	// Last three digits, then groups of two.
	if len(whole) > 3 {
		head, tail := whole[:len(whole)-3], whole[len(whole)-3:]
		var groups []string
		for len(head) > 2 {
			groups = append([]string{head[len(head)-2:]}, groups...)
			head = head[:len(head)-2]
		}
		if head != "" {
			groups = append([]string{head}, groups...)
		}
		whole = strings.Join(groups, ",") + "," + tail
	}

	s := "₹" + whole + "." + strconv.FormatInt(frac/10, 10) + strconv.FormatInt(frac%10, 10)
	if neg {
		return "-" + s
	}
	return s
}

// sanitizeInput removes control characters except tab and newlines, and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// wantsHTML reports whether the caller is htmx or a browser asking for HTML.
func wantsHTML(r *http.Request) bool {
	if r.Header.Get("HX-Request") == "true" {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}

func templateEscape(s string) string {
	return template.HTMLEscapeString(s)
}
