// Package http provides HTTP server and handler implementations.
//
// This file parses and validates request data. Bookings arrive either as
// JSON from API clients or as form posts from the htmx booking form.

package http

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"mandir/internal/core"
)

const maxBodyBytes = 1 << 20

// RequestBodyParser handles JSON and form-encoded request bodies.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]interface{}
	formData    url.Values
	parsed      bool
	err         error
}

// NewRequestBodyParser reads the body once and stores it for later parsing.
func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{
		contentType: r.Header.Get("Content-Type"),
	}
	p.body, p.err = io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	return p
}

// Parse attempts to parse the body as JSON or form data.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}
	if len(p.body) == 0 {
		p.formData = url.Values{}
		return nil
	}

	if strings.HasPrefix(p.contentType, "application/json") || p.body[0] == '{' {
		p.jsonData = make(map[string]interface{})
		if err := json.Unmarshal(p.body, &p.jsonData); err != nil {
			p.err = fmt.Errorf("%w: invalid JSON: %v", errBadRequest, err)
		}
		return p.err
	}

	p.formData, p.err = url.ParseQuery(string(p.body))
	if p.err != nil {
		p.err = fmt.Errorf("%w: invalid form: %v", errBadRequest, p.err)
	}
	return p.err
}

// Get returns a sanitized string value from the parsed data.
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return sanitizeInput(stringValue(val))
		}
		return ""
	}
	if p.formData != nil {
		return sanitizeInput(p.formData.Get(key))
	}
	return ""
}

// GetAll returns every value for key: a JSON array or repeated form fields.
func (p *RequestBodyParser) GetAll(key string) []string {
	var raw []string
	switch {
	case p.jsonData != nil:
		switch v := p.jsonData[key].(type) {
		case []interface{}:
			for _, item := range v {
				raw = append(raw, stringValue(item))
			}
		case string:
			raw = strings.Split(v, ",")
		}
	case p.formData != nil:
		for _, v := range p.formData[key] {
			raw = append(raw, strings.Split(v, ",")...)
		}
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if v = sanitizeInput(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// IsJSON returns true if the parsed content was JSON.
func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

func stringValue(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// parseID reads a positive integer; empty means 0.
func parseID(name, s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id < 0 {
		return 0, fmt.Errorf("%w: invalid %s %q", errBadRequest, name, s)
	}
	return id, nil
}

func parseOptionalDate(name, s string) (core.Date, error) {
	if strings.TrimSpace(s) == "" {
		return core.Date{}, nil
	}
	d, err := core.ParseDate(s)
	if err != nil {
		return core.Date{}, fmt.Errorf("%w: invalid %s %q", errBadRequest, name, s)
	}
	return d, nil
}

// parseDateRange reads start, end and puja_id. A missing start defaults to
// today and a missing end to start.
func parseDateRange(q url.Values, today core.Date) (start, end core.Date, pujaID int64, err error) {
	if start, err = parseOptionalDate("start", q.Get("start")); err != nil {
		return
	}
	if end, err = parseOptionalDate("end", q.Get("end")); err != nil {
		return
	}
	if pujaID, err = parseID("puja_id", q.Get("puja_id")); err != nil {
		return
	}
	if start.IsZero() {
		start = today
	}
	if end.IsZero() {
		end = start
	}
	return start, end, pujaID, nil
}

// parseCollectionQuery reads a collection report query. group_by defaults
// to the occurrence date.
func parseCollectionQuery(q url.Values, today core.Date) (core.CollectionQuery, error) {
	start, end, pujaID, err := parseDateRange(q, today)
	if err != nil {
		return core.CollectionQuery{}, err
	}
	groupBy := core.GroupByOccurrenceDate
	if v := q.Get("group_by"); v != "" {
		if groupBy, err = core.ParseGroupBy(v); err != nil {
			return core.CollectionQuery{}, err
		}
	}
	return core.CollectionQuery{Start: start, End: end, PujaID: pujaID, GroupBy: groupBy}, nil
}

// parseRule builds the recurrence rule from duration, start_date, end_date
// and weekly_days.
func parseRule(p *RequestBodyParser) (core.RecurrenceRule, error) {
	kind, err := core.ParseRecurrenceKind(p.Get("duration"))
	if err != nil {
		return core.RecurrenceRule{}, err
	}
	start, err := core.ParseDate(p.Get("start_date"))
	if err != nil {
		return core.RecurrenceRule{}, fmt.Errorf("%w: start date: %v", core.ErrInvalidRule, err)
	}
	var end core.Date
	if kind != core.OneTime {
		if end, err = parseOptionalDate("end_date", p.Get("end_date")); err != nil {
			return core.RecurrenceRule{}, fmt.Errorf("%w: %v", core.ErrInvalidRule, err)
		}
	}
	days, err := core.ParseWeekdays(p.GetAll("weekly_days"))
	if err != nil {
		return core.RecurrenceRule{}, err
	}
	return core.NewRecurrenceRule(kind, start, end, days)
}

type familyMemberRequest struct {
	Name         string `json:"name"`
	NakshatramID int64  `json:"nakshatram_id"`
	GotramID     int64  `json:"gotram_id"`
	RashiID      int64  `json:"rashi_id"`
}

// parseFamily reads family members from a JSON "family" array or from the
// parallel form fields family_name, family_nakshatram, family_gotram and
// family_rashi.
func parseFamily(p *RequestBodyParser) ([]core.FamilyMember, error) {
	var reqs []familyMemberRequest
	if p.IsJSON() {
		if raw, ok := p.jsonData["family"]; ok && raw != nil {
			b, _ := json.Marshal(raw)
			if err := json.Unmarshal(b, &reqs); err != nil {
				return nil, fmt.Errorf("%w: invalid family: %v", errBadRequest, err)
			}
		}
	} else if p.formData != nil {
		names := p.formData["family_name"]
		for i, name := range names {
			if strings.TrimSpace(name) == "" {
				continue
			}
			m := familyMemberRequest{Name: name}
			var err error
			if m.NakshatramID, err = parseID("nakshatram", formAt(p.formData, "family_nakshatram", i)); err != nil {
				return nil, err
			}
			if m.GotramID, err = parseID("gotram", formAt(p.formData, "family_gotram", i)); err != nil {
				return nil, err
			}
			if m.RashiID, err = parseID("rashi", formAt(p.formData, "family_rashi", i)); err != nil {
				return nil, err
			}
			reqs = append(reqs, m)
		}
	}

	members := make([]core.FamilyMember, 0, len(reqs))
	for _, r := range reqs {
		members = append(members, core.FamilyMember{
			Name:         sanitizeInput(r.Name),
			NakshatramID: r.NakshatramID,
			GotramID:     r.GotramID,
			RashiID:      r.RashiID,
		})
	}
	return members, nil
}

func formAt(form url.Values, key string, i int) string {
	if vals := form[key]; i < len(vals) {
		return vals[i]
	}
	return ""
}

// parseBooking reads a booking submission. Prices are left for the server
// to compute, except an optional client total that is only logged.
func parseBooking(r *http.Request) (core.Booking, error) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		return core.Booking{}, err
	}

	pujaID, err := parseID("puja_id", p.Get("puja_id"))
	if err != nil {
		return core.Booking{}, err
	}
	rule, err := parseRule(p)
	if err != nil {
		return core.Booking{}, err
	}
	family, err := parseFamily(p)
	if err != nil {
		return core.Booking{}, err
	}
	paymentDate, err := parseOptionalDate("payment_date", p.Get("payment_date"))
	if err != nil {
		return core.Booking{}, err
	}

	b := core.Booking{
		PujaID: pujaID,
		Rule:   rule,
		Devotee: core.Devotee{
			FirstName: p.Get("first_name"),
			LastName:  p.Get("last_name"),
			Mobile:    p.Get("mobile"),
			Email:     p.Get("email"),
			Address1:  p.Get("address1"),
			Address2:  p.Get("address2"),
			City:      p.Get("city"),
			State:     p.Get("state"),
			PinCode:   p.Get("pin_code"),
		},
		Family:      family,
		Remarks:     p.Get("remarks"),
		PaymentDate: paymentDate,
	}
	if v := p.Get("total_price"); v != "" {
		if total, err := core.ParseMoney(v); err == nil {
			b.TotalPrice = total
		}
	}
	return b, nil
}

// parseQuote reads the puja and rule of a draft booking.
func parseQuote(r *http.Request) (int64, core.RecurrenceRule, error) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		return 0, core.RecurrenceRule{}, err
	}
	pujaID, err := parseID("puja_id", p.Get("puja_id"))
	if err != nil {
		return 0, core.RecurrenceRule{}, err
	}
	rule, err := parseRule(p)
	return pujaID, rule, err
}
