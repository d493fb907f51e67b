package http

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"mandir/internal/calendar"
	"mandir/internal/core"
	applog "mandir/internal/log"
	"mandir/internal/services"
)

// handleCreateBooking stores a booking. htmx callers get a confirmation
// fragment plus refresh triggers, API clients get the stored booking.
func (s *Server) handleCreateBooking(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	b, err := parseBooking(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := b.Validate(); err != nil {
		writeError(w, r, fmt.Errorf("%w: %w", errBadRequest, err))
		return
	}

	saved, err := s.bookings.CreateBooking(ctx, b)
	if err != nil {
		if statusForError(err) == http.StatusInternalServerError {
			s.structured.LogError(ctx, "Booking creation failed", err, applog.ComponentBooking, applog.OpCreate,
				applog.NewFields().WithBooking(0, b.PujaID, b.Rule.String(), 0, 0))
		}
		writeError(w, r, err)
		return
	}

	// Every report may include the new booking.
	s.summaries.Invalidate()
	s.appMetrics.bookingsCreated.Add(1)

	occurrences := 0
	if saved.UnitPrice.Cents > 0 {
		occurrences = int(saved.TotalPrice.Cents / saved.UnitPrice.Cents)
	}
	s.structured.LogBookingCreated(ctx, saved.ID, saved.PujaID, saved.Rule.String(), occurrences, saved.TotalPrice.Cents)

	if !wantsHTML(r) {
		writeJSON(w, http.StatusCreated, newBookingView(saved))
		return
	}

	body, err := s.renderString("booking_created.html", struct {
		Booking     core.Booking
		Occurrences int
	}{saved, occurrences})
	if err != nil {
		applog.FromContext(ctx).ErrorContext(ctx, "Template execution failed", applog.FieldError, err, "template", "booking_created.html")
		body = fmt.Sprintf(`<div class="success">Booking #%d saved</div>`, saved.ID)
	}
	NewHTMXResponse().
		TriggerBookingCreated(saved.ID, saved.PujaID).
		TriggerFormReset().
		TriggerSuccessNotification(fmt.Sprintf("Booking #%d saved", saved.ID)).
		BodyHTML(body).
		Write(w)
}

// handleQuote prices a draft booking without storing it.
func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	pujaID, rule, err := parseQuote(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	q, err := s.bookings.Quote(r.Context(), pujaID, rule)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if wantsHTML(r) {
		s.render(w, r, "quote.html", struct {
			Rule  core.RecurrenceRule
			Quote services.Quote
		}{rule, q})
		return
	}
	writeJSON(w, http.StatusOK, newQuoteView(pujaID, q))
}

// handleListBookings lists bookings created between start and end.
func (s *Server) handleListBookings(w http.ResponseWriter, r *http.Request) {
	start, end, pujaID, err := parseDateRange(r.URL.Query(), s.today())
	if err != nil {
		writeError(w, r, err)
		return
	}
	bookings, err := s.schedule.ListBookings(r.Context(), start, end, pujaID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]bookingView, len(bookings))
	for i, b := range bookings {
		out[i] = newBookingView(b)
	}
	writeJSON(w, http.StatusOK, out)
}

type bookingDetailView struct {
	bookingView
	Dates []string `json:"dates"`
}

func (s *Server) handleGetBooking(w http.ResponseWriter, r *http.Request) {
	id, err := bookingIDFromPath(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	b, dates, err := s.schedule.BookingDates(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	v := bookingDetailView{bookingView: newBookingView(b), Dates: make([]string, len(dates))}
	for i, d := range dates {
		v.Dates[i] = d.String()
	}
	writeJSON(w, http.StatusOK, v)
}

// handleBookingCalendar serves the booking's occurrences as an .ics file.
func (s *Server) handleBookingCalendar(w http.ResponseWriter, r *http.Request) {
	id, err := bookingIDFromPath(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	b, dates, err := s.schedule.BookingDates(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := calendar.Write(&buf, calendar.ForBooking(b, dates, time.Now())); err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="booking-%d.ics"`, b.ID))
	_, _ = w.Write(buf.Bytes())
}

func bookingIDFromPath(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid booking id %q", errBadRequest, r.PathValue("id"))
	}
	return id, nil
}

func (s *Server) renderString(name string, data any) (string, error) {
	if s.templates == nil {
		return "", fmt.Errorf("templates not loaded")
	}
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
