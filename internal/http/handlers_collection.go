package http

import (
	"context"
	"net/http"
	"time"

	"mandir/internal/core"
	applog "mandir/internal/log"
)

// handleCollections summarizes collections for a date range, grouped by
// payment, puja or booking date.
func (s *Server) handleCollections(w http.ResponseWriter, r *http.Request) {
	q, err := parseCollectionQuery(r.URL.Query(), s.today())
	if err != nil {
		writeError(w, r, err)
		return
	}
	summary, err := s.summaries.Aggregate(r.Context(), q)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if wantsHTML(r) {
		s.render(w, r, "collections.html", summary)
		return
	}
	writeJSON(w, http.StatusOK, newSummaryView(summary))
}

type exportView struct {
	Ref       string `json:"ref"`
	LineItems int    `json:"line_items"`
	summaryView
}

// handleExportCollection writes the summary for the query to the spreadsheet.
func (s *Server) handleExportCollection(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if s.exporter == nil {
		if wantsHTML(r) {
			ErrorResponse(http.StatusServiceUnavailable, "Spreadsheet export is not configured").Write(w)
			return
		}
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "spreadsheet export is not configured"})
		return
	}

	if err := r.ParseForm(); err != nil {
		writeError(w, r, errBadRequest)
		return
	}
	q, err := parseCollectionQuery(r.Form, s.today())
	if err != nil {
		writeError(w, r, err)
		return
	}
	summary, err := s.summaries.Aggregate(ctx, q)
	if err != nil {
		writeError(w, r, err)
		return
	}

	exportCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	ref, err := s.exporter.WriteCollection(exportCtx, summary)
	if err != nil {
		s.structured.LogError(ctx, "Collection export failed", err, applog.ComponentCollection, applog.OpExport,
			applog.NewFields().WithCollection(string(q.GroupBy), q.Start.String(), q.End.String(), q.PujaID))
		writeError(w, r, err)
		return
	}
	s.appMetrics.exports.Add(1)
	s.structured.LogCollectionExported(ctx, string(q.GroupBy), q.Start.String(), q.End.String(), q.PujaID, len(summary.LineItems), ref)

	if wantsHTML(r) {
		NewHTMXResponse().
			TriggerSuccessNotification("Report exported to " + ref).
			BodyHTML(`<div class="success">Exported ` + formatRupees(summary.OverallTotal) + ` to ` + templateEscape(ref) + `</div>`).
			Write(w)
		return
	}
	writeJSON(w, http.StatusOK, exportView{Ref: ref, LineItems: len(summary.LineItems), summaryView: newSummaryView(summary)})
}

// handleSchedule lists, for every day in the range, the bookings with an
// occurrence on that day.
func (s *Server) handleSchedule(w http.ResponseWriter, r *http.Request) {
	start, end, pujaID, err := parseDateRange(r.URL.Query(), s.today())
	if err != nil {
		writeError(w, r, err)
		return
	}
	days, err := s.schedule.DailySchedule(r.Context(), start, end, pujaID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newScheduleView(days))
}

// handleToday returns the roster of pujas to perform on a day, today by default.
func (s *Server) handleToday(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	day, err := parseOptionalDate("date", q.Get("date"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if day.IsZero() {
		day = s.today()
	}
	pujaID, err := parseID("puja_id", q.Get("puja_id"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	entries, err := s.schedule.Roster(r.Context(), day, pujaID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if wantsHTML(r) {
		s.render(w, r, "roster.html", struct {
			Day     core.Date
			Entries []core.RosterEntry
		}{day, entries})
		return
	}
	writeJSON(w, http.StatusOK, newRosterView(entries))
}
