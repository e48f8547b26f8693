package http

import (
	"fmt"
	"net/http"

	"github.com/alfonsoemoreno/predicacion-tracker/internal/auth"
	"github.com/alfonsoemoreno/predicacion-tracker/internal/core"
	"github.com/alfonsoemoreno/predicacion-tracker/internal/services"
)

func (s *Server) handleListReports(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	defaultYear, _ := currentPeriod()
	year, err := queryInt(r, "year", defaultYear)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if cached, ok := s.reportCache.Get(userID, year); ok {
		writeJSON(w, http.StatusOK, toReportResponses(cached))
		return
	}

	reports, err := s.ledger.List(r.Context(), userID, year)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.reportCache.Set(userID, year, reports)
	writeJSON(w, http.StatusOK, toReportResponses(reports))
}

func (s *Server) handleReportSummary(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	defaultYear, _ := currentPeriod()
	year, err := queryInt(r, "year", defaultYear)
	if err != nil {
		writeError(w, r, err)
		return
	}

	summary, err := s.ledger.Summary(r.Context(), userID, year)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, yearSummaryResponse{
		PeriodYear:           summary.PeriodYear,
		MonthsClosed:         summary.MonthsClosed,
		TotalWholeHours:      summary.TotalWholeHours,
		FinalLeftoverMinutes: summary.FinalLeftoverMinutes,
		SacredServiceMinutes: summary.SacredServiceMinutes,
		DistinctStudiesMax:   summary.DistinctStudiesMax,
	})
}

func (s *Server) handleGenerateReport(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	var req generateRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Year == 0 {
		req.Year, _ = currentPeriod()
	}

	report, err := s.ledger.GenerateNext(r.Context(), userID, req.Year, services.GenerateOptions{
		Comment:            req.Comment,
		IncludeAutoSummary: req.IncludeAutoSummary,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.httpLog.LogReportClosed(r.Context(), report.ID, report.PeriodYear, report.MonthIndex, report.WholeHours)
	s.reportCache.InvalidateYear(userID, req.Year)
	writeJSON(w, http.StatusCreated, toReportResponse(report))
}

// handleUnlockReport reopens the most recent month. Unlocking is a
// privileged operation gated by a token scope on top of ownership.
func (s *Server) handleUnlockReport(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	claims, _ := auth.FromContext(r.Context())
	if !claims.HasScope(auth.ScopeUnlockReports) {
		writeError(w, r, fmt.Errorf("token lacks %s scope: %w",
			auth.ScopeUnlockReports, core.ErrPermissionDenied))
		return
	}

	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	report, err := s.ledger.Unlock(r.Context(), userID, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.reportCache.InvalidateYear(userID, report.PeriodYear)
	writeJSON(w, http.StatusOK, toReportResponse(report))
}

func (s *Server) handleRecalcReports(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	var req recalcRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Year == 0 {
		req.Year, _ = currentPeriod()
	}

	reports, err := s.ledger.RecalcAndLockFrom(r.Context(), userID, req.Year, req.FromIndex)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.reportCache.InvalidateYear(userID, req.Year)
	writeJSON(w, http.StatusOK, toReportResponses(reports))
}

func (s *Server) handleUpdateComments(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req commentsRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	report, err := s.ledger.UpdateComments(r.Context(), userID, id, req.Comments)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.reportCache.InvalidateYear(userID, report.PeriodYear)
	writeJSON(w, http.StatusOK, toReportResponse(report))
}
