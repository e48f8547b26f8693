package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/alfonsoemoreno/predicacion-tracker/internal/auth"
	"github.com/alfonsoemoreno/predicacion-tracker/internal/core"
)

func queryInt(r *http.Request, key string, fallback int) (int, error) {
	v := strings.TrimSpace(r.URL.Query().Get(key))
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, core.ErrConstraintViolation)
	}
	return n, nil
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q: %w", r.PathValue("id"), core.ErrConstraintViolation)
	}
	return id, nil
}

func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %v: %w", err, core.ErrConstraintViolation)
	}
	return nil
}

func currentPeriod() (year, monthIndex int) {
	now := core.Date{Time: time.Now()}
	year = core.TheocraticYearBase(now)
	return year, core.MonthIndexOf(year, now)
}

func (s *Server) handleListActivities(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	defaultYear, defaultIndex := currentPeriod()

	year, err := queryInt(r, "year", defaultYear)
	if err != nil {
		writeError(w, r, err)
		return
	}
	monthIndex, err := queryInt(r, "month_index", defaultIndex)
	if err != nil {
		writeError(w, r, err)
		return
	}

	activities, err := s.activities.ListMonth(r.Context(), userID, year, monthIndex)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toActivityResponses(activities))
}

func (s *Server) handleCreateActivity(w http.ResponseWriter, r *http.Request) {
	var req activityRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	activity, err := req.toDomain(auth.UserID(r.Context()), 0)
	if err != nil {
		writeError(w, r, err)
		return
	}

	created, err := s.activities.Create(r.Context(), activity)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toActivityResponse(created))
}

func (s *Server) handleUpdateActivity(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req activityRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	activity, err := req.toDomain(auth.UserID(r.Context()), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	updated, err := s.activities.Update(r.Context(), activity)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toActivityResponse(updated))
}

func (s *Server) handleDeleteActivity(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.activities.Delete(r.Context(), auth.UserID(r.Context()), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListContacts(w http.ResponseWriter, r *http.Request) {
	contacts, err := s.activities.ListContacts(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]contactResponse, 0, len(contacts))
	for _, c := range contacts {
		out = append(out, toContactResponse(c))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateContact(w http.ResponseWriter, r *http.Request) {
	var req contactRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	created, err := s.activities.CreateContact(r.Context(), core.Contact{
		UserID: auth.UserID(r.Context()),
		Name:   req.Name,
		Color:  req.Color,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toContactResponse(created))
}
