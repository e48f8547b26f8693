package http

import (
	"github.com/alfonsoemoreno/predicacion-tracker/internal/core"
)

type activityRequest struct {
	Date      string `json:"date"` // YYYY-MM-DD
	Kind      string `json:"kind"`
	Minutes   *int   `json:"minutes,omitempty"`
	StartTime string `json:"start_time,omitempty"`
	EndTime   string `json:"end_time,omitempty"`
	ContactID string `json:"contact_id,omitempty"`
	Title     string `json:"title,omitempty"`
}

func (req activityRequest) toDomain(userID string, id int64) (core.Activity, error) {
	date, err := core.ParseDate(req.Date)
	if err != nil {
		return core.Activity{}, err
	}
	return core.Activity{
		ID:        id,
		UserID:    userID,
		Date:      date,
		Kind:      core.ActivityKind(req.Kind),
		Minutes:   req.Minutes,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		ContactID: req.ContactID,
		Title:     req.Title,
	}, nil
}

type activityResponse struct {
	ID              int64  `json:"id"`
	Date            string `json:"date"`
	Kind            string `json:"kind"`
	Minutes         *int   `json:"minutes,omitempty"`
	StartTime       string `json:"start_time,omitempty"`
	EndTime         string `json:"end_time,omitempty"`
	ContactID       string `json:"contact_id,omitempty"`
	Title           string `json:"title,omitempty"`
	DurationMinutes int    `json:"duration_minutes"`
}

func toActivityResponse(a core.Activity) activityResponse {
	return activityResponse{
		ID:              a.ID,
		Date:            a.Date.ISO(),
		Kind:            string(a.Kind),
		Minutes:         a.Minutes,
		StartTime:       a.StartTime,
		EndTime:         a.EndTime,
		ContactID:       a.ContactID,
		Title:           a.Title,
		DurationMinutes: a.DurationMinutes(),
	}
}

func toActivityResponses(activities []core.Activity) []activityResponse {
	out := make([]activityResponse, 0, len(activities))
	for _, a := range activities {
		out = append(out, toActivityResponse(a))
	}
	return out
}

type contactRequest struct {
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
}

type contactResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
}

func toContactResponse(c core.Contact) contactResponse {
	return contactResponse{ID: c.ID, Name: c.Name, Color: c.Color}
}

type reportResponse struct {
	ID                   int64  `json:"id"`
	PeriodYear           int    `json:"period_year"`
	MonthIndex           int    `json:"month_index"`
	PeriodStart          string `json:"period_start"`
	PeriodEnd            string `json:"period_end"`
	TotalMinutes         int    `json:"total_minutes"`
	CarriedInMinutes     int    `json:"carried_in_minutes"`
	CarriedOutMinutes    int    `json:"carried_out_minutes"`
	WholeHours           int    `json:"whole_hours"`
	LeftoverMinutes      int    `json:"leftover_minutes"`
	EffectiveMinutes     int    `json:"effective_minutes"`
	DistinctStudies      int    `json:"distinct_studies"`
	SacredServiceMinutes int    `json:"sacred_service_minutes"`
	Comments             string `json:"comments"`
	Locked               bool   `json:"locked"`
}

func toReportResponse(r core.MonthlyReport) reportResponse {
	return reportResponse{
		ID:                   r.ID,
		PeriodYear:           r.PeriodYear,
		MonthIndex:           r.MonthIndex,
		PeriodStart:          r.PeriodStart.ISO(),
		PeriodEnd:            r.PeriodEnd.ISO(),
		TotalMinutes:         r.TotalMinutes,
		CarriedInMinutes:     r.CarriedInMinutes,
		CarriedOutMinutes:    r.CarriedOutMinutes,
		WholeHours:           r.WholeHours,
		LeftoverMinutes:      r.LeftoverMinutes,
		EffectiveMinutes:     r.EffectiveMinutes,
		DistinctStudies:      r.DistinctStudies,
		SacredServiceMinutes: r.SacredServiceMinutes,
		Comments:             r.Comments,
		Locked:               r.Locked,
	}
}

func toReportResponses(reports []core.MonthlyReport) []reportResponse {
	out := make([]reportResponse, 0, len(reports))
	for _, r := range reports {
		out = append(out, toReportResponse(r))
	}
	return out
}

type yearSummaryResponse struct {
	PeriodYear           int `json:"period_year"`
	MonthsClosed         int `json:"months_closed"`
	TotalWholeHours      int `json:"total_whole_hours"`
	FinalLeftoverMinutes int `json:"final_leftover_minutes"`
	SacredServiceMinutes int `json:"sacred_service_minutes"`
	DistinctStudiesMax   int `json:"distinct_studies_max"`
}

type generateRequest struct {
	Year               int    `json:"year"`
	Comment            string `json:"comment,omitempty"`
	IncludeAutoSummary bool   `json:"include_auto_summary,omitempty"`
}

type recalcRequest struct {
	Year      int `json:"year"`
	FromIndex int `json:"from_index"`
}

type commentsRequest struct {
	Comments string `json:"comments"`
}
