package amqp

import (
	"encoding/json"
	"time"
)

// ReportClosedMessage signals that a monthly report was generated or
// recalculated. It carries only identifiers; the worker fetches the full
// row from the database before exporting.
type ReportClosedMessage struct {
	ReportID   int64     `json:"report_id"`
	UserID     string    `json:"user_id"`
	PeriodYear int       `json:"period_year"`
	MonthIndex int       `json:"month_index"`
	Timestamp  time.Time `json:"timestamp"`
}

func NewReportClosedMessage(reportID int64, userID string, periodYear, monthIndex int) *ReportClosedMessage {
	return &ReportClosedMessage{
		ReportID:   reportID,
		UserID:     userID,
		PeriodYear: periodYear,
		MonthIndex: monthIndex,
		Timestamp:  time.Now(),
	}
}

// ToJSON converts the message to JSON bytes.
func (m *ReportClosedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ReportClosedMessageFromJSON creates a message from JSON bytes.
func ReportClosedMessageFromJSON(data []byte) (*ReportClosedMessage, error) {
	var msg ReportClosedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
