package sheets

import (
	"context"

	"github.com/alfonsoemoreno/predicacion-tracker/internal/core"
)

// Ports for outbound adapters.
type ReportExporter interface {
	Export(ctx context.Context, report core.MonthlyReport) (rowRef string, err error)
}
