package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/alfonsoemoreno/predicacion-tracker/internal/core"
)

// Exporter keeps exported reports in memory. Used by tests and by local
// runs without Google credentials.
type Exporter struct {
	mu    sync.Mutex
	items []core.MonthlyReport
}

func New() *Exporter {
	return &Exporter{}
}

// Export stores the report and returns a synthetic row reference.
func (e *Exporter) Export(_ context.Context, report core.MonthlyReport) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.items = append(e.items, report)
	return fmt.Sprintf("mem:%d", len(e.items)), nil
}

// Exported returns a copy of everything exported so far.
func (e *Exporter) Exported() []core.MonthlyReport {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]core.MonthlyReport(nil), e.items...)
}
