package services

import (
	"fmt"
	"strings"

	"github.com/alfonsoemoreno/predicacion-tracker/internal/core"
)

// untitledSacredService is the placeholder line label for entries saved
// without a title.
const untitledSacredService = "Servicio sagrado"

// sacredSummaryLines renders one line per sacred-service entry as
// "<hours>h - <title>", hours to two decimals.
func sacredSummaryLines(entries []core.Activity) []string {
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		title := strings.TrimSpace(e.Title)
		if title == "" {
			title = untitledSacredService
		}
		hours := float64(e.DurationMinutes()) / 60.0
		lines = append(lines, fmt.Sprintf("%.2fh - %s", hours, title))
	}
	return lines
}

// joinComments concatenates the user's manual comment and the generated
// summary, manual first.
func joinComments(manual string, autoLines []string) string {
	manual = strings.TrimSpace(manual)
	auto := strings.Join(autoLines, "\n")
	switch {
	case manual == "":
		return auto
	case auto == "":
		return manual
	default:
		return manual + "\n" + auto
	}
}
