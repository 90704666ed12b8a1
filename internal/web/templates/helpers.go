// Package templates holds the templ components for the dashboard.
// Regenerate dashboard_templ.go with `templ generate` after editing .templ files.
package templates

import (
	"fmt"
	"strconv"
	"time"

	"github.com/JonMunkholm/addcountry/internal/core"
	"github.com/JonMunkholm/addcountry/internal/history"
)

func slotSummary(s core.RunLimiterStatus) string {
	return fmt.Sprintf("%d active, %d available of %d", s.Active, s.Available, s.MaxConcurrent)
}

func startedAt(run history.Run) string {
	return run.StartedAt.Local().Format("2006-01-02 15:04:05")
}

func records(run history.Run) string {
	return strconv.Itoa(run.Records)
}

func duration(run history.Run) string {
	return run.Duration.Round(time.Millisecond).String()
}
