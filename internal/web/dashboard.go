package web

import (
	"net/http"

	"github.com/JonMunkholm/addcountry/internal/web/templates"
)

const dashboardRuns = 20

// handleDashboard renders the upload forms and recent run history.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	runs, err := s.service.RecentRuns(r.Context(), dashboardRuns)
	if err != nil {
		respondError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	page := templates.Dashboard(s.paths, s.service.Limiter().Status(), runs)
	if err := page.Render(r.Context(), w); err != nil {
		respondError(w, r, err)
	}
}
