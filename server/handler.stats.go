package server

import (
	"net/http"
)

// HandleGetStats returns the cached real-time workflow stats
func (svc *Service) HandleGetStats() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := svc.cache.GetRealTimeStats()
		if err != nil {
			svc.writeError(w, err, "Unable to get real-time stats")
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"stats": stats})
	}
}
