package server

import (
	"encoding/json"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/sheetstack/adminhub/apperrors"
	"github.com/sheetstack/adminhub/types"
)

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// writeError translates a workflow error into its HTTP response. Anything
// outside the known taxonomy becomes a generic 500 with the detail kept
// server-side only.
func (svc *Service) writeError(w http.ResponseWriter, err error, logMsg string) {
	switch e := err.(type) {
	case *apperrors.ValidationError:
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"message": e.Msg})
	case *apperrors.ConflictError:
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"message": e.Msg})
	case *apperrors.NotFoundError:
		writeJSON(w, http.StatusNotFound, map[string]interface{}{"message": e.Msg})
	default:
		svc.logger.WithFields(logrus.Fields{
			"err": err.Error(),
		}).Error(logMsg)
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{"message": "Server error"})
	}
}

// recordStatsTransition feeds a request transition into the stats cache.
// A stats failure never fails the API call that caused it.
func (svc *Service) recordStatsTransition(request types.AdminRequest) {
	if err := svc.cache.UpdateRealTimeStats(request); err != nil {
		svc.logger.WithFields(logrus.Fields{
			"err":       err.Error(),
			"requestID": request.ID.Hex(),
		}).Error("Unable to update real-time stats")
	}
}
