package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/sheetstack/adminhub/apperrors"
	"github.com/sheetstack/adminhub/server/auth"
	"github.com/sheetstack/adminhub/types"
)

type submitRequestBody struct {
	Reason     string `json:"reason"`
	Experience string `json:"experience"`
}

// HandleSubmitRequest lets a signed-in user petition for admin privileges
func (svc *Service) HandleSubmitRequest() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, ok := auth.CallerFrom(r.Context())
		if !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]interface{}{"message": "Authentication required"})
			return
		}
		var body submitRequestBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			svc.writeError(w, &apperrors.ValidationError{Msg: "Unable to parse request body"}, "")
			return
		}
		if strings.TrimSpace(body.Reason) == "" {
			svc.writeError(w, &apperrors.ValidationError{Msg: "Reason is required"}, "")
			return
		}

		// Reject early when the caller already has a request in flight.
		// The partial unique index in db closes the race this check leaves open.
		existing, err := svc.dbService.GetRequests(bson.M{
			"user":   caller.ID,
			"status": types.StatusPending,
		})
		if err != nil {
			svc.writeError(w, err, "Unable to check for existing pending request")
			return
		}
		if len(existing) > 0 {
			svc.writeError(w, &apperrors.ConflictError{Msg: "You already have a pending admin request"}, "")
			return
		}

		created, err := svc.dbService.CreateRequest(types.AdminRequest{
			User:       caller.ID,
			Reason:     body.Reason,
			Experience: body.Experience,
		})
		if err != nil {
			svc.writeError(w, err, "Unable to create admin request")
			return
		}
		svc.recordStatsTransition(created)

		writeJSON(w, http.StatusCreated, map[string]interface{}{
			"message": "Admin request submitted successfully",
			"request": created,
		})
	}
}

// HandleGetPendingRequests returns all pending requests joined with the
// requester's display identity, newest first
func (svc *Service) HandleGetPendingRequests() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requests, err := svc.dbService.GetRequests(bson.M{"status": types.StatusPending})
		if err != nil {
			svc.writeError(w, err, "Unable to get pending requests")
			return
		}

		requesters, err := svc.requestersByID(requests)
		if err != nil {
			svc.writeError(w, err, "Unable to load requester accounts")
			return
		}

		views := make([]types.PendingRequestView, 0, len(requests))
		for _, request := range requests {
			view := types.PendingRequestView{
				ID:         request.ID.Hex(),
				Reason:     request.Reason,
				Experience: request.Experience,
				Status:     request.Status,
				CreatedAt:  request.CreatedAt,
				User:       types.RequesterView{ID: request.User.Hex()},
			}
			if requester, ok := requesters[request.User]; ok {
				view.User = types.NewRequesterView(requester)
			}
			views = append(views, view)
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"requests": views})
	}
}

// requestersByID loads the accounts behind a batch of requests in one query
func (svc *Service) requestersByID(requests []types.AdminRequest) (map[primitive.ObjectID]*types.User, error) {
	ids := make([]primitive.ObjectID, 0, len(requests))
	for _, request := range requests {
		ids = append(ids, request.User)
	}
	requesters := make(map[primitive.ObjectID]*types.User, len(ids))
	if len(ids) == 0 {
		return requesters, nil
	}
	users, err := svc.dbService.GetUsers(bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	for i := range users {
		requesters[users[i].ID] = &users[i]
	}
	return requesters, nil
}

// HandleApproveRequest grants a pending request: the requester's role is
// promoted first, then the request is stamped with the decision
func (svc *Service) HandleApproveRequest() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, _ := auth.CallerFrom(r.Context())
		requestID, err := primitive.ObjectIDFromHex(mux.Vars(r)["id"])
		if err != nil {
			svc.writeError(w, &apperrors.NotFoundError{Msg: "Request not found or already processed"}, "")
			return
		}

		pending, err := svc.dbService.GetRequests(bson.M{"_id": requestID, "status": types.StatusPending})
		if err != nil {
			svc.writeError(w, err, "Unable to get request")
			return
		}
		if len(pending) == 0 {
			svc.writeError(w, &apperrors.NotFoundError{Msg: "Request not found or already processed"}, "")
			return
		}

		if err := svc.dbService.PromoteUser(pending[0].User); err != nil {
			svc.writeError(w, err, "Unable to promote user to admin")
			return
		}
		updated, err := svc.dbService.DecideRequest(requestID, types.StatusApproved, caller.ID)
		if err != nil {
			svc.writeError(w, err, "Unable to update request status")
			return
		}
		svc.recordStatsTransition(*updated)

		writeJSON(w, http.StatusOK, map[string]interface{}{"message": "Admin request approved successfully"})
	}
}

// HandleRejectRequest declines a pending request in a single store operation
func (svc *Service) HandleRejectRequest() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, _ := auth.CallerFrom(r.Context())
		requestID, err := primitive.ObjectIDFromHex(mux.Vars(r)["id"])
		if err != nil {
			svc.writeError(w, &apperrors.NotFoundError{Msg: "Request not found or already processed"}, "")
			return
		}

		updated, err := svc.dbService.DecideRequest(requestID, types.StatusRejected, caller.ID)
		if err != nil {
			svc.writeError(w, err, "Unable to update request status")
			return
		}
		svc.recordStatsTransition(*updated)

		writeJSON(w, http.StatusOK, map[string]interface{}{"message": "Admin request rejected"})
	}
}
