package server

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/sheetstack/adminhub/apperrors"
	"github.com/sheetstack/adminhub/types"
)

// HandleGetUsers returns all accounts' public profile subset, newest first
func (svc *Service) HandleGetUsers() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		users, err := svc.dbService.GetUsers(bson.D{{}})
		if err != nil {
			svc.writeError(w, err, "Unable to get users")
			return
		}
		views := make([]types.UserView, 0, len(users))
		for i := range users {
			views = append(views, types.NewUserView(&users[i]))
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"users": views})
	}
}

// HandleGetUserFiles returns the projection of a user's uploaded spreadsheets
func (svc *Service) HandleGetUserFiles() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := svc.userFromVars(r)
		if err != nil {
			svc.writeError(w, err, "Unable to get user")
			return
		}
		views := make([]types.FileView, 0, len(user.ExcelRecords))
		for _, record := range user.ExcelRecords {
			views = append(views, types.NewFileView(record))
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"files": views})
	}
}

// HandleGetUserCharts returns the projection of a user's generated charts
func (svc *Service) HandleGetUserCharts() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := svc.userFromVars(r)
		if err != nil {
			svc.writeError(w, err, "Unable to get user")
			return
		}
		views := make([]types.ChartView, 0, len(user.ChartRecords))
		for _, record := range user.ChartRecords {
			views = append(views, types.NewChartView(record))
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"charts": views})
	}
}

type updateStatusBody struct {
	Action string `json:"action"`
}

// HandleUpdateUserStatus suspends or re-activates an account
func (svc *Service) HandleUpdateUserStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body updateStatusBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			svc.writeError(w, &apperrors.ValidationError{Msg: "Unable to parse request body"}, "")
			return
		}
		var status, message string
		switch body.Action {
		case "suspend":
			status = types.UserSuspended
			message = "User suspended successfully"
		case "activate":
			status = types.UserActive
			message = "User activated successfully"
		default:
			svc.writeError(w, &apperrors.ValidationError{Msg: "Invalid action"}, "")
			return
		}

		userID, err := primitive.ObjectIDFromHex(mux.Vars(r)["userId"])
		if err != nil {
			svc.writeError(w, &apperrors.NotFoundError{Msg: "User not found"}, "")
			return
		}
		if err := svc.dbService.UpdateUserStatus(userID, status); err != nil {
			svc.writeError(w, err, "Unable to update user status")
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "message": message})
	}
}

func (svc *Service) userFromVars(r *http.Request) (*types.User, error) {
	userID, err := primitive.ObjectIDFromHex(mux.Vars(r)["userId"])
	if err != nil {
		return nil, &apperrors.NotFoundError{Msg: "User not found"}
	}
	return svc.dbService.GetUserByID(userID)
}
