// Package auth provides the middleware chain guarding the admin API:
// JWT verification, resolution of the token subject to a user account,
// and the admin-role guard. Handlers behind the chain assume the caller
// is already authorized and read the caller identity off the context.
package auth

import (
	"context"
	"encoding/json"
	"net/http"

	jwtmiddleware "github.com/auth0/go-jwt-middleware"
	"github.com/dgrijalva/jwt-go"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/sheetstack/adminhub/db"
	"github.com/sheetstack/adminhub/types"
)

type contextKey struct{}

var callerKey = contextKey{}

// Middleware verifies caller identity and privilege before a handler runs
type Middleware struct {
	dbService *db.Service
	logger    *logrus.Entry
	verifier  *jwtmiddleware.JWTMiddleware
}

// NewMiddleware creates the auth middleware. A nil extractor reads the
// token from the Authorization header; SSE endpoints pass
// jwtmiddleware.FromParameter since EventSource cannot set headers.
func NewMiddleware(dbService *db.Service, logger *logrus.Entry, extractor jwtmiddleware.TokenExtractor) *Middleware {
	if extractor == nil {
		extractor = jwtmiddleware.FromAuthHeader
	}
	verifier := jwtmiddleware.New(jwtmiddleware.Options{
		ValidationKeyGetter: func(token *jwt.Token) (interface{}, error) {
			return []byte(viper.GetString("jwtTokenSecret")), nil
		},
		SigningMethod: jwt.SigningMethodHS256,
		Extractor:     extractor,
	})
	return &Middleware{
		dbService: dbService,
		logger:    logger,
		verifier:  verifier,
	}
}

// Authenticate verifies the JWT and resolves its subject to a user
// account which is stored on the request context
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return m.verifier.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := r.Context().Value("user").(*jwt.Token)
		if !ok {
			unauthorized(w, "Invalid token")
			return
		}
		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			unauthorized(w, "Invalid token")
			return
		}
		subject, _ := claims["sub"].(string)
		userID, err := primitive.ObjectIDFromHex(subject)
		if err != nil {
			unauthorized(w, "Invalid token")
			return
		}
		caller, err := m.dbService.GetUserByID(userID)
		if err != nil {
			m.logger.WithFields(logrus.Fields{
				"err":    err.Error(),
				"userID": subject,
			}).Warn("Unable to resolve token subject to a user account")
			unauthorized(w, "Invalid token")
			return
		}
		next.ServeHTTP(w, r.WithContext(WithCaller(r.Context(), caller)))
	}))
}

// RequireAdmin short-circuits callers whose account role is not admin.
// Must run after Authenticate.
func (m *Middleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caller, ok := CallerFrom(r.Context())
		if !ok {
			unauthorized(w, "Authentication required")
			return
		}
		if caller.Role != types.RoleAdmin {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusForbidden)
			json.NewEncoder(w).Encode(map[string]interface{}{"message": "Admin access required"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// WithCaller attaches the resolved caller account to the context
func WithCaller(ctx context.Context, caller *types.User) context.Context {
	return context.WithValue(ctx, callerKey, caller)
}

// CallerFrom returns the caller account resolved by Authenticate
func CallerFrom(ctx context.Context) (*types.User, bool) {
	caller, ok := ctx.Value(callerKey).(*types.User)
	return caller, ok
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]interface{}{"message": message})
}
