package server

import (
	"net/http"

	jwtmiddleware "github.com/auth0/go-jwt-middleware"
	"github.com/felixge/httpsnoop"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"

	"github.com/sheetstack/adminhub/cache"
	"github.com/sheetstack/adminhub/db"
	"github.com/sheetstack/adminhub/server/auth"
	"github.com/sheetstack/adminhub/server/sse"
)

// Service is the admin workflow REST API server
type Service struct {
	dbService  *db.Service
	cache      *cache.Service
	sseServer  *sse.Broker
	router     *mux.Router
	auth       *auth.Middleware
	streamAuth *auth.Middleware
	logger     *logrus.Entry
}

// NewService creates a new admin workflow API server
func NewService(dbService *db.Service, cache *cache.Service, sseServer *sse.Broker, logger *logrus.Entry) *Service {
	return &Service{
		dbService:  dbService,
		cache:      cache,
		sseServer:  sseServer,
		router:     mux.NewRouter().StrictSlash(true),
		auth:       auth.NewMiddleware(dbService, logger, nil),
		streamAuth: auth.NewMiddleware(dbService, logger, jwtmiddleware.FromParameter("access_token")),
		logger:     logger,
	}
}

// Listen opens up the http port for the REST API and registers all routes
func (svc *Service) Listen(port string) {
	log := svc.logger
	svc.routes()
	log.WithFields(logrus.Fields{
		"port": port,
	}).Info("The API http server starts listening")

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT"},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	})
	handler := c.Handler(svc.router)

	// capture http related metrics
	wrappedH := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m := httpsnoop.CaptureMetrics(handler, w, r)
		svc.logger.Infof("%s %s (code=%d dt=%s)",
			r.Method,
			r.URL,
			m.Code,
			m.Duration,
		)
	})
	log.Fatal(http.ListenAndServe(port, wrappedH))
}

func (svc *Service) routes() {
	api := svc.router.PathPrefix("/api/v1/admin").Subrouter()

	// The stats stream authenticates through a query token because
	// EventSource cannot set request headers
	api.Handle("/stats/stream",
		svc.streamAuth.Authenticate(svc.streamAuth.RequireAdmin(svc.sseServer))).Methods("GET")

	// Submitting a request needs a signed-in caller but no privilege
	api.Handle("/request",
		svc.auth.Authenticate(svc.HandleSubmitRequest())).Methods("POST")

	// Everything below is administrator only
	admin := api.NewRoute().Subrouter()
	admin.Use(mux.MiddlewareFunc(svc.auth.Authenticate), mux.MiddlewareFunc(svc.auth.RequireAdmin))
	admin.HandleFunc("/requests", svc.HandleGetPendingRequests()).Methods("GET")
	admin.HandleFunc("/requests/{id}/approve", svc.HandleApproveRequest()).Methods("PUT")
	admin.HandleFunc("/requests/{id}/reject", svc.HandleRejectRequest()).Methods("PUT")
	admin.HandleFunc("/users", svc.HandleGetUsers()).Methods("GET")
	admin.HandleFunc("/users/{userId}/files", svc.HandleGetUserFiles()).Methods("GET")
	admin.HandleFunc("/users/{userId}/charts", svc.HandleGetUserCharts()).Methods("GET")
	admin.HandleFunc("/users/{userId}", svc.HandleUpdateUserStatus()).Methods("PUT")
	admin.HandleFunc("/stats", svc.HandleGetStats()).Methods("GET")
}
