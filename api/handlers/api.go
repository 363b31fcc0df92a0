package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/civicpulse/complaints-api/api"
	"github.com/civicpulse/complaints-api/auth"
	"github.com/civicpulse/complaints-api/config"
	"github.com/civicpulse/complaints-api/databases"
	"github.com/civicpulse/complaints-api/lifecycle"
	"github.com/civicpulse/complaints-api/models"
)

// App stores the router and db connection, so it can be reused
type App struct {
	Router    *mux.Router
	Config    config.Config
	Publisher lifecycle.Publisher
	Uploader  ImageUploader
	Hub       http.Handler
	Metrics   *api.MetricsCollector
	dbHelper  databases.DatabaseHelper
	client    databases.ClientHelper
	shutdown  []func(context.Context)
}

// New creates a new mux router and all the routes
func (a *App) New() *mux.Router {
	if a.Metrics == nil {
		a.Metrics = api.NewMetricsCollector()
	}

	udb := databases.NewUserDatabase(a.dbHelper)
	cdb := databases.NewComplaintDatabase(a.dbHelper)
	allowList := auth.NewAllowList(a.Config.AuthorityUsernames)
	tokens := auth.NewTokens(a.Config.JWTSecret, a.Config.JWTExpires)

	// setup go-guardian for sign-in
	m := &api.MiddlewareDB{DB: udb, AllowList: allowList, Tokens: tokens}
	m.SetupGoGuardian()
	bearer := api.RequireBearer(tokens)

	c := Complaint{DB: cdb, Engine: lifecycle.NewEngine(cdb, tokens, a.Publisher), Publisher: a.Publisher}
	u := User{DB: udb, AllowList: allowList, Tokens: tokens, Region: a.Config.CitizenRegion}
	up := Upload{Uploader: a.Uploader}

	r := mux.NewRouter()
	r.Use(api.RequestID, api.MetricsMiddleware(a.Metrics))

	// healthchex
	r.HandleFunc("/health", healthCheckHandler)
	if a.Hub != nil {
		r.Handle("/ws/complaints", a.Hub).Methods("GET")
	}

	apiCreate := r.PathPrefix("/api/v1").Subrouter()
	if a.Config.RequestTimeout > 0 {
		apiCreate.Use(api.TimeoutMiddleware(a.Config.RequestTimeout))
	}

	apiCreate.Handle("/auth/signup", http.HandlerFunc(u.SignUpHandler)).Methods("POST")
	apiCreate.Handle("/auth/signin", http.HandlerFunc(m.SignIn)).Methods("POST")

	apiCreate.Handle("/complaints", http.HandlerFunc(c.ComplaintsHandler)).Methods("GET")
	apiCreate.Handle("/complaints", bearer(http.HandlerFunc(c.CreateComplaintHandler))).Methods("POST")
	apiCreate.Handle("/complaints/{complaint_id}", http.HandlerFunc(c.ComplaintByIDHandler)).Methods("GET")
	apiCreate.Handle("/complaints/{complaint_id}", http.HandlerFunc(c.ComplaintActionHandler)).Methods("PATCH")

	apiCreate.Handle("/upload/image", bearer(http.HandlerFunc(up.UploadImageHandler))).Methods("POST")

	apiCreate.Handle("/metrics/routes", http.HandlerFunc(a.metricsHandler)).Methods("GET")

	// swagger docs hosted at "/"
	r.PathPrefix("/").Handler(http.StripPrefix("/", http.FileServer(http.Dir("./docs/")))).Methods("GET")
	return r
}

// Initialize is invoked by main to connect with the database, the change feed and the
// image host, and create a router
func (a *App) Initialize(ctx context.Context) error {
	client, err := databases.NewClient(&a.Config)
	if err != nil {
		// if we fail to create a new database client, then kill the pod
		zap.S().With(err).Error("failed to create new client")
		return err
	}

	a.dbHelper = databases.NewDatabase(&a.Config, client)
	err = client.Connect(ctx)
	if err != nil {
		// if we fail to connect to the database, then kill the pod
		zap.S().With(err).Error("failed to connect to database")
		return err
	}
	a.client = client
	zap.S().Info("complaints-api has connected to the database")

	if err = a.initializeFeed(ctx); err != nil {
		return err
	}
	a.initializeUploader()

	// initialize api router
	a.initializeRoutes()
	return nil
}

// Database returns the database helper set up by Initialize
func (a *App) Database() databases.DatabaseHelper {
	return a.dbHelper
}

// Close disconnects everything Initialize connected
func (a *App) Close(ctx context.Context) {
	for i := len(a.shutdown) - 1; i >= 0; i-- {
		a.shutdown[i](ctx)
	}
	if a.client != nil {
		if err := a.client.Disconnect(ctx); err != nil {
			zap.S().Errorw("failed to disconnect from database", "error", err)
		}
	}
}

func (a *App) initializeRoutes() {
	a.Router = a.New()
}

func (a *App) metricsHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	b, err := json.Marshal(a.Metrics.Routes())
	if err != nil {
		config.ErrorStatus("failed to marshal response", http.StatusInternalServerError, w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	b, _ := json.Marshal(models.HealthCheckResponse{
		Alive: true,
	})
	_, _ = io.WriteString(w, string(b))
}
