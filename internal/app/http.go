package app

import (
	"encoding/json"
	"net/http"
	"time"

	"energy-tariffs/internal/api"
	"energy-tariffs/internal/auth"
	"energy-tariffs/internal/ingest"
	"energy-tariffs/internal/observability"
)

// IngestPath is where feeders connect.
const IngestPath = "/ws/ingest"

// StatusResponse is the JSON response for /status endpoint.
type StatusResponse struct {
	Status            string    `json:"status"`
	Uptime            string    `json:"uptime"`
	Backend           string    `json:"backend"`
	Timezone          string    `json:"timezone"`
	Rules             []string  `json:"rules"`
	LastDerivation    time.Time `json:"last_derivation,omitempty"`
	LastStored        int       `json:"last_stored"`
	LastDerivationErr string    `json:"last_derivation_error,omitempty"`
}

// Handler serves the API, the ingest endpoint and the health, metrics and
// status endpoints. With auth enabled, API and ingest need a bearer token
// and derivation and ingest need the operator role.
func (a *App) Handler() http.Handler {
	var guard func(http.Handler) http.Handler
	if a.Config.Auth.Enabled() {
		mw := auth.NewMiddleware([]byte(a.Config.Auth.Secret),
			[]string{"/" + api.RouteDerive, IngestPath}, a.logger.Named("auth"))
		guard = mw.Wrap
	} else {
		guard = func(h http.Handler) http.Handler { return h }
	}

	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", observability.Handler())
	mux.HandleFunc("/status", a.handleStatus)

	mux.Handle(IngestPath, guard(ingest.NewServer(a.Repo, nil, a.logger.Named("ingest"))))
	mux.Handle("/", guard(api.NewHandler(a.Service, a.logger.Named("api"))))
	return mux
}

func (a *App) handleStatus(w http.ResponseWriter, r *http.Request) {
	rules := a.Calculator.Rules()
	names := make([]string, len(rules))
	for i, rule := range rules {
		names[i] = rule.Name()
	}

	a.mu.Lock()
	resp := StatusResponse{
		Status:            "running",
		Uptime:            time.Since(a.started).Round(time.Second).String(),
		Backend:           a.Stores.Backend,
		Timezone:          a.Location.String(),
		Rules:             names,
		LastDerivation:    a.lastRun.At,
		LastStored:        a.lastRun.Stored,
		LastDerivationErr: a.lastRun.Err,
	}
	a.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}
