package http

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"textile-backend/internal/handlers"
	"textile-backend/internal/middleware"
)

// uuidPattern keeps {id} from swallowing fixed segments like /status or /reconcile
const uuidPattern = "{id:[0-9a-fA-F-]{36}}"

func NewRouter(
	lotHandler *handlers.LotHandler,
	dispatchHandler *handlers.DispatchHandler,
	reportHandler *handlers.ReportHandler,
	healthHandler *handlers.HealthHandler,
	wsHandler http.HandlerFunc,
) *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.MetricsMiddleware)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(middleware.RequestLogger)

	// Lots
	lotsAPI := api.PathPrefix("/lots").Subrouter()
	lotsAPI.HandleFunc("", lotHandler.ListLots).Methods("GET")
	lotsAPI.HandleFunc("", lotHandler.CreateLot).Methods("POST")
	lotsAPI.HandleFunc("/status", lotHandler.SetStatus).Methods("POST")
	lotsAPI.HandleFunc("/status/{status}", lotHandler.ListByStatus).Methods("GET")
	lotsAPI.HandleFunc("/completed/{stage}", lotHandler.ListCompleted).Methods("GET")
	lotsAPI.HandleFunc("/"+uuidPattern, lotHandler.GetLot).Methods("GET")
	lotsAPI.HandleFunc("/"+uuidPattern, lotHandler.UpdateLot).Methods("PUT")
	lotsAPI.HandleFunc("/"+uuidPattern, lotHandler.DeleteLot).Methods("DELETE")
	lotsAPI.HandleFunc("/"+uuidPattern+"/entries", lotHandler.AppendEntry).Methods("POST")
	lotsAPI.HandleFunc("/"+uuidPattern+"/advance", lotHandler.Advance).Methods("POST")

	// Entries
	entriesAPI := api.PathPrefix("/entries").Subrouter()
	entriesAPI.HandleFunc("/"+uuidPattern, lotHandler.UpdateEntry).Methods("PUT")
	entriesAPI.HandleFunc("/"+uuidPattern, lotHandler.DeleteEntry).Methods("DELETE")

	// Dispatch ledger
	dispatchAPI := api.PathPrefix("/dispatch").Subrouter()
	dispatchAPI.HandleFunc("", dispatchHandler.List).Methods("GET")
	dispatchAPI.HandleFunc("", dispatchHandler.Create).Methods("POST")
	dispatchAPI.HandleFunc("/reconcile", dispatchHandler.Reconcile).Methods("GET")
	dispatchAPI.HandleFunc("/"+uuidPattern, dispatchHandler.Get).Methods("GET")
	dispatchAPI.HandleFunc("/"+uuidPattern, dispatchHandler.Update).Methods("PUT")
	dispatchAPI.HandleFunc("/"+uuidPattern, dispatchHandler.Delete).Methods("DELETE")

	// Reports
	api.HandleFunc("/reports", reportHandler.ListViews).Methods("GET")
	api.HandleFunc("/reports/{view}", reportHandler.GetReport).Methods("GET")

	// Live lot events
	if wsHandler != nil {
		r.HandleFunc("/ws", wsHandler).Methods("GET")
	}

	// Health endpoints (no auth)
	r.HandleFunc("/health", healthHandler.BasicHealth).Methods("GET")
	r.HandleFunc("/health/ready", healthHandler.ReadinessHealth).Methods("GET")
	r.HandleFunc("/health/detailed", healthHandler.DetailedHealth).Methods("GET")

	// Prometheus metrics endpoint
	r.Handle("/metrics", promhttp.Handler())

	return r
}
