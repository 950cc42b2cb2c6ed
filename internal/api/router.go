package api

import (
	"net/http"

	"github.com/gorilla/mux"
	httpSwagger "github.com/swaggo/http-swagger"

	"community-load-profiles/internal/api/handler"
)

// NewRouter wires the run-management API and the swagger UI.
func NewRouter() *mux.Router {
	r := mux.NewRouter()

	v1 := r.PathPrefix("/api/v1").Subrouter()
	v1.HandleFunc("/runs", handler.CreateRun).Methods(http.MethodPost)
	v1.HandleFunc("/runs", handler.ListRuns).Methods(http.MethodGet)
	v1.HandleFunc("/runs/{id}", handler.GetRun).Methods(http.MethodGet)
	v1.HandleFunc("/runs/{id}/errors", handler.GetRunErrors).Methods(http.MethodGet)
	v1.HandleFunc("/runs/{id}/progress", handler.GetRunProgress).Methods(http.MethodGet)
	v1.HandleFunc("/runs/{id}/results", handler.GetRunResults).Methods(http.MethodGet)

	r.HandleFunc("/healthz", handler.Health).Methods(http.MethodGet)
	r.PathPrefix("/swagger/").Handler(httpSwagger.WrapHandler)

	return r
}
