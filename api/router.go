// Package api exposes model fitting and scoring over HTTP. Each machine has
// one published model; refitting replaces it wholesale while in-flight
// scoring requests keep the snapshot they started with.
package api

import (
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// NewRouter registers the API routes on a fresh router.
func NewRouter(s *Server) *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/health", s.health).Methods("GET")
	r.HandleFunc("/machines", s.listMachines).Methods("GET")
	r.HandleFunc("/machines/{machine}/model", s.fitModel).Methods("POST")
	r.HandleFunc("/machines/{machine}/model", s.getModel).Methods("GET")
	r.HandleFunc("/machines/{machine}/score", s.score).Methods("POST")
	r.HandleFunc("/machines/{machine}/contributions", s.contributions).Methods("POST")

	return r
}

// Handler wraps the router with access logging and panic recovery, both
// written through logrus.
func Handler(s *Server) http.Handler {
	logger := logrus.StandardLogger()
	recovered := handlers.RecoveryHandler(
		handlers.RecoveryLogger(logger),
		handlers.PrintRecoveryStack(logger.IsLevelEnabled(logrus.DebugLevel)),
	)(NewRouter(s))
	return handlers.CombinedLoggingHandler(logger.WriterLevel(logrus.InfoLevel), recovered)
}
