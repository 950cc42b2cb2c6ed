package main

import (
	"flag"
	"net/http"
	"os"

	"github.com/gorilla/handlers"

	"community-load-profiles/internal/api"
	"community-load-profiles/internal/api/handler"
	"community-load-profiles/internal/logging"
	"community-load-profiles/internal/store"

	_ "community-load-profiles/docs"
)

// @title Community Load Profiles API
// @version 1.0
// @description Run management API for the community load profile aggregation engine.
// @host localhost:8080
// @BasePath /api/v1
func main() {
	var (
		dbPath = flag.String("db", "profiles.db", "path to the run-tracking database")
		debug  = flag.Bool("debug", false, "enable debug logging")
	)
	flag.Parse()

	log := logging.New(*debug)
	defer log.Sync()
	handler.SetLogger(log)

	if err := store.InitDB(*dbPath); err != nil {
		log.Fatalw("init database", "path", *dbPath, "err", err)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	r := api.NewRouter()
	log.Infow("listening", "port", port)
	if err := http.ListenAndServe(":"+port, handlers.LoggingHandler(os.Stdout, r)); err != nil {
		log.Fatalw("server stopped", "err", err)
	}
}
