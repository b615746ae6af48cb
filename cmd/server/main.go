package main

import (
	"context"
	"log"
	"net/http"

	"kollektor/internal/config"
	"kollektor/internal/database"
	"kollektor/internal/handlers"
	"kollektor/internal/jobs"
	"kollektor/internal/middleware"
	"kollektor/internal/scheduler"
	"kollektor/internal/store"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env file if it exists (ignore errors)
	_ = godotenv.Load()

	cfg := config.Load()

	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.RunMigrations(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	kinds, err := config.LoadKinds(cfg.KindsPath)
	if err != nil {
		log.Fatalf("Failed to load kind config: %v", err)
	}
	kindsStop := make(chan struct{})
	defer close(kindsStop)
	go func() {
		if err := kinds.Watch(kindsStop); err != nil {
			log.Printf("Kind config watcher stopped: %v", err)
		}
	}()

	jobStore := store.NewJobs(db)
	logStore := store.NewLogs(db)
	checkpointStore := store.NewCheckpoints(db)
	domainStore := store.NewDomains(db)

	supervisor := jobs.NewSupervisor(logStore, cfg.CollectorWorkdir, cfg.CancelGracePeriod)
	controller := jobs.NewController(jobStore, logStore, kinds, supervisor, jobs.Options{
		Timeout:           cfg.JobTimeout,
		HeartbeatInterval: cfg.HeartbeatInterval,
	})
	streamer := jobs.NewStreamer(jobStore, logStore, cfg.StreamPollInterval)

	// Jobs a previous server process left active are dead; finalize
	// them before accepting new work.
	if err := controller.RecoverInterrupted(context.Background()); err != nil {
		log.Fatalf("Failed to recover interrupted jobs: %v", err)
	}

	watchdog := scheduler.New(controller, cfg.WatchdogInterval)
	watchdog.Start()
	defer watchdog.Stop()

	router := mux.NewRouter()
	router.Use(middleware.CORSMiddleware)

	jobsHandler := handlers.NewJobsHandler(controller, jobStore, logStore, kinds)
	router.HandleFunc("/api/jobs", jobsHandler.CreateJob).Methods("POST", "OPTIONS")
	router.HandleFunc("/api/jobs", jobsHandler.ListJobs).Methods("GET", "OPTIONS")
	router.HandleFunc("/api/jobs/running", jobsHandler.RunningJob).Methods("GET", "OPTIONS")
	router.HandleFunc("/api/jobs/{id:[0-9]+}", jobsHandler.GetJob).Methods("GET", "OPTIONS")
	router.HandleFunc("/api/jobs/{id:[0-9]+}", jobsHandler.CancelJob).Methods("DELETE", "OPTIONS")
	router.HandleFunc("/api/jobs/{id:[0-9]+}/logs", jobsHandler.GetJobLogs).Methods("GET", "OPTIONS")
	router.HandleFunc("/api/kinds", jobsHandler.ListKinds).Methods("GET", "OPTIONS")

	streamHandler := handlers.NewStreamHandler(streamer)
	router.HandleFunc("/api/jobs/{id:[0-9]+}/stream", streamHandler.StreamSSE).Methods("GET")
	router.HandleFunc("/api/jobs/{id:[0-9]+}/ws", streamHandler.StreamWS).Methods("GET")

	checkpointsHandler := handlers.NewCheckpointsHandler(checkpointStore)
	router.HandleFunc("/api/checkpoints/stats", checkpointsHandler.Stats).Methods("GET", "OPTIONS")
	router.HandleFunc("/api/checkpoints/pending", checkpointsHandler.Pending).Methods("GET", "OPTIONS")
	router.HandleFunc("/api/checkpoints/seed", checkpointsHandler.Seed).Methods("POST", "OPTIONS")
	router.HandleFunc("/api/checkpoints/reset", checkpointsHandler.Reset).Methods("POST", "OPTIONS")

	domainsHandler := handlers.NewDomainsHandler(domainStore)
	router.HandleFunc("/api/domains", domainsHandler.ListDomains).Methods("GET", "OPTIONS")
	router.HandleFunc("/api/domains", domainsHandler.AddDomain).Methods("POST", "OPTIONS")
	router.HandleFunc("/api/domains/{id}", domainsHandler.DeleteDomain).Methods("DELETE", "OPTIONS")

	addr := ":" + cfg.ServerPort
	log.Printf("Server listening on %s", addr)
	if err := http.ListenAndServe(addr, router); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
