package keihantracker

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/dk-butsuri/keihan-tracker/store"
	"github.com/dk-butsuri/keihan-tracker/tracker"
)

// Server exposes the tracker over HTTP. The store is optional; without
// it the history endpoint answers 404.
type Server struct {
	tracker *tracker.Tracker
	store   *store.Store
	http    *http.Server
}

func NewServer(tr *tracker.Tracker, st *store.Store, port int) *Server {
	s := &Server{tracker: tr, store: st}

	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
	r.Get("/api/health", s.handleHealth)
	r.Get("/api/trains", s.handleTrains)
	r.Get("/api/trains/most-delayed", s.handleMostDelayed)
	r.Get("/api/trains/{blockNo}", s.handleTrain)
	r.Get("/api/trains/{blockNo}/history", s.handleTrainHistory)
	r.Get("/api/stations", s.handleStations)
	r.Get("/api/stations/{number}", s.handleStation)
	r.Get("/api/stations/{number}/upcoming", s.handleUpcoming)

	s.http = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Start begins serving in the background.
func (s *Server) Start() {
	go func() {
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()
	log.Printf("server listening on %s", s.http.Addr)
}

// HandleGracefulShutdown blocks until SIGINT/SIGTERM, then drains the
// server.
func (s *Server) HandleGracefulShutdown() {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	log.Printf("shutdown signal received")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.http.Shutdown(ctx); err != nil {
		log.Printf("server shutdown error: %v", err)
	} else {
		log.Printf("server shut down successfully")
	}
}
