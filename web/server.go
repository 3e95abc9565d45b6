package web

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// StartWebServer initializes and starts the status server in a new goroutine.
// It takes an AppController, which is an interface implemented by the main
// application, and shuts down gracefully when the context is cancelled.
func StartWebServer(ctx context.Context, addr string, controller AppController) {
	if addr == "" {
		addr = ":8080"
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/status", statusHandler(controller))
	mux.HandleFunc("/pnl", pnlHandler(controller))
	mux.HandleFunc("/universe", universeHandler(controller))
	mux.HandleFunc("/config", configHandler(controller))
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		controller.Logger().LogInfo("Starting status server on http://localhost%s", addr)
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			controller.Logger().LogFatal("Web server failed: %v", err)
		}
	}()

	go func() {
		<-ctx.Done()
		controller.Logger().LogInfo("Shutting down web server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			controller.Logger().LogError("Web server graceful shutdown failed: %v", err)
		}
	}()
}
