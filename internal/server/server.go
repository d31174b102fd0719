// Package server assembles the HTTP API, the background extraction sweep,
// and graceful shutdown.
package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/plumeai/plume/internal/config"
	"github.com/plumeai/plume/internal/handler"
	"github.com/plumeai/plume/internal/handler/chat"
	"github.com/plumeai/plume/internal/handler/memory"
	"github.com/plumeai/plume/internal/logging"
	"github.com/plumeai/plume/internal/svc"
)

// Options holds optional server dependencies.
type Options struct {
	// SvcCtx is a pre-initialized service context; when nil the server
	// builds and owns one.
	SvcCtx *svc.ServiceContext
	// Quiet suppresses startup messages for clean CLI output.
	Quiet bool
	// Version is reported by the health endpoint.
	Version string
}

// Run starts the relay server. It blocks until the context is cancelled or
// startup fails.
func Run(ctx context.Context, c config.Config, opts Options) error {
	if err := checkPortAvailable(c.Server.Port); err != nil {
		return fmt.Errorf("port %d is already in use", c.Server.Port)
	}

	svcCtx := opts.SvcCtx
	if svcCtx == nil {
		var err error
		svcCtx, err = svc.NewServiceContext(c, opts.Version)
		if err != nil {
			return err
		}
		defer svcCtx.Close()
	}

	r := chi.NewRouter()
	if !opts.Quiet {
		r.Use(chimw.Logger)
	}
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(corsMiddleware())

	r.Get("/health", handler.HealthCheckHandler(svcCtx))
	r.Get("/healthz", handler.HealthCheckHandler(svcCtx))

	// OpenAI-style entry point; everything else lives under /api/v1.
	r.Post("/v1/chat/completions", chat.ChatCompletionsHandler(svcCtx))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/conversations", chat.ListConversationsHandler(svcCtx))
		r.Post("/conversations", chat.CreateConversationHandler(svcCtx))
		r.Get("/conversations/{id}", chat.GetConversationHandler(svcCtx))
		r.Get("/conversations/{id}/turns", chat.ListTurnsHandler(svcCtx))
		r.Put("/conversations/{id}/compression", chat.SetCompressionHandler(svcCtx))

		r.Get("/memories", memory.ListMemoriesHandler(svcCtx))
		r.Put("/memories/{id}", memory.UpdateMemoryHandler(svcCtx))
		r.Delete("/memories/{id}", memory.DeleteMemoryHandler(svcCtx))
		r.Post("/memories/extract", memory.ExtractMemoriesHandler(svcCtx))
	})

	sweep := startSweep(svcCtx)

	// Write timeouts are omitted: SSE responses stay open for the length of
	// an upstream generation.
	httpServer := &http.Server{
		Addr:        c.Addr(),
		Handler:     r,
		IdleTimeout: 120 * time.Second,
	}

	if !opts.Quiet {
		fmt.Printf("Server ready at http://%s\n", c.Addr())
	}

	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Errorf("HTTP server error: %v", err)
		}
	}()

	<-ctx.Done()

	if !opts.Quiet {
		fmt.Println("\nShutting down server gracefully...")
	}
	if sweep != nil {
		<-sweep.Stop().Done()
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

func checkPortAvailable(port int) error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return err
	}
	return ln.Close()
}

func corsMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
