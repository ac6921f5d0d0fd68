package httpserver

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
)

const readyPingTimeout = time.Second

// Server owns the storefront HTTP listener.
type Server struct {
	httpServer *http.Server
	logger     *log.Logger
}

// New builds a Server with all API routes. Write and idle timeouts follow the
// per-request budget so a timed-out handler can still flush its 503.
func New(addr string, logger *log.Logger, db *pgxpool.Pool, deps Deps, opts Options) (*Server, error) {
	router, err := buildRouter(logger, db, deps, opts)
	if err != nil {
		return nil, err
	}

	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	if opts.RequestTimeout > 0 {
		httpSrv.WriteTimeout = opts.RequestTimeout + 5*time.Second
		httpSrv.IdleTimeout = 4 * opts.RequestTimeout
	}

	return &Server{httpServer: httpSrv, logger: logger}, nil
}

func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Printf("http server: draining connections")
	return s.httpServer.Shutdown(ctx)
}

// healthHandler is liveness only; it never touches the database.
func healthHandler(started time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		now := time.Now().UTC()
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": now,
			"uptime":    now.Sub(started).Truncate(time.Second).String(),
		})
	}
}

func readyHandler(db *pgxpool.Pool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if db == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "reason": "db not configured"})
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), readyPingTimeout)
		defer cancel()
		if err := db.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "reason": "db not reachable"})
			return
		}
		stat := db.Stat()
		c.JSON(http.StatusOK, gin.H{
			"status": "ready",
			"db": gin.H{
				"totalConns": stat.TotalConns(),
				"idleConns":  stat.IdleConns(),
				"maxConns":   stat.MaxConns(),
			},
		})
	}
}
