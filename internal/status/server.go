// Package status exposes the operator HTTP surface: health check, engine
// snapshot, and Prometheus metrics.
package status

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/subtensor-tools/regsniper/internal/engine"
)

// SnapshotFunc supplies the current engine snapshot.
type SnapshotFunc func() engine.Snapshot

// Router builds the status routes. An empty token leaves the endpoints
// open; /healthz is always open.
func Router(snap SnapshotFunc, token string) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	authed := r.Group("/", TokenMiddleware(token))
	authed.GET("/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, snap())
	})
	authed.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

// Serve runs the status server in the background until ctx is cancelled.
// Port 0 disables it.
func Serve(ctx context.Context, port int, handler http.Handler, log *zap.Logger) {
	if port <= 0 {
		log.Info("status server disabled")
		return
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: handler,
	}

	go func() {
		log.Info("status server starting", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("status server error", zap.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn("status server shutdown error", zap.Error(err))
		}
	}()
}
