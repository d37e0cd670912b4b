// Package server exposes the experiment service over HTTP with gin.
//
// Every route under /api requires a bearer token except algorithm-info.
// The report download also accepts the token as a ?token= query parameter
// so that browsers can follow a plain link.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/YuminosukeSato/scigolab/auth"
	"github.com/YuminosukeSato/scigolab/pkg/errors"
	"github.com/YuminosukeSato/scigolab/service"
)

// ServiceName is reported to the tracer.
const ServiceName = "scigolab"

// Options configures the HTTP surface.
type Options struct {
	// CORSOrigins lists allowed origins. "*" allows any origin without
	// credentials.
	CORSOrigins []string
}

// Server routes HTTP requests to the experiment service.
type Server struct {
	svc      *service.Experiments
	verifier *auth.Verifier
	engine   *gin.Engine
}

// New builds the router.
func New(svc *service.Experiments, verifier *auth.Verifier, opts Options) *Server {
	s := &Server{svc: svc, verifier: verifier}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(ServiceName))
	r.Use(requestID(), accessLog(), cors(opts.CORSOrigins))

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	api.GET("/experiments/algorithm-info", s.handleAlgorithmInfo)

	authed := api.Group("", s.requireAuth(false))
	authed.POST("/datasets/upload", s.handleUpload)
	authed.GET("/datasets/:id/columns", s.handleColumns)
	authed.GET("/datasets/:id/info", s.handleInfo)
	authed.POST("/experiments/run", s.handleRun)
	authed.GET("/experiments", s.handleList)
	authed.GET("/experiments/:id", s.handleGet)

	api.GET("/experiments/:id/download", s.requireAuth(true), s.handleDownload)

	s.engine = r
	return s
}

// Handler returns the router as an http.Handler.
func (s *Server) Handler() http.Handler { return s.engine }

// ListenAndServe serves on addr until ctx is canceled, then drains
// in-flight requests for up to shutdownGrace.
func (s *Server) ListenAndServe(ctx context.Context, addr string, shutdownGrace time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrapf(err, "listen on %s", addr)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "shutdown")
	}
	return nil
}
