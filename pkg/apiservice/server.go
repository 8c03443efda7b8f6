package apiservice

import (
	"context"
	"net"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pingcap/errors"
	"github.com/pingcap/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// APIService exposes the progress and metrics of a run while it executes.
type APIService struct {
	APIInfo *APIInfo
	router  *gin.Engine
	server  *http.Server
}

func New(info *APIInfo, gatherer prometheus.Gatherer) *APIService {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())

	info.registerRouter(r)
	RegisterMetric(r, gatherer)

	return &APIService{
		APIInfo: info,
		router:  r,
		server:  &http.Server{Handler: r},
	}
}

// RegisterMetric registers the metric handler.
func RegisterMetric(router *gin.Engine, gatherer prometheus.Gatherer) {
	handler := promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
	router.GET("/metrics", func(c *gin.Context) {
		handler.ServeHTTP(c.Writer, c.Request)
	})
}

func (service *APIService) Handler() http.Handler {
	return service.router
}

// Serve blocks until the listener is closed by Shutdown.
func (service *APIService) Serve(l net.Listener) error {
	log.Info("API service started", zap.String("address", l.Addr().String()))
	if err := service.server.Serve(l); err != nil && err != http.ErrServerClosed {
		return errors.Annotate(err, "serve failed")
	}
	return nil
}

func (service *APIService) Shutdown(ctx context.Context) error {
	log.Info("Shutting down API service ...")
	return errors.Trace(service.server.Shutdown(ctx))
}
