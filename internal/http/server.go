package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo/v4"
	echoMid "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/jmehdipour/visa-crm/internal/config"
	"github.com/jmehdipour/visa-crm/internal/http/middleware"
	"github.com/jmehdipour/visa-crm/internal/metrics"
	"github.com/jmehdipour/visa-crm/internal/repository"
)

type Server struct {
	e   *echo.Echo
	log *zap.Logger
}

// Handlers carries what the API routes need; tests build it with fakes.
type Handlers struct {
	Customers      repository.CustomersRepository
	SendLogs       repository.SendLogsRepository
	Location       *time.Location
	Now            func() time.Time
	MaxUploadBytes int64
	Log            *zap.Logger
}

func NewServer(cfg config.Config, mysqlDB *sqlx.DB, rds *redis.Client, log *zap.Logger) (*Server, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	h := Handlers{
		Customers:      repository.NewCustomersRepository(mysqlDB),
		SendLogs:       repository.NewSendLogsRepository(mysqlDB),
		Location:       loc,
		Now:            time.Now,
		MaxUploadBytes: cfg.Import.MaxUploadBytes,
		Log:            log,
	}

	metrics.MustRegister(prometheus.DefaultRegisterer)

	rlMW := middleware.RateLimitMiddleware(middleware.RateLimitConfig{
		Counter:        middleware.NewRedisCounter(rds),
		RPS:            cfg.RateLimit.RPS,
		KeyPrefix:      "rl:ip:",
		Window:         time.Second,
		RetryAfterHint: true,
	})

	return &Server{e: NewRouter(h, rlMW), log: log}, nil
}

// NewRouter wires echo with health, metrics and the /api routes. apiMW wraps /api only.
func NewRouter(h Handlers, apiMW ...echo.MiddlewareFunc) *echo.Echo {
	if h.Log == nil {
		h.Log = zap.NewNop()
	}
	if h.Now == nil {
		h.Now = time.Now
	}
	if h.Location == nil {
		h.Location = time.UTC
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(echoMid.Recover(), middleware.RequestLogger(h.Log))

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// health
	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })

	bodyLimit := h.MaxUploadBytes
	if bodyLimit <= 0 {
		bodyLimit = 10 << 20
	}
	apiMW = append([]echo.MiddlewareFunc{echoMid.BodyLimit(strconv.FormatInt(bodyLimit, 10) + "B")}, apiMW...)

	// routes
	api := e.Group("/api", apiMW...)
	api.GET("/customers", listCustomersHandler(h))
	api.POST("/customers", createCustomerHandler(h))
	api.DELETE("/customers/:id", deleteCustomerHandler(h))
	api.GET("/informed-customers", informedCustomersHandler(h))
	api.POST("/import-excel", importPreviewHandler(h))
	api.POST("/commit-import", commitImportHandler(h))

	return e
}

func (s *Server) Start(addr string) error {
	s.log.Info("http: listening", zap.String("addr", addr))
	return s.e.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error { return s.e.Shutdown(ctx) }
