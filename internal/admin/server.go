package admin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nao1215/jokeimport/internal/config"
	"github.com/nao1215/jokeimport/internal/importer"
	"github.com/nao1215/jokeimport/internal/model"
)

// Route paths.
const (
	SettingsPath = "/admin/config/jokes/settings"
	ImportPath   = "/admin/config/jokes/import"
	JokesPath    = "/admin/jokes"
	ContentPath  = "/jokes/content"
	LogsPath     = "/jokes/logs"
	HealthPath   = "/health"
	MetricsPath  = "/metrics"
)

// shutdownTimeout bounds graceful shutdown.
const shutdownTimeout = 10 * time.Second

// Service is what the admin surface needs from the application.
type Service interface {
	Settings() config.Settings
	PatchSettings(fn func(*config.Settings)) (config.Settings, error)
	ImportNow(ctx context.Context) (*model.ImportReport, error)
	ListJokes(ctx context.Context, page int) ([]model.JokeSummary, error)
	Ping(ctx context.Context) error
}

// Server is the admin HTTP server.
type Server struct {
	svc     Service
	logger  *slog.Logger
	metrics http.Handler
	engine  *gin.Engine
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithMetricsHandler replaces the default promhttp handler.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// New builds the server and its routes.
func New(svc Service, opts ...Option) *Server {
	s := &Server{svc: svc}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.metrics == nil {
		s.metrics = promhttp.Handler()
	}

	engine := gin.New()
	engine.Use(gin.Recovery(), s.requestLogger())

	engine.GET(SettingsPath, s.getSettings)
	engine.PUT(SettingsPath, s.putSettings)
	engine.POST(ImportPath, s.postImport)
	engine.GET(JokesPath, s.listJokes)
	engine.GET(ContentPath, s.contentRedirect)
	engine.GET(LogsPath, s.logsRedirect)
	engine.GET(HealthPath, s.health)
	engine.GET(MetricsPath, gin.WrapH(s.metrics))

	s.engine = engine
	return s
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("admin server listening", "address", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("admin server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("admin server shutdown: %w", err)
	}
	s.logger.Info("admin server stopped")
	return nil
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("admin request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"elapsed", time.Since(start),
		)
	}
}

func (s *Server) getSettings(c *gin.Context) {
	c.JSON(http.StatusOK, s.svc.Settings())
}

// settingsPatch holds the fields present in a PUT body.
type settingsPatch struct {
	APIURL   *string `json:"api_url"`
	NodeType *string `json:"node_type"`
	PageSize *int    `json:"page_size"`
}

func (s *Server) putSettings(c *gin.Context) {
	var patch settingsPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	next, err := s.svc.PatchSettings(func(cur *config.Settings) {
		if patch.APIURL != nil {
			cur.APIURL = *patch.APIURL
		}
		if patch.NodeType != nil {
			cur.NodeType = *patch.NodeType
		}
		if patch.PageSize != nil {
			cur.PageSize = *patch.PageSize
		}
	})
	if err != nil {
		status := http.StatusInternalServerError
		if isValidationError(err) {
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	s.logger.Info("settings updated",
		config.KeyAPIURL, next.APIURL,
		config.KeyNodeType, next.NodeType,
		config.KeyPageSize, next.PageSize,
	)
	c.JSON(http.StatusOK, next)
}

func (s *Server) postImport(c *gin.Context) {
	report, err := s.svc.ImportNow(c.Request.Context())
	if err != nil {
		status := http.StatusInternalServerError
		if isValidationError(err) {
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": report.Message(),
		"report":  report,
	})
}

func (s *Server) listJokes(c *gin.Context) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "0"))
	if err != nil || page < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "page must be a non-negative integer"})
		return
	}

	rows, err := s.svc.ListJokes(c.Request.Context(), page)
	if errors.Is(err, model.ErrInvalidPage) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		s.logger.Error("failed to list jokes", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list jokes"})
		return
	}
	if rows == nil {
		rows = []model.JokeSummary{}
	}
	c.JSON(http.StatusOK, gin.H{"page": page, "jokes": rows})
}

func (s *Server) contentRedirect(c *gin.Context) {
	q := "title=&type=" + url.QueryEscape(s.svc.Settings().NodeType) + "&status=All&langcode=All"
	c.Redirect(http.StatusFound, "/admin/content?"+q)
}

func (s *Server) logsRedirect(c *gin.Context) {
	c.Redirect(http.StatusFound, "/admin/reports/dblog?type%5B%5D="+config.ModuleName)
}

func (s *Server) health(c *gin.Context) {
	if err := s.svc.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": config.AppName})
}

// isValidationError reports whether err comes from rejected input.
func isValidationError(err error) bool {
	for _, target := range []error{
		config.ErrInvalidAPIURL,
		config.ErrInvalidNodeType,
		config.ErrInvalidPageSize,
		importer.ErrInvalidCount,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
