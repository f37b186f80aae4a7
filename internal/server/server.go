// Package server exposes parsing, day computation and report rendering over
// HTTP. Handlers are stateless: every request builds its own timesheet
// service from the request body and the server's default schedule.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"afd-timebank/internal/matcher"
	"afd-timebank/internal/parsers"
	"afd-timebank/internal/timebank"
	"afd-timebank/internal/timesheet"
	"afd-timebank/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Config holds HTTP server options
type Config struct {
	Address         string        `mapstructure:"address" json:"address"`
	Mode            string        `mapstructure:"mode" json:"mode"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" json:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" json:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" json:"shutdown_timeout"`
	MaxBodyBytes    int64         `mapstructure:"max_body_bytes" json:"max_body_bytes"`
}

// DefaultConfig returns the default server configuration
func DefaultConfig() *Config {
	return &Config{
		Address:         ":8080",
		Mode:            gin.ReleaseMode,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    60 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		MaxBodyBytes:    32 << 20,
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Address == "" {
		return fmt.Errorf("address is required")
	}
	switch c.Mode {
	case gin.ReleaseMode, gin.DebugMode, gin.TestMode:
	default:
		return fmt.Errorf("invalid mode: %s", c.Mode)
	}
	if c.MaxBodyBytes <= 0 {
		return fmt.Errorf("max body bytes must be positive, got %d", c.MaxBodyBytes)
	}
	return nil
}

// Server serves the HTTP API
type Server struct {
	config         *Config
	serviceConfig  *timesheet.Config
	parseConfig    *parsers.ParseConfig
	matchingConfig *matcher.MatchingConfig
	logger         logger.Logger

	mu       sync.RWMutex
	schedule *timebank.Config
}

// NewServer creates a server. Nil configs fall back to their defaults.
func NewServer(config *Config, serviceConfig *timesheet.Config, parseConfig *parsers.ParseConfig, matchingConfig *matcher.MatchingConfig) (*Server, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid server configuration: %w", err)
	}
	if serviceConfig == nil {
		serviceConfig = timesheet.DefaultConfig()
	}

	return &Server{
		config:         config,
		serviceConfig:  serviceConfig,
		parseConfig:    parseConfig,
		matchingConfig: matchingConfig,
		logger:         logger.GetGlobalLogger().WithComponent("http_server"),
		schedule:       timebank.DefaultConfig(),
	}, nil
}

// UpdateSchedule replaces the schedule used when a request carries none
func (s *Server) UpdateSchedule(cfg *timebank.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	s.schedule = cfg.Clone()
	s.mu.Unlock()

	s.logger.WithField("schedule", cfg.String()).Info("default schedule reloaded")
	return nil
}

// Schedule returns a copy of the default schedule
func (s *Server) Schedule() *timebank.Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.schedule.Clone()
}

// Router builds the gin engine with every route registered
func (s *Server) Router() *gin.Engine {
	gin.SetMode(s.config.Mode)

	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger(), s.limitBody())

	r.GET("/health", s.health)

	api := r.Group("/api/v1")
	{
		api.POST("/parse", s.parse)
		api.POST("/timesheets", s.timesheets)
		api.POST("/report", s.report)
		api.GET("/schedule", s.currentSchedule)
		api.POST("/days/compute", s.computeDay)
		api.POST("/days/edit", s.editDay)
	}

	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.config.Address,
		Handler:      s.Router(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("address", s.config.Address).Info("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()

	s.logger.Info("HTTP server shutting down")
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := s.logger.WithFields(logger.Fields{
			"method":   c.Request.Method,
			"path":     c.FullPath(),
			"status":   c.Writer.Status(),
			"duration": time.Since(start),
		})
		if c.Writer.Status() >= http.StatusInternalServerError {
			entry.Warn("request failed")
			return
		}
		entry.Debug("request served")
	}
}

func (s *Server) limitBody() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.config.MaxBodyBytes)
		c.Next()
	}
}

// newService builds a per-request service on the current default schedule
func (s *Server) newService() (*timesheet.Service, error) {
	svc, err := timesheet.NewService(s.serviceConfig, s.parseConfig, s.matchingConfig)
	if err != nil {
		return nil, err
	}
	if err := svc.UpdateConfiguration(s.Schedule()); err != nil {
		return nil, err
	}
	return svc, nil
}
