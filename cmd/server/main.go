// Package main is the entry point for the skinport-tracker service, which
// scores marketplace items as buy-then-resell opportunities from live listing
// snapshots and sales history.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/ragecodes1337/skinport-tracker-sub000/internal/batch"
	"github.com/ragecodes1337/skinport-tracker-sub000/internal/config"
	"github.com/ragecodes1337/skinport-tracker-sub000/internal/fetch"
	"github.com/ragecodes1337/skinport-tracker-sub000/internal/model"
	"github.com/ragecodes1337/skinport-tracker-sub000/internal/otel"
	"github.com/ragecodes1337/skinport-tracker-sub000/internal/pipeline"
	"github.com/ragecodes1337/skinport-tracker-sub000/internal/ratelimit"
)

const version = "1.0.0"

// startTime records when the service was initialized for uptime reporting
var startTime = time.Now()

// Server holds the HTTP surface around the analysis pipeline.
type Server struct {
	cfg      config.Config
	pipeline *pipeline.Pipeline
	limiter  *ratelimit.Limiter
	inbound  *rate.Limiter
	metrics  *serverMetrics
	server   *http.Server
}

// serverMetrics holds Prometheus metrics for the server
type serverMetrics struct {
	requestCounter   *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	opportunityCount prometheus.Gauge
	limiterOccupancy prometheus.Gauge
	limiterCapacity  prometheus.Gauge
}

// registerMetrics sets up Prometheus metrics collection
func registerMetrics() *serverMetrics {
	m := &serverMetrics{
		requestCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tracker_requests_total",
				Help: "Total number of analysis requests processed",
			},
			[]string{"status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tracker_request_duration_seconds",
				Help:    "Analysis request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"status"},
		),
		opportunityCount: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "tracker_opportunities_found",
				Help: "Opportunities found by the most recent analysis run",
			},
		),
		limiterOccupancy: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "tracker_rate_limiter_occupancy",
				Help: "Outbound admissions recorded in the current window",
			},
		),
		limiterCapacity: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "tracker_rate_limiter_capacity",
				Help: "Outbound admissions allowed per window",
			},
		),
	}

	prometheus.MustRegister(
		m.requestCounter,
		m.requestDuration,
		m.opportunityCount,
		m.limiterOccupancy,
		m.limiterCapacity,
	)

	return m
}

// main is the entry point for the application
func main() {
	if err := godotenv.Load(); err != nil {
		logrus.Debug("No .env file found")
	}

	setupLogging()
	cfg := config.Load()

	shutdownTracer := otel.InitTracer(cfg)
	defer shutdownTracer()

	// One limiter for the whole process; both sources share it.
	limiter := ratelimit.New(cfg.RateLimitMax, cfg.RateLimitWindow)
	snapshots := fetch.NewSnapshotSource(cfg, limiter)
	sales := fetch.NewSalesSource(cfg, limiter)
	planner := batch.NewPlanner(cfg.BatchMaxEncodedLen, cfg.BatchMaxItems)

	pipe := pipeline.New(snapshots, sales, planner, cfg.DefaultCurrency, cfg.InterBatchDelay)

	server := NewServer(cfg, pipe, limiter)
	server.Start()
}

// setupLogging configures the logging for the application
func setupLogging() {
	logFormat := strings.ToLower(os.Getenv("LOG_FORMAT"))
	logLevel := strings.ToLower(os.Getenv("LOG_LEVEL"))

	switch logFormat {
	case "json":
		logrus.SetFormatter(&logrus.JSONFormatter{})
	default:
		logrus.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}

	switch logLevel {
	case "debug":
		logrus.SetLevel(logrus.DebugLevel)
	case "info":
		logrus.SetLevel(logrus.InfoLevel)
	case "warn", "warning":
		logrus.SetLevel(logrus.WarnLevel)
	case "error":
		logrus.SetLevel(logrus.ErrorLevel)
	default:
		logrus.SetLevel(logrus.InfoLevel)
	}
}

// NewServer creates a new server instance around the pipeline
func NewServer(cfg config.Config, pipe *pipeline.Pipeline, limiter *ratelimit.Limiter) *Server {
	s := &Server{
		cfg:      cfg,
		pipeline: pipe,
		limiter:  limiter,
		inbound:  rate.NewLimiter(rate.Limit(cfg.InboundRPS), cfg.InboundBurst),
		metrics:  registerMetrics(),
	}

	logrus.WithFields(logrus.Fields{
		"port":             cfg.Port,
		"upstream":         cfg.SkinportURL,
		"app_id":           cfg.AppID,
		"rate_limit":       cfg.RateLimitMax,
		"rate_window":      cfg.RateLimitWindow,
		"cache_ttl":        cfg.CacheTTL,
		"default_currency": cfg.DefaultCurrency,
	}).Info("Server initialized")

	return s
}

// Start begins the HTTP server and sets up graceful shutdown
func (s *Server) Start() {
	mux := http.NewServeMux()

	mux.HandleFunc("/analyze", s.withCORS(s.handleAnalyze))
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/limiter", s.handleLimiter)
	mux.Handle("/metrics", promhttp.Handler())

	s.server = &http.Server{
		Addr:         ":" + s.cfg.Port,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 10 * time.Minute, // analysis runs may wait on the upstream quota
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logrus.Infof("Server starting on port %s", s.cfg.Port)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("Error starting server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		logrus.Fatalf("Server shutdown failed: %v", err)
	}

	logrus.Info("Server stopped")
}

// withCORS wraps a handler with permissive CORS headers; no decision logic.
func (s *Server) withCORS(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next(w, r)
	}
}

// handleAnalyze runs the opportunity pipeline for one analysis request.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if !s.inbound.Allow() {
		s.errorResponse(w, http.StatusTooManyRequests, "Rate limit exceeded")
		return
	}

	var request model.AnalysisRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := s.pipeline.Run(r.Context(), request)
	s.updateLimiterGauges()
	if err != nil {
		otel.RecordError(r.Context(), err)
		if errors.Is(err, pipeline.ErrInvalidRequest) {
			s.errorResponse(w, http.StatusBadRequest, err.Error())
			return
		}
		logrus.Errorf("Analysis run failed: %v", err)
		s.errorResponse(w, http.StatusInternalServerError, "Analysis failed")
		return
	}

	s.metrics.opportunityCount.Set(float64(len(result.Opportunities)))
	s.metrics.requestCounter.WithLabelValues("success").Inc()
	s.metrics.requestDuration.WithLabelValues("success").Observe(time.Since(start).Seconds())

	logrus.WithFields(logrus.Fields{
		"processed":  result.Summary.TotalProcessed,
		"profitable": result.Summary.ProfitableFound,
		"latency_ms": time.Since(start).Milliseconds(),
	}).Info("Analysis run complete")

	writeJSON(w, http.StatusOK, result)
}

// handleHealth is a simple health check endpoint
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "OK",
		"version":   version,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// handleStatus provides detailed service status information
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	admitted, capacity := s.limiter.Occupancy()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "operational",
		"uptime":  time.Since(startTime).String(),
		"version": version,
		"configuration": map[string]interface{}{
			"upstream":         s.cfg.SkinportURL,
			"app_id":           s.cfg.AppID,
			"default_currency": s.cfg.DefaultCurrency,
			"cache_ttl":        s.cfg.CacheTTL.String(),
		},
		"rate_limiter": map[string]interface{}{
			"admitted":  admitted,
			"capacity":  capacity,
			"window_ms": s.limiter.Window().Milliseconds(),
		},
	})
}

// handleLimiter exposes current rate limiter occupancy for monitoring.
func (s *Server) handleLimiter(w http.ResponseWriter, r *http.Request) {
	admitted, capacity := s.limiter.Occupancy()
	s.updateLimiterGauges()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"admitted":  admitted,
		"capacity":  capacity,
		"window_ms": s.limiter.Window().Milliseconds(),
	})
}

func (s *Server) updateLimiterGauges() {
	admitted, capacity := s.limiter.Occupancy()
	s.metrics.limiterOccupancy.Set(float64(admitted))
	s.metrics.limiterCapacity.Set(float64(capacity))
}

// errorResponse returns a formatted error payload
func (s *Server) errorResponse(w http.ResponseWriter, statusCode int, errorMsg string) {
	logrus.Warn(errorMsg)
	s.metrics.requestCounter.WithLabelValues("error").Inc()
	writeJSON(w, statusCode, map[string]interface{}{
		"status": "error",
		"error":  errorMsg,
	})
}

func writeJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logrus.Warnf("Encoding response: %v", err)
	}
}
