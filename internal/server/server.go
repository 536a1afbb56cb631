// Package server exposes the HTTP API over the event and validation
// collections.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"sort"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"news-impact-alerts/internal/correlator"
	"news-impact-alerts/internal/ingest"
	"news-impact-alerts/internal/llm"
	"news-impact-alerts/internal/market"
	"news-impact-alerts/internal/schema"
	"news-impact-alerts/internal/storage"
	"news-impact-alerts/internal/version"
)

var horizonPattern = regexp.MustCompile(`^(1h|6h|24h)$`)

// Options configure the HTTP listener.
type Options struct {
	Addr         string
	Mode         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Server wires the API handlers over the shared store, pipeline, and
// correlator.
type Server struct {
	opts       Options
	engine     *gin.Engine
	store      *storage.Store
	pipeline   *ingest.Pipeline
	correlator *correlator.Correlator
	selection  llm.Selection
	logger     zerolog.Logger
}

// New constructs the API server and registers its routes.
func New(opts Options, store *storage.Store, pipeline *ingest.Pipeline, corr *correlator.Correlator, selection llm.Selection, logger zerolog.Logger) *Server {
	mode := opts.Mode
	if mode == "" {
		mode = gin.ReleaseMode
	}
	gin.SetMode(mode)

	s := &Server{
		opts:       opts,
		engine:     gin.New(),
		store:      store,
		pipeline:   pipeline,
		correlator: corr,
		selection:  selection,
		logger:     logger.With().Str("component", "http").Logger(),
	}
	s.engine.Use(gin.Recovery())
	s.routes()
	return s
}

func (s *Server) routes() {
	api := s.engine.Group("/api")
	api.GET("/health", s.handleHealth)
	api.GET("/status", s.handleStatus)
	api.GET("/events", s.handleEvents)
	api.GET("/events/:id", s.handleEventByID)
	api.GET("/validations", s.handleValidations)
	api.GET("/price", s.handlePrice)
	api.POST("/analyze", s.handleAnalyze)
	api.POST("/analyze/batch", s.handleAnalyzeBatch)
	api.GET("/validate/:id", s.handleValidate)
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	readTimeout := s.opts.ReadTimeout
	if readTimeout <= 0 {
		readTimeout = 10 * time.Second
	}
	writeTimeout := s.opts.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = 30 * time.Second
	}
	srv := &http.Server{
		Addr:         s.opts.Addr,
		Handler:      s.engine,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.opts.Addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return <-errCh
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	events, validations := s.store.Counts()
	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"events":      events,
		"validations": validations,
	})
}

func (s *Server) handleStatus(c *gin.Context) {
	events, validations := s.store.Counts()
	c.JSON(http.StatusOK, gin.H{
		"version":     version.Version,
		"llm":         s.selection.Status(),
		"events":      events,
		"validations": validations,
	})
}

func (s *Server) handleEvents(c *gin.Context) {
	events := s.store.Events()
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Timestamp.After(events[j].Timestamp)
	})

	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
			return
		}
		if limit < len(events) {
			events = events[:limit]
		}
	}

	c.JSON(http.StatusOK, gin.H{"count": len(events), "events": events})
}

func (s *Server) handleEventByID(c *gin.Context) {
	event, ok := s.store.EventByID(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "event not found"})
		return
	}

	body := gin.H{"event": event, "validation": nil}
	if v, ok := s.store.ValidationForEvent(event.EventID); ok {
		body["validation"] = v
	}
	c.JSON(http.StatusOK, body)
}

func (s *Server) handleValidations(c *gin.Context) {
	validations := s.store.Validations()
	sort.SliceStable(validations, func(i, j int) bool {
		return validations[i].ValidatedAt.After(validations[j].ValidatedAt)
	})
	c.JSON(http.StatusOK, gin.H{"count": len(validations), "validations": validations})
}

func (s *Server) handlePrice(c *gin.Context) {
	ticker := c.Query("ticker")
	if ticker == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ticker is required"})
		return
	}

	priceRange := c.DefaultQuery("range", "1d")
	if !market.ValidRange(priceRange) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "range must be one of 1h, 1d, 1w, 1m"})
		return
	}

	series, err := market.PriceSeries(ticker, priceRange, time.Now().UTC())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, series)
}

func (s *Server) handleAnalyze(c *gin.Context) {
	var req schema.AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "headline is required"})
		return
	}

	event, err := s.pipeline.ProcessOne(c.Request.Context(), req)
	if err != nil {
		var violation *schema.SchemaViolationError
		if errors.As(err, &violation) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		s.logger.Error().Err(err).Msg("analyze request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "analysis failed"})
		return
	}

	c.JSON(http.StatusOK, event)
}

func (s *Server) handleAnalyzeBatch(c *gin.Context) {
	// Items are decoded individually so one malformed item becomes an
	// indexed failure instead of failing the whole batch.
	var items []json.RawMessage
	if err := json.NewDecoder(c.Request.Body).Decode(&items); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "body must be an array of analyze requests"})
		return
	}

	if len(items) > s.pipeline.MaxBatchItems() {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "batch exceeds maximum of " + strconv.Itoa(s.pipeline.MaxBatchItems()) + " items",
		})
		return
	}

	reqs := make([]schema.AnalyzeRequest, 0, len(items))
	indexes := make([]int, 0, len(items))
	var decodeFailures []ingest.ItemFailure
	for i, item := range items {
		var req schema.AnalyzeRequest
		if err := json.Unmarshal(item, &req); err != nil {
			decodeFailures = append(decodeFailures, ingest.ItemFailure{
				Index: i,
				Error: "malformed request: " + err.Error(),
			})
			continue
		}
		reqs = append(reqs, req)
		indexes = append(indexes, i)
	}

	result, err := s.pipeline.ProcessBatch(c.Request.Context(), reqs)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Pipeline failure indices refer to the decoded slice; map them back to
	// the submitted positions before merging in the decode failures.
	for i := range result.Failures {
		result.Failures[i].Index = indexes[result.Failures[i].Index]
	}
	result.Failures = append(result.Failures, decodeFailures...)
	sort.Slice(result.Failures, func(i, j int) bool {
		return result.Failures[i].Index < result.Failures[j].Index
	})
	result.Submitted = len(items)
	result.Rejected += len(decodeFailures)

	c.JSON(http.StatusOK, result)
}

func (s *Server) handleValidate(c *gin.Context) {
	horizon := c.DefaultQuery("horizon", "1h")
	if !horizonPattern.MatchString(horizon) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "horizon must be one of 1h, 6h, 24h"})
		return
	}

	v, err := s.correlator.Validate(c.Param("id"), horizon)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "event not found"})
		case errors.Is(err, correlator.ErrNoAssetsToValidate):
			c.JSON(http.StatusBadRequest, gin.H{"error": "event has no affected assets to validate"})
		default:
			s.logger.Error().Err(err).Str("event_id", c.Param("id")).Msg("validation failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "validation failed"})
		}
		return
	}

	c.JSON(http.StatusOK, v)
}
