package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/GriffinCanCode/vitibrasil/internal/analysis"
	"github.com/GriffinCanCode/vitibrasil/internal/catalog"
	"github.com/GriffinCanCode/vitibrasil/internal/sweep"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var (
	ErrStoreDisabled = errors.New("persistence is disabled")
	ErrNotFound      = errors.New("no data found")
)

const (
	defaultSweepLimit = 50
	maxSweepLimit     = 500
)

// Sweeper runs live sweeps.
type Sweeper interface {
	Aggregate(ctx context.Context, category string, years []int) (*sweep.Table, error)
	Catalog() *catalog.Catalog
}

// Store persists records and sweep history.
type Store interface {
	UpsertRecords(ctx context.Context, records []sweep.Record) (int, error)
	QueryRecords(ctx context.Context, category string, f sweep.Filter) ([]sweep.Record, error)
	RecordSweep(ctx context.Context, st sweep.Stats) error
	ListSweeps(ctx context.Context, category string, limit int) ([]sweep.Stats, error)
	Ping(ctx context.Context) error
}

// Handlers contains all HTTP handlers
type Handlers struct {
	sweeper Sweeper
	store   Store
	logger  *zap.Logger

	upstream func() string
}

// NewHandlers creates a new handler set. A nil store disables the
// persistence endpoints.
func NewHandlers(sweeper Sweeper, store Store, logger *zap.Logger) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{sweeper: sweeper, store: store, logger: logger}
}

// SetUpstreamStatus registers a reporter of the upstream circuit state,
// shown by Health.
func (h *Handlers) SetUpstreamStatus(fn func() string) {
	h.upstream = fn
}

// Register mounts every route on r.
func (h *Handlers) Register(r gin.IRouter, sweepLimit gin.HandlerFunc) {
	if sweepLimit == nil {
		sweepLimit = func(c *gin.Context) { c.Next() }
	}
	r.GET("/health", h.Health)

	v1 := r.Group("/api/v1")
	v1.GET("/categories", h.ListCategories)
	v1.GET("/sweeps", h.ListSweeps)
	v1.GET("/:category", h.QueryRecords)
	v1.POST("/:category", h.CreateRecord)
	v1.GET("/:category/scrape", sweepLimit, h.Scrape)
	v1.POST("/:category/update", sweepLimit, h.Update)
	v1.GET("/:category/summary", h.Summary)
}

// Health reports liveness and the store status.
func (h *Handlers) Health(c *gin.Context) {
	status := "disabled"
	if h.store != nil {
		status = "ok"
		if err := h.store.Ping(c.Request.Context()); err != nil {
			h.logger.Warn("store ping failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "store": "unreachable"})
			return
		}
	}
	body := gin.H{
		"status":     "healthy",
		"store":      status,
		"categories": h.sweeper.Catalog().Names(),
	}
	if h.upstream != nil {
		body["upstream"] = h.upstream()
	}
	c.JSON(http.StatusOK, body)
}

// ListCategories returns the catalog.
func (h *Handlers) ListCategories(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"categories": h.sweeper.Catalog().Categories})
}

// Scrape sweeps the requested years live and returns the filtered rows.
func (h *Handlers) Scrape(c *gin.Context) {
	cat, ok := h.category(c)
	if !ok {
		return
	}
	years, ok := queryYears(c, cat)
	if !ok {
		return
	}
	filter, ok := queryFilter(c)
	if !ok {
		return
	}
	if len(years) == 0 {
		years = []int{cat.LatestYear()}
	}

	table, err := h.sweeper.Aggregate(c.Request.Context(), cat.Name, years)
	if err != nil {
		h.sweepFailed(c, err)
		return
	}

	table = table.Filter(filter)
	if table.Empty() {
		notFound(c, years)
		return
	}
	c.JSON(http.StatusOK, table.Rows())
}

// Update sweeps (by default the whole range) and upserts into the store.
func (h *Handlers) Update(c *gin.Context) {
	cat, ok := h.category(c)
	if !ok {
		return
	}
	if !h.requireStore(c) {
		return
	}
	years, ok := queryYears(c, cat)
	if !ok {
		return
	}
	if len(years) == 0 {
		years = cat.AllYears()
	}

	ctx := c.Request.Context()
	table, err := h.sweeper.Aggregate(ctx, cat.Name, years)
	if err != nil {
		h.sweepFailed(c, err)
		return
	}
	if table.Empty() {
		notFound(c, years)
		return
	}

	n, err := h.store.UpsertRecords(ctx, table.Records)
	if err != nil {
		h.logger.Error("upsert failed", zap.String("category", cat.Name), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store records"})
		return
	}
	if err := h.store.RecordSweep(ctx, table.Stats); err != nil {
		h.logger.Warn("failed to record sweep", zap.String("sweep", table.Stats.ID), zap.Error(err))
	}

	h.logger.Info("category updated", zap.String("category", cat.Name), zap.Int("stored", n))
	c.Header("X-Sweep-ID", table.Stats.ID)
	c.JSON(http.StatusCreated, table.Rows())
}

// QueryRecords reads stored records with the scrape filters.
func (h *Handlers) QueryRecords(c *gin.Context) {
	cat, ok := h.category(c)
	if !ok {
		return
	}
	if !h.requireStore(c) {
		return
	}
	records, years, ok := h.query(c, cat)
	if !ok {
		return
	}
	if len(records) == 0 {
		notFound(c, years)
		return
	}
	table := &sweep.Table{Category: cat, Records: records}
	c.JSON(http.StatusOK, table.Rows())
}

// CreateRecord stores one record sent with the category's field names.
func (h *Handlers) CreateRecord(c *gin.Context) {
	cat, ok := h.category(c)
	if !ok {
		return
	}
	if !h.requireStore(c) {
		return
	}

	var body map[string]any
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body"})
		return
	}
	record, err := decodeRecord(cat, body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if _, err := h.store.UpsertRecords(c.Request.Context(), []sweep.Record{record}); err != nil {
		h.logger.Error("insert failed", zap.String("category", cat.Name), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store record"})
		return
	}
	c.JSON(http.StatusCreated, record.Row(cat))
}

// Summary describes stored records per year. medida selects quantidade
// (default) or valor.
func (h *Handlers) Summary(c *gin.Context) {
	cat, ok := h.category(c)
	if !ok {
		return
	}
	if !h.requireStore(c) {
		return
	}

	measure := analysis.MeasureQuantity
	role := catalog.RoleQuantity
	switch c.DefaultQuery("medida", "quantidade") {
	case "quantidade":
	case "valor":
		measure, role = analysis.MeasureValue, catalog.RoleValue
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "medida must be quantidade or valor"})
		return
	}
	column, ok := cat.ColumnFor(role)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("%s has no %s column", cat.Name, role)})
		return
	}

	records, years, ok := h.query(c, cat)
	if !ok {
		return
	}
	if len(records) == 0 {
		notFound(c, years)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"category": cat.Name,
		"measure":  column,
		"years":    analysis.Summarize(records, measure),
	})
}

// ListSweeps returns recent sweep history, newest first.
func (h *Handlers) ListSweeps(c *gin.Context) {
	if !h.requireStore(c) {
		return
	}
	category := c.Query("category")
	if category != "" {
		if _, err := h.sweeper.Catalog().Get(category); err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
	}

	limit := defaultSweepLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = min(n, maxSweepLimit)
	}

	sweeps, err := h.store.ListSweeps(c.Request.Context(), category, limit)
	if err != nil {
		h.logger.Error("list sweeps failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list sweeps"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"sweeps": sweeps})
}

func (h *Handlers) query(c *gin.Context, cat *catalog.Category) ([]sweep.Record, []int, bool) {
	years, ok := queryYears(c, cat)
	if !ok {
		return nil, nil, false
	}
	filter, ok := queryFilter(c)
	if !ok {
		return nil, nil, false
	}
	for _, y := range years {
		filter.Years = append(filter.Years, fmt.Sprintf("%04d", y))
	}

	records, err := h.store.QueryRecords(c.Request.Context(), cat.Name, filter)
	if err != nil {
		h.logger.Error("query failed", zap.String("category", cat.Name), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to query records"})
		return nil, nil, false
	}
	return records, years, true
}

func (h *Handlers) category(c *gin.Context) (*catalog.Category, bool) {
	cat, err := h.sweeper.Catalog().Get(c.Param("category"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return nil, false
	}
	return cat, true
}

func (h *Handlers) requireStore(c *gin.Context) bool {
	if h.store == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": ErrStoreDisabled.Error()})
		return false
	}
	return true
}

func (h *Handlers) sweepFailed(c *gin.Context, err error) {
	switch {
	case errors.Is(err, catalog.ErrUnknownCategory):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, catalog.ErrInvalidYear):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": "sweep timed out"})
	case errors.Is(err, context.Canceled):
		// client went away; nothing useful to write
		c.Status(499)
	default:
		h.logger.Error("sweep failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "sweep failed"})
	}
}

func notFound(c *gin.Context, years []int) {
	if len(years) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": ErrNotFound.Error()})
		return
	}
	labels := make([]string, len(years))
	for i, y := range years {
		labels[i] = strconv.Itoa(y)
	}
	c.JSON(http.StatusNotFound, gin.H{
		"error": "Nenhum dado encontrado para o(s) ano(s): " + strings.Join(labels, ", "),
	})
}
