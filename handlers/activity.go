package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tourneyhub/tourneyhub/client-core/internal/activity"
)

const defaultActivityLimit = 50

// ActivityQuerier is implemented by activity.Aggregator.
type ActivityQuerier interface {
	ListByType(ctx context.Context, t activity.Type, limit int) []activity.Record
	ComputeStats(ctx context.Context, start, end *time.Time) *activity.Stats
}

type ActivityHandler struct {
	agg ActivityQuerier
}

func NewActivityHandler(agg ActivityQuerier) *ActivityHandler {
	return &ActivityHandler{agg: agg}
}

// Register routes under /activity
func (h *ActivityHandler) Register(rg gin.IRoutes) {
	rg.GET("/activity", h.List)
	rg.GET("/activity/stats", h.Stats)
}

// List returns the newest records of one type: GET /activity?type=login&limit=20
func (h *ActivityHandler) List(c *gin.Context) {
	t := activity.Type(c.Query("type"))
	limit := defaultActivityLimit
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = n
	}
	recs := h.agg.ListByType(c.Request.Context(), t, limit)
	if recs == nil {
		recs = []activity.Record{}
	}
	c.JSON(http.StatusOK, gin.H{"records": recs, "count": len(recs)})
}

// Stats aggregates over [start, end): GET /activity/stats?start=2024-01-01&end=2024-02-01
func (h *ActivityHandler) Stats(c *gin.Context) {
	start, err := parseBound(c.Query("start"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	end, err := parseBound(c.Query("end"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	stats := h.agg.ComputeStats(c.Request.Context(), start, end)
	if stats == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "activity statistics unavailable"})
		return
	}
	c.JSON(http.StatusOK, stats)
}

// parseBound accepts RFC 3339 or a bare date; empty means unbounded.
func parseBound(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, fmt.Errorf("invalid time bound %q", s)
}
