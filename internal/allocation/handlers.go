package allocation

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/coopcentral/coopcentral/internal/ledger"
	"github.com/coopcentral/coopcentral/internal/logging"
	"github.com/coopcentral/coopcentral/internal/pagination"
)

// Handler provides admin HTTP endpoints for allocation settings and
// the fee-split report.
type Handler struct {
	engine *Engine
	ledger *ledger.Ledger
}

// NewHandler creates a new allocation handler.
func NewHandler(engine *Engine, l *ledger.Ledger) *Handler {
	return &Handler{engine: engine, ledger: l}
}

// RegisterRoutes sets up the admin allocation routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/allocations", h.GetAllocations)
	r.PUT("/allocations", h.SetAllocations)
	r.GET("/reports/fees", h.FeeReport)
}

// GetAllocations handles GET /v1/admin/allocations.
func (h *Handler) GetAllocations(c *gin.Context) {
	s, err := h.engine.Get(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
		return
	}
	c.JSON(http.StatusOK, s)
}

// SetAllocations handles PUT /v1/admin/allocations. All five fields
// are required; the record is replaced as a whole.
func (h *Handler) SetAllocations(c *gin.Context) {
	var req struct {
		Apex             *float64 `json:"apex" binding:"required"`
		Platform         *float64 `json:"platform" binding:"required"`
		CooperativeShare *float64 `json:"cooperativeShare" binding:"required"`
		LeaderShare      *float64 `json:"leaderShare" binding:"required"`
		ParentOrgShare   *float64 `json:"parentOrgShare" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "all five percentage fields are required"})
		return
	}

	saved, err := h.engine.Set(c.Request.Context(), Settings{
		Apex:             *req.Apex,
		Platform:         *req.Platform,
		CooperativeShare: *req.CooperativeShare,
		LeaderShare:      *req.LeaderShare,
		ParentOrgShare:   *req.ParentOrgShare,
	})
	if err != nil {
		if errors.Is(err, ErrInvalidSum) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_sum", "message": err.Error()})
			return
		}
		logging.L(c.Request.Context()).Error("allocation update failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
		return
	}
	c.JSON(http.StatusOK, saved)
}

// feeReportRow is one FEE transaction re-split for the report.
type feeReportRow struct {
	Transaction *ledger.Transaction `json:"transaction"`
	Shares      Shares              `json:"shares"`
}

// FeeReport handles GET /v1/admin/reports/fees. Every historical FEE
// transaction is re-split on read with the current allocation
// settings, so the report reflects the present-day split rather than
// the split in effect when the fee was collected. Pages are addressed
// with an opaque cursor.
func (h *Handler) FeeReport(c *gin.Context) {
	limit := 100
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 1000 {
			limit = n
		}
	}

	cursor, err := pagination.Decode(c.Query("cursor"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_cursor", "message": "cursor is not valid"})
		return
	}
	var before time.Time
	var beforeID string
	if cursor != nil {
		before, beforeID = cursor.CreatedAt, cursor.ID
	}

	ctx := c.Request.Context()
	settings, err := h.engine.Get(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
		return
	}

	// Fetch one extra row to learn whether another page exists.
	fees, err := h.ledger.ListFeesBefore(ctx, before, beforeID, limit+1)
	if err != nil {
		logging.L(ctx).Error("fee report query failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
		return
	}

	fees, nextCursor, hasMore := pagination.ComputePage(fees, limit, func(tx *ledger.Transaction) (time.Time, string) {
		return tx.CreatedAt, tx.ID
	})

	rows := make([]feeReportRow, 0, len(fees))
	var totalKobo int64
	var totals Shares
	for _, tx := range fees {
		shares := ApplyToAmount(tx.AmountKobo, *settings)
		rows = append(rows, feeReportRow{Transaction: tx, Shares: shares})
		totalKobo += tx.AmountKobo
		totals.ApexKobo += shares.ApexKobo
		totals.PlatformKobo += shares.PlatformKobo
		totals.CooperativeKobo += shares.CooperativeKobo
		totals.LeaderKobo += shares.LeaderKobo
		totals.ParentOrgKobo += shares.ParentOrgKobo
	}

	c.JSON(http.StatusOK, gin.H{
		"settings":      settings,
		"transactions":  rows,
		"totalFeesKobo": totalKobo,
		"totals":        totals,
		"nextCursor":    nextCursor,
		"hasMore":       hasMore,
	})
}
