package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"charging-kiosk-backend/internal/store"
)

// GetDenominations handles GET /api/denominations.
func (h *Handler) GetDenominations(c *gin.Context) {
	denominations, err := h.store.ListActiveDenominations(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, denominations)
}

// GetCredit handles GET /api/coins/credit.
func (h *Handler) GetCredit(c *gin.Context) {
	credit := decimal.Zero
	if coins := h.kiosk.Coins(); coins != nil {
		credit = coins.Balance()
	}
	c.JSON(http.StatusOK, gin.H{"credit": credit})
}

type quoteRequest struct {
	Amount *decimal.Decimal `json:"amount" binding:"required"`
}

// QuoteMinutes handles POST /api/coins/quote.
func (h *Handler) QuoteMinutes(c *gin.Context) {
	var req quoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "amount is required")
		return
	}
	minutes, err := h.kiosk.Quote(c.Request.Context(), *req.Amount)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"amount": *req.Amount, "minutes": minutes})
}

// GetTransactions handles GET /api/transactions?slot=&since=&limit=.
func (h *Handler) GetTransactions(c *gin.Context) {
	filter := store.TransactionFilter{Limit: 100}
	if v := c.Query("slot"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			badRequest(c, "invalid slot")
			return
		}
		filter.SlotNumber = n
	}
	if v := c.Query("since"); v != "" {
		since, err := time.Parse(time.RFC3339, v)
		if err != nil {
			badRequest(c, "since must be RFC3339")
			return
		}
		filter.Since = since
	}
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 1000 {
			badRequest(c, "limit must be between 1 and 1000")
			return
		}
		filter.Limit = n
	}

	txs, err := h.store.ListTransactions(c.Request.Context(), filter)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, txs)
}

// GetHealth handles GET /api/health.
func (h *Handler) GetHealth(c *gin.Context) {
	if h.health == nil {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "gateway": "unknown"})
		return
	}
	status, err := h.health.Health(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "gateway": "unreachable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "gateway": status.Status, "arduinoConnected": status.ArduinoConnected})
}
