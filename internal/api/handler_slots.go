package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// ListSlots handles GET /api/slots.
func (h *Handler) ListSlots(c *gin.Context) {
	c.JSON(http.StatusOK, h.slots().Registry().List())
}

// GetSlot handles GET /api/slots/:number.
func (h *Handler) GetSlot(c *gin.Context) {
	n, ok := slotNumber(c)
	if !ok {
		return
	}
	s, err := h.slots().Registry().Get(n)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

type startRequest struct {
	// Amount is optional; without it the coin acceptor's credit is spent.
	Amount        *decimal.Decimal `json:"amount"`
	FingerprintID *int             `json:"fingerprintId"`
}

// StartSlot handles POST /api/slots/:number/start.
func (h *Handler) StartSlot(c *gin.Context) {
	n, ok := slotNumber(c)
	if !ok {
		return
	}
	var req startRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			badRequest(c, err.Error())
			return
		}
	}
	amount := decimal.Zero
	if req.Amount != nil {
		amount = *req.Amount
	}

	s, err := h.kiosk.Start(c.Request.Context(), n, amount, req.FingerprintID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

// StopSlot handles POST /api/slots/:number/stop.
func (h *Handler) StopSlot(c *gin.Context) {
	n, ok := slotNumber(c)
	if !ok {
		return
	}
	session, err := h.kiosk.Stop(c.Request.Context(), n)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

// SanitizeSlot handles POST /api/slots/:number/sanitize.
func (h *Handler) SanitizeSlot(c *gin.Context) {
	n, ok := slotNumber(c)
	if !ok {
		return
	}
	s, err := h.slots().StartUVSanitization(c.Request.Context(), n)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, s)
}

type fingerprintRequest struct {
	FingerprintID *int `json:"fingerprintId" binding:"required"`
}

// UnlockSlot handles POST /api/slots/:number/unlock.
func (h *Handler) UnlockSlot(c *gin.Context) {
	n, ok := slotNumber(c)
	if !ok {
		return
	}
	var req fingerprintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "fingerprintId is required")
		return
	}
	if err := h.slots().UnlockTemporary(c.Request.Context(), n, *req.FingerprintID); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type relayRequest struct {
	On *bool `json:"on" binding:"required"`
}

// PutRelay handles PUT /api/slots/:number/relay.
func (h *Handler) PutRelay(c *gin.Context) {
	n, ok := slotNumber(c)
	if !ok {
		return
	}
	var req relayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "on is required")
		return
	}
	s, err := h.slots().SetRelay(c.Request.Context(), n, *req.On)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

type lockRequest struct {
	Locked *bool `json:"locked" binding:"required"`
}

// PutLock handles PUT /api/slots/:number/lock.
func (h *Handler) PutLock(c *gin.Context) {
	n, ok := slotNumber(c)
	if !ok {
		return
	}
	var req lockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "locked is required")
		return
	}
	s, err := h.slots().SetLock(c.Request.Context(), n, *req.Locked)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

// OutOfService handles POST /api/slots/:number/out-of-service.
func (h *Handler) OutOfService(c *gin.Context) {
	n, ok := slotNumber(c)
	if !ok {
		return
	}
	s, err := h.kiosk.SetOutOfService(c.Request.Context(), n)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

// InService handles POST /api/slots/:number/in-service.
func (h *Handler) InService(c *gin.Context) {
	n, ok := slotNumber(c)
	if !ok {
		return
	}
	s, err := h.slots().ReturnToService(c.Request.Context(), n)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

// ClearFault handles POST /api/slots/:number/clear-fault.
func (h *Handler) ClearFault(c *gin.Context) {
	n, ok := slotNumber(c)
	if !ok {
		return
	}
	s, err := h.slots().ClearFault(c.Request.Context(), n)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}
