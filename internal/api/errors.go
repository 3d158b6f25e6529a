package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"charging-kiosk-backend/internal/gateway"
	"charging-kiosk-backend/internal/kiosk"
	"charging-kiosk-backend/internal/slot"
	"charging-kiosk-backend/internal/store"
)

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, slot.ErrSlotNotFound), errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, slot.ErrInvalidState), errors.Is(err, slot.ErrUnsupportedProfile):
		return http.StatusConflict
	case errors.Is(err, slot.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, slot.ErrHardware), errors.Is(err, gateway.ErrRequestFailed):
		return http.StatusBadGateway
	case errors.Is(err, kiosk.ErrNoCredit), errors.Is(err, kiosk.ErrInsufficientAmount), errors.Is(err, kiosk.ErrInvalidAmount):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// writeError responds with the status for err. Internal errors are logged
// and not echoed to the client.
func (h *Handler) writeError(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed", "path", c.FullPath(), "error", err)
		c.JSON(status, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}

// slotNumber parses the :number path parameter.
func slotNumber(c *gin.Context) (int, bool) {
	n, err := strconv.Atoi(c.Param("number"))
	if err != nil || n < 1 {
		badRequest(c, "invalid slot number")
		return 0, false
	}
	return n, true
}
