package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// VerifyFingerprint handles POST /api/fingerprints/verify.
func (h *Handler) VerifyFingerprint(c *gin.Context) {
	var req fingerprintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "fingerprintId is required")
		return
	}
	valid := h.slots().VerifyFingerprint(c.Request.Context(), *req.FingerprintID)
	c.JSON(http.StatusOK, gin.H{"fingerprintId": *req.FingerprintID, "valid": valid})
}

// EnrollFingerprint handles POST /api/fingerprints/enroll.
func (h *Handler) EnrollFingerprint(c *gin.Context) {
	var req fingerprintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "fingerprintId is required")
		return
	}
	if err := h.slots().EnrollFingerprint(c.Request.Context(), *req.FingerprintID); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"fingerprintId": *req.FingerprintID})
}
