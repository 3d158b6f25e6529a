package gateway

import (
	"errors"

	"github.com/shopspring/decimal"
)

// ErrRequestFailed wraps every gateway failure. Callers should react to the
// failure, not its cause.
var ErrRequestFailed = errors.New("gateway request failed")

type relayRequest struct {
	SlotNumber int  `json:"slotNumber"`
	State      bool `json:"state"`
}

type solenoidRequest struct {
	SlotNumber int  `json:"slotNumber"`
	Locked     bool `json:"locked"`
	Duration   int  `json:"duration"` // seconds, 0 holds the state
}

type slotRequest struct {
	SlotNumber int `json:"slotNumber"`
}

type fingerprintRequest struct {
	FingerprintID int `json:"fingerprintId"`
}

// VerifyResult is the gateway's answer to a fingerprint verification.
type VerifyResult struct {
	IsValid       bool   `json:"isValid"`
	FingerprintID int    `json:"fingerprintId"`
	Confidence    int    `json:"confidence"`
	Error         string `json:"error,omitempty"`
}

type enrollResponse struct {
	Success       bool   `json:"success"`
	FingerprintID int    `json:"fingerprintId"`
	Message       string `json:"message"`
	Error         string `json:"error"`
}

type coinSlotResponse struct {
	Value     decimal.Decimal `json:"value"`
	Timestamp int64           `json:"timestamp"`
}

// HealthStatus is returned by the gateway's /health endpoint.
type HealthStatus struct {
	Status           string `json:"status"`
	ArduinoConnected bool   `json:"arduino_connected"`
}
