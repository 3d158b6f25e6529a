package api

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPutSubscription_InvalidRequest(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodPut, "/api/subscriptions", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"invalid request"}`, w.Body.String())
}

func TestSubscriptionLifecycle(t *testing.T) {
	env := newTestEnv(t)
	endpoint := "https://push.example/abc%2Fdef"

	w := env.do(http.MethodPut, "/api/subscriptions", map[string]any{
		"endpoint":         endpoint,
		"p256dh":           "key",
		"auth":             "secret",
		"subscribed_slots": []int{7, 13},
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = env.do(http.MethodGet, "/api/subscriptions?endpoint="+endpoint, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"subscribed_slots":[7,13]}`, w.Body.String())

	w = env.do(http.MethodPut, "/api/subscriptions", map[string]any{
		"endpoint":         endpoint,
		"p256dh":           "key",
		"auth":             "secret",
		"subscribed_slots": []int{42},
	})
	assert.Equal(t, http.StatusNotFound, w.Code, "unknown slot")

	w = env.do(http.MethodDelete, "/api/subscriptions", map[string]any{"endpoint": endpoint})
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = env.do(http.MethodGet, "/api/subscriptions?endpoint="+url.QueryEscape("missing"), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, http.StatusBadRequest, env.do(http.MethodGet, "/api/subscriptions", nil).Code)
}

func TestGetVAPIDPublicKey(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(http.MethodGet, "/api/vapid_public_key", nil)
	assert.JSONEq(t, `{"public_key":"public-key"}`, w.Body.String())

	env.handler.webpush = nil
	assert.Equal(t, http.StatusServiceUnavailable, env.do(http.MethodGet, "/api/vapid_public_key", nil).Code)
}
