package payments

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakePayPal(t *testing.T, captureStatus string) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "id", user)
		assert.Equal(t, "secret", pass)
		_ = json.NewEncoder(w).Encode(map[string]string{"access_token": "tok"})
	})
	mux.HandleFunc("/v2/checkout/orders", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		units := body["purchase_units"].([]interface{})
		unit := units[0].(map[string]interface{})
		assert.Equal(t, "pay-1", unit["reference_id"])
		assert.Equal(t, "499.00", unit["amount"].(map[string]interface{})["value"])
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"ORDER1","status":"CREATED","links":[{"href":"https://paypal.test/approve","rel":"approve"}]}`))
	})
	mux.HandleFunc("/v2/checkout/orders/ORDER1/capture", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "ORDER1", "status": captureStatus})
	})
	return httptest.NewServer(mux)
}

func TestCreateAndCaptureOrder(t *testing.T) {
	srv := fakePayPal(t, "COMPLETED")
	defer srv.Close()
	client := &PayPalClient{BaseURL: srv.URL, ClientID: "id", ClientSecret: "secret", HTTP: srv.Client()}

	order, err := client.CreateOrder(499, "INR", "pay-1")
	require.NoError(t, err)
	assert.Equal(t, "ORDER1", order.ID)
	assert.Equal(t, "https://paypal.test/approve", order.ApproveURL())

	captured, err := client.CaptureOrder("ORDER1")
	require.NoError(t, err)
	assert.Equal(t, "COMPLETED", captured.Status)
}

func TestCaptureOrderNotCompleted(t *testing.T) {
	srv := fakePayPal(t, "PAYER_ACTION_REQUIRED")
	defer srv.Close()
	client := &PayPalClient{BaseURL: srv.URL, ClientID: "id", ClientSecret: "secret", HTTP: srv.Client()}

	_, err := client.CaptureOrder("ORDER1")
	assert.Error(t, err)
}
