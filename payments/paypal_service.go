package payments

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	config "github.com/anjiri1684/mock_exams/configs"
	"github.com/pkg/errors"
)

type PayPalOrder struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Links  []struct {
		Href string `json:"href"`
		Rel  string `json:"rel"`
	} `json:"links"`
}

// ApproveURL is where the buyer confirms the order.
func (o *PayPalOrder) ApproveURL() string {
	for _, l := range o.Links {
		if l.Rel == "approve" || l.Rel == "payer-action" {
			return l.Href
		}
	}
	return ""
}

type accessTokenResponse struct {
	AccessToken string `json:"access_token"`
}

type PayPalClient struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	HTTP         *http.Client
}

func NewPayPalClientFromEnv() *PayPalClient {
	return &PayPalClient{
		BaseURL:      config.Config("PAYPAL_API_BASE_URL"),
		ClientID:     config.Config("PAYPAL_CLIENT_ID"),
		ClientSecret: config.Config("PAYPAL_CLIENT_SECRET"),
		HTTP:         &http.Client{Timeout: 15 * time.Second},
	}
}

func (p *PayPalClient) accessToken() (string, error) {
	req, err := http.NewRequest(http.MethodPost, fmt.Sprintf("%s/v1/oauth2/token", p.BaseURL), strings.NewReader("grant_type=client_credentials"))
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(p.ClientID, p.ClientSecret)
	req.Header.Add("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.HTTP.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "paypal token request")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to get access token, status: %s", resp.Status)
	}

	var tokenResp accessTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return "", errors.Wrap(err, "decode paypal token")
	}
	return tokenResp.AccessToken, nil
}

func (p *PayPalClient) do(method, path string, payload interface{}, want int) (*PayPalOrder, error) {
	token, err := p.accessToken()
	if err != nil {
		return nil, err
	}

	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		body = bytes.NewBuffer(b)
	}

	req, err := http.NewRequest(method, p.BaseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := p.HTTP.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "paypal %s", path)
	}
	defer resp.Body.Close()

	if resp.StatusCode != want {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("paypal %s returned %d: %s", path, resp.StatusCode, string(respBody))
	}

	var order PayPalOrder
	if err := json.NewDecoder(resp.Body).Decode(&order); err != nil {
		return nil, errors.Wrap(err, "decode paypal order")
	}
	return &order, nil
}

// CreateOrder opens a capture-intent order; referenceID ties it back to our payment row.
func (p *PayPalClient) CreateOrder(amount float64, currency, referenceID string) (*PayPalOrder, error) {
	payload := map[string]interface{}{
		"intent": "CAPTURE",
		"purchase_units": []map[string]interface{}{
			{
				"reference_id": referenceID,
				"amount": map[string]string{
					"currency_code": currency,
					"value":         fmt.Sprintf("%.2f", amount),
				},
			},
		},
	}
	return p.do(http.MethodPost, "/v2/checkout/orders", payload, http.StatusCreated)
}

func (p *PayPalClient) CaptureOrder(orderID string) (*PayPalOrder, error) {
	order, err := p.do(http.MethodPost, fmt.Sprintf("/v2/checkout/orders/%s/capture", orderID), nil, http.StatusCreated)
	if err != nil {
		return nil, err
	}
	if order.Status != "COMPLETED" {
		return order, fmt.Errorf("paypal order %s is %s", orderID, order.Status)
	}
	return order, nil
}
