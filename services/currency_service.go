package services

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strings"
	"sync"
	"time"

	config "github.com/anjiri1684/mock_exams/configs"
	"github.com/anjiri1684/mock_exams/logger"
	"github.com/pkg/errors"
)

const ratesTTL = 6 * time.Hour

type ExchangeRateResponse struct {
	Result          string             `json:"result"`
	ConversionRates map[string]float64 `json:"conversion_rates"`
}

var (
	ratesCache    map[string]float64
	cacheMutex    sync.RWMutex
	lastFetchTime time.Time

	// RatesURL is formatted with the API key.
	RatesURL = "https://v6.exchangerate-api.com/v6/%s/latest/USD"
)

// FetchRates returns USD-based conversion rates, refreshing them at most every six hours.
func FetchRates() (map[string]float64, error) {
	cacheMutex.RLock()
	if time.Since(lastFetchTime) < ratesTTL && ratesCache != nil {
		rates := ratesCache
		cacheMutex.RUnlock()
		return rates, nil
	}
	cacheMutex.RUnlock()

	apiKey := config.Config("EXCHANGE_RATE_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("exchange rate API key not configured")
	}

	resp, err := http.Get(fmt.Sprintf(RatesURL, apiKey))
	if err != nil {
		return nil, errors.Wrap(err, "fetch exchange rates")
	}
	defer resp.Body.Close()

	var data ExchangeRateResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, errors.Wrap(err, "decode exchange rates")
	}
	if data.Result != "success" {
		return nil, fmt.Errorf("currency API returned an error")
	}

	cacheMutex.Lock()
	ratesCache = data.ConversionRates
	lastFetchTime = time.Now()
	cacheMutex.Unlock()
	logger.Log.Info("exchange rate cache refreshed", "currencies", len(data.ConversionRates))

	return data.ConversionRates, nil
}

// ConvertPrice converts amount between two currencies, rounded to cents.
func ConvertPrice(amount float64, from, to string) (float64, error) {
	from, to = strings.ToUpper(from), strings.ToUpper(to)
	if from == to {
		return amount, nil
	}
	rates, err := FetchRates()
	if err != nil {
		return 0, err
	}
	fromRate, ok := rates[from]
	if !ok || fromRate == 0 {
		return 0, errors.Wrapf(ErrValidation, "unknown currency %s", from)
	}
	toRate, ok := rates[to]
	if !ok {
		return 0, errors.Wrapf(ErrValidation, "unknown currency %s", to)
	}
	return math.Round(amount/fromRate*toRate*100) / 100, nil
}
