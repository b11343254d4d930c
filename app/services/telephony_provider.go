package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/amirphl/Gashadokuro/models"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sony/gobreaker/v2"
)

// Provider call latency partitioned by method and path template
var providerRequestDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "telephony_provider_request_duration_seconds",
		Help:    "Telephony provider API call latencies in seconds",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"method", "outcome"},
)

// ErrProviderUnavailable indicates the telephony provider is down or the
// circuit breaker is open.
var ErrProviderUnavailable = errors.New("telephony provider unavailable")

// NumberAllocation is the provider-side result of activating a number
type NumberAllocation struct {
	ProviderNumberID string `json:"provider_number_id"`
	PhoneNumber      string `json:"phone_number"`
}

// TelephonyProvider abstracts the upstream carrier that numbers are
// provisioned on and that reports usage records.
type TelephonyProvider interface {
	AllocateNumber(ctx context.Context, phoneNumber, countryCode string, smsEnabled bool, forwardingType models.ForwardingType) (*NumberAllocation, error)
	GetCallRecords(ctx context.Context, providerNumberID string, rng *models.DateRange) ([]models.CallRecord, error)
	GetSmsRecords(ctx context.Context, providerNumberID string, rng *models.DateRange) ([]models.SmsRecord, error)
	SendSMS(ctx context.Context, providerNumberID, to, message string) error
}

// HTTPTelephonyProvider implements TelephonyProvider against the carrier's
// REST API. All calls go through a circuit breaker so a flapping carrier
// fails fast instead of tying up the provisioning worker.
type HTTPTelephonyProvider struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[[]byte]
	logger     *log.Logger
}

// NewHTTPTelephonyProvider creates an HTTP-backed telephony provider client
func NewHTTPTelephonyProvider(baseURL, apiKey string, timeout time.Duration) TelephonyProvider {
	logger := log.New(os.Stdout, "[TelephonyProvider] ", log.LstdFlags)

	settings := gobreaker.Settings{
		Name:        "telephony-provider",
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Printf("Circuit breaker %s: %s -> %s", name, from, to)
		},
	}

	return &HTTPTelephonyProvider{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		breaker:    gobreaker.NewCircuitBreaker[[]byte](settings),
		logger:     logger,
	}
}

// doRequest performs one API call through the circuit breaker and returns the body
func (p *HTTPTelephonyProvider) doRequest(ctx context.Context, method, path string, payload any) ([]byte, error) {
	start := time.Now()
	body, err := p.breaker.Execute(func() ([]byte, error) {
		var reqBody io.Reader
		if payload != nil {
			jsonData, err := json.Marshal(payload)
			if err != nil {
				return nil, fmt.Errorf("failed to marshal request: %w", err)
			}
			reqBody = bytes.NewBuffer(jsonData)
		}

		req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, reqBody)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := p.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("failed to call provider: %w", err)
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to read provider response: %w", err)
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			p.logger.Printf("Provider returned status %d for %s %s: %s", resp.StatusCode, method, path, string(respBody))
			return nil, fmt.Errorf("provider returned status %d", resp.StatusCode)
		}

		return respBody, nil
	})
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	providerRequestDuration.WithLabelValues(method, outcome).Observe(time.Since(start).Seconds())

	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, ErrProviderUnavailable
		}
		return nil, err
	}
	return body, nil
}

type allocateNumberRequest struct {
	PhoneNumber    string `json:"phone_number"`
	CountryCode    string `json:"country_code"`
	SMSEnabled     bool   `json:"sms_enabled"`
	ForwardingType string `json:"forwarding_type"`
}

// AllocateNumber activates a number on the carrier and returns its provider ID
func (p *HTTPTelephonyProvider) AllocateNumber(ctx context.Context, phoneNumber, countryCode string, smsEnabled bool, forwardingType models.ForwardingType) (*NumberAllocation, error) {
	payload := allocateNumberRequest{
		PhoneNumber:    phoneNumber,
		CountryCode:    countryCode,
		SMSEnabled:     smsEnabled,
		ForwardingType: string(forwardingType),
	}

	body, err := p.doRequest(ctx, http.MethodPost, "/v1/numbers", payload)
	if err != nil {
		return nil, err
	}

	var allocation NumberAllocation
	if err := json.Unmarshal(body, &allocation); err != nil {
		return nil, fmt.Errorf("failed to parse allocation response: %w", err)
	}
	if allocation.ProviderNumberID == "" {
		return nil, fmt.Errorf("provider returned empty number ID")
	}

	return &allocation, nil
}

// rangeQuery encodes the optional date range as query parameters
func rangeQuery(rng *models.DateRange) string {
	if rng == nil {
		return ""
	}
	values := url.Values{}
	if rng.Start != nil {
		values.Set("start", rng.Start.UTC().Format(time.RFC3339))
	}
	if rng.End != nil {
		values.Set("end", rng.End.UTC().Format(time.RFC3339))
	}
	if len(values) == 0 {
		return ""
	}
	return "?" + values.Encode()
}

// GetCallRecords fetches call detail records for a number
func (p *HTTPTelephonyProvider) GetCallRecords(ctx context.Context, providerNumberID string, rng *models.DateRange) ([]models.CallRecord, error) {
	path := "/v1/numbers/" + providerNumberID + "/calls" + rangeQuery(rng)
	body, err := p.doRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	var records []models.CallRecord
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, fmt.Errorf("failed to parse call records: %w", err)
	}
	return records, nil
}

// GetSmsRecords fetches SMS detail records for a number
func (p *HTTPTelephonyProvider) GetSmsRecords(ctx context.Context, providerNumberID string, rng *models.DateRange) ([]models.SmsRecord, error) {
	path := "/v1/numbers/" + providerNumberID + "/messages" + rangeQuery(rng)
	body, err := p.doRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	var records []models.SmsRecord
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, fmt.Errorf("failed to parse SMS records: %w", err)
	}
	return records, nil
}

type sendSMSRequest struct {
	To      string `json:"to"`
	Message string `json:"message"`
}

// SendSMS sends one outbound message from a provisioned number
func (p *HTTPTelephonyProvider) SendSMS(ctx context.Context, providerNumberID, to, message string) error {
	payload := sendSMSRequest{To: to, Message: message}
	_, err := p.doRequest(ctx, http.MethodPost, "/v1/numbers/"+providerNumberID+"/messages", payload)
	return err
}

// MockTelephonyProvider is a mock implementation for development and testing.
// Allocations always succeed and usage queries return empty sets.
type MockTelephonyProvider struct {
	logger *log.Logger
}

// NewMockTelephonyProvider creates a new mock telephony provider
func NewMockTelephonyProvider() TelephonyProvider {
	return &MockTelephonyProvider{
		logger: log.New(os.Stdout, "[MockTelephony] ", log.LstdFlags),
	}
}

// AllocateNumber returns a synthetic provider number ID
func (m *MockTelephonyProvider) AllocateNumber(_ context.Context, phoneNumber, _ string, _ bool, _ models.ForwardingType) (*NumberAllocation, error) {
	allocation := &NumberAllocation{
		ProviderNumberID: "mocknum_" + uuid.New().String(),
		PhoneNumber:      phoneNumber,
	}
	m.logger.Printf("Allocated %s as %s", phoneNumber, allocation.ProviderNumberID)
	return allocation, nil
}

// GetCallRecords returns no records
func (m *MockTelephonyProvider) GetCallRecords(_ context.Context, _ string, _ *models.DateRange) ([]models.CallRecord, error) {
	return []models.CallRecord{}, nil
}

// GetSmsRecords returns no records
func (m *MockTelephonyProvider) GetSmsRecords(_ context.Context, _ string, _ *models.DateRange) ([]models.SmsRecord, error) {
	return []models.SmsRecord{}, nil
}

// SendSMS logs the message instead of sending it
func (m *MockTelephonyProvider) SendSMS(_ context.Context, providerNumberID, to, message string) error {
	m.logger.Printf("SMS from %s to %s: %s", providerNumberID, to, message)
	return nil
}
