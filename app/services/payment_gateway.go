package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
)

// CheckoutLineItem describes one purchasable line sent to the payment gateway
type CheckoutLineItem struct {
	Description string `json:"description"`
	Quantity    uint64 `json:"quantity"`
	UnitAmount  uint64 `json:"unit_amount"`
	Currency    string `json:"currency"`
}

// CheckoutSession is the gateway-side session created for a cart
type CheckoutSession struct {
	SessionID   string `json:"session_id"`
	RedirectURL string `json:"redirect_url"`
}

// CheckoutGateway abstracts the hosted payment page provider
type CheckoutGateway interface {
	CreateCheckoutSession(ctx context.Context, customerRef string, items []CheckoutLineItem, successURL, cancelURL string) (*CheckoutSession, error)
	// IsCheckoutCompleted verifies session state with the gateway, used to
	// reject forged completion callbacks before materializing an order.
	IsCheckoutCompleted(ctx context.Context, sessionID string) (bool, error)
}

// HTTPCheckoutGateway implements CheckoutGateway against a REST payment provider
type HTTPCheckoutGateway struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *log.Logger
}

// NewHTTPCheckoutGateway creates an HTTP-backed checkout gateway client
func NewHTTPCheckoutGateway(baseURL, apiKey string, timeout time.Duration) CheckoutGateway {
	return &HTTPCheckoutGateway{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		logger:     log.New(os.Stdout, "[CheckoutGateway] ", log.LstdFlags),
	}
}

type createSessionRequest struct {
	CustomerRef string             `json:"customer_ref"`
	Items       []CheckoutLineItem `json:"items"`
	SuccessURL  string             `json:"success_url"`
	CancelURL   string             `json:"cancel_url"`
}

type createSessionResponse struct {
	SessionID   string `json:"session_id"`
	RedirectURL string `json:"redirect_url"`
	Error       string `json:"error,omitempty"`
}

type sessionStateResponse struct {
	SessionID string `json:"session_id"`
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
}

// CreateCheckoutSession creates a hosted checkout session for the given items
func (g *HTTPCheckoutGateway) CreateCheckoutSession(ctx context.Context, customerRef string, items []CheckoutLineItem, successURL, cancelURL string) (*CheckoutSession, error) {
	reqBody := createSessionRequest{
		CustomerRef: customerRef,
		Items:       items,
		SuccessURL:  successURL,
		CancelURL:   cancelURL,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal session request: %w", err)
	}

	url := g.baseURL + "/v1/checkout/sessions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.apiKey)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call payment gateway: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read gateway response: %w", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		g.logger.Printf("Gateway returned status %d: %s", resp.StatusCode, string(body))
		return nil, fmt.Errorf("payment gateway returned status %d", resp.StatusCode)
	}

	var sessionResp createSessionResponse
	if err := json.Unmarshal(body, &sessionResp); err != nil {
		return nil, fmt.Errorf("failed to parse gateway response: %w", err)
	}

	if sessionResp.Error != "" {
		return nil, fmt.Errorf("payment gateway error: %s", sessionResp.Error)
	}
	if sessionResp.SessionID == "" || sessionResp.RedirectURL == "" {
		return nil, fmt.Errorf("payment gateway returned incomplete session")
	}

	return &CheckoutSession{
		SessionID:   sessionResp.SessionID,
		RedirectURL: sessionResp.RedirectURL,
	}, nil
}

// IsCheckoutCompleted checks the session state with the gateway
func (g *HTTPCheckoutGateway) IsCheckoutCompleted(ctx context.Context, sessionID string) (bool, error) {
	url := g.baseURL + "/v1/checkout/sessions/" + sessionID
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+g.apiKey)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("failed to call payment gateway: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return false, fmt.Errorf("failed to read gateway response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("payment gateway returned status %d", resp.StatusCode)
	}

	var stateResp sessionStateResponse
	if err := json.Unmarshal(body, &stateResp); err != nil {
		return false, fmt.Errorf("failed to parse gateway response: %w", err)
	}

	if stateResp.Error != "" {
		return false, fmt.Errorf("payment gateway error: %s", stateResp.Error)
	}

	return stateResp.Status == "completed", nil
}

// MockCheckoutGateway is a mock implementation for development and testing.
// Every session it creates is immediately reported as completed.
type MockCheckoutGateway struct {
	logger *log.Logger
}

// NewMockCheckoutGateway creates a new mock checkout gateway
func NewMockCheckoutGateway() CheckoutGateway {
	return &MockCheckoutGateway{
		logger: log.New(os.Stdout, "[MockCheckoutGateway] ", log.LstdFlags),
	}
}

// CreateCheckoutSession returns a synthetic session
func (m *MockCheckoutGateway) CreateCheckoutSession(_ context.Context, customerRef string, items []CheckoutLineItem, successURL, _ string) (*CheckoutSession, error) {
	sessionID := "mock_" + uuid.New().String()
	m.logger.Printf("Created mock session %s for customer %s (%d items)", sessionID, customerRef, len(items))
	return &CheckoutSession{
		SessionID:   sessionID,
		RedirectURL: successURL + "?session_id=" + sessionID,
	}, nil
}

// IsCheckoutCompleted always reports the session as completed
func (m *MockCheckoutGateway) IsCheckoutCompleted(_ context.Context, sessionID string) (bool, error) {
	m.logger.Printf("Reporting mock session %s as completed", sessionID)
	return true, nil
}
