// Package payment provides a client for the external payment gateway.
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"shopmall/internal/config"
)

var (
	// ErrVerificationFailed means the gateway rejected or could not find
	// the transaction.
	ErrVerificationFailed = errors.New("payment verification failed")

	// ErrAmountMismatch means the gateway settled a different amount than
	// the order expects.
	ErrAmountMismatch = errors.New("paid amount does not match order amount")
)

// Verification is the gateway's view of a settled transaction.
type Verification struct {
	TransactionID string
	MerchantUID   string
	Amount        int64
	Status        string
}

// Verifier checks a transaction against the gateway before an order is
// accepted. merchantUID is the shop-side order identifier the gateway has
// on record for the transaction; empty skips the cross-check.
type Verifier interface {
	Verify(ctx context.Context, transactionID, merchantUID string, expectedAmount int64) (*Verification, error)
}

// Client encapsulates the HTTP interaction with the payment gateway.
// Without API credentials it runs in development mode, where only the
// transaction ID format is checked.
type Client struct {
	baseURL    string
	apiKey     string
	apiSecret  string
	httpClient *http.Client
}

// NewClient creates a gateway client from config.
func NewClient(cfg config.PaymentConfig) *Client {
	return &Client{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:    cfg.APIKey,
		apiSecret: cfg.APISecret,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

// devMode reports whether the client has no gateway credentials.
func (c *Client) devMode() bool {
	return c.apiKey == "" || c.apiSecret == ""
}

// Verify fetches the transaction from the gateway and checks that it is
// paid for the expected amount. In development mode it only validates the
// transaction ID format.
func (c *Client) Verify(ctx context.Context, transactionID, merchantUID string, expectedAmount int64) (*Verification, error) {
	if c.devMode() {
		if strings.HasPrefix(transactionID, "imp_") || len(transactionID) > 10 {
			return &Verification{
				TransactionID: transactionID,
				MerchantUID:   merchantUID,
				Amount:        expectedAmount,
				Status:        "paid",
			}, nil
		}
		return nil, fmt.Errorf("%w: invalid transaction id format", ErrVerificationFailed)
	}

	token, err := c.getToken(ctx)
	if err != nil {
		return nil, err
	}

	v, err := c.getPayment(ctx, token, transactionID)
	if err != nil {
		return nil, err
	}

	if v.Status != "paid" {
		return nil, fmt.Errorf("%w: transaction status is %q", ErrVerificationFailed, v.Status)
	}
	if merchantUID != "" && v.MerchantUID != "" && v.MerchantUID != merchantUID {
		return nil, fmt.Errorf("%w: merchant uid mismatch", ErrVerificationFailed)
	}
	if v.Amount != expectedAmount {
		return nil, fmt.Errorf("%w: gateway reports %d, order expects %d",
			ErrAmountMismatch, v.Amount, expectedAmount)
	}

	return v, nil
}

type gatewayEnvelope struct {
	Code     int             `json:"code"`
	Message  string          `json:"message"`
	Response json.RawMessage `json:"response"`
}

func (c *Client) getToken(ctx context.Context) (string, error) {
	body, err := json.Marshal(map[string]string{
		"imp_key":    c.apiKey,
		"imp_secret": c.apiSecret,
	})
	if err != nil {
		return "", fmt.Errorf("encode token request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/users/getToken", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("do token request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: token request returned %d", ErrVerificationFailed, resp.StatusCode)
	}

	var envelope gatewayEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	if envelope.Code != 0 {
		return "", fmt.Errorf("%w: %s", ErrVerificationFailed, envelope.Message)
	}

	var tokenResp struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(envelope.Response, &tokenResp); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	if tokenResp.AccessToken == "" {
		return "", fmt.Errorf("%w: empty access token", ErrVerificationFailed)
	}

	return tokenResp.AccessToken, nil
}

func (c *Client) getPayment(ctx context.Context, token, transactionID string) (*Verification, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/payments/"+transactionID, nil)
	if err != nil {
		return nil, fmt.Errorf("create payment request: %w", err)
	}
	req.Header.Set("Authorization", token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do payment request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: transaction not found", ErrVerificationFailed)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: payment request returned %d", ErrVerificationFailed, resp.StatusCode)
	}

	var envelope gatewayEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("decode payment response: %w", err)
	}
	if envelope.Code != 0 {
		return nil, fmt.Errorf("%w: %s", ErrVerificationFailed, envelope.Message)
	}

	var paymentResp struct {
		ImpUID      string `json:"imp_uid"`
		MerchantUID string `json:"merchant_uid"`
		Amount      int64  `json:"amount"`
		Status      string `json:"status"`
	}
	if err := json.Unmarshal(envelope.Response, &paymentResp); err != nil {
		return nil, fmt.Errorf("decode payment response: %w", err)
	}

	return &Verification{
		TransactionID: paymentResp.ImpUID,
		MerchantUID:   paymentResp.MerchantUID,
		Amount:        paymentResp.Amount,
		Status:        paymentResp.Status,
	}, nil
}
