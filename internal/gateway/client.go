package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// TokenSource yields the current bearer token, or "" when the user is not
// authenticated (or the stored token is no longer usable).
type TokenSource interface {
	Token() string
}

// Client translates typed intents into HTTP calls against the remote
// number-provisioning and wallet services. Every non-2xx response is parsed
// for its detail string and wrapped before propagating.
type Client struct {
	baseURL string
	tokens  TokenSource
	client  *http.Client
	logger  *logrus.Logger
}

func NewClient(baseURL string, tokens TokenSource, logger *logrus.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		tokens:  tokens,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

// PurchaseNumber rents a number for the given service/country pair. The
// token is checked before any request is issued; a doomed request is never
// sent. Remote refusals surface as *PurchaseError.
func (c *Client) PurchaseNumber(ctx context.Context, serviceID, countryID int) (*PurchaseResult, error) {
	if c.token() == "" {
		return nil, ErrUnauthenticated
	}

	body := map[string]int{
		"application_id": serviceID,
		"country_id":     countryID,
	}

	var result PurchaseResult
	if err := c.doJSON(ctx, http.MethodPost, "/api/smsman/buy", body, &result); err != nil {
		if gwErr, ok := err.(*GatewayError); ok {
			return nil, &PurchaseError{Reason: gwErr.Detail, Err: gwErr}
		}
		return nil, err
	}

	if result.RequestID == "" {
		return nil, &PurchaseError{Reason: "gateway response missing request_id"}
	}

	return &result, nil
}

// PollSMS asks whether an SMS has arrived for the given request id. It is
// idempotent and safe to call repeatedly; SmsReceived=false is a normal
// answer while the provider has not delivered yet.
func (c *Client) PollSMS(ctx context.Context, requestID string) (*SMSResult, error) {
	var result SMSResult
	if err := c.doJSON(ctx, http.MethodGet, "/api/smsman/sms/"+url.PathEscape(requestID), nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// CancelPurchase releases the number and refunds the charge. A remote
// refusal because the session is already completed or cancelled maps to
// *AlreadyFinalizedError so callers can explain why cancellation was
// refused.
func (c *Client) CancelPurchase(ctx context.Context, requestID string) (*CancelResult, error) {
	var result CancelResult
	err := c.doJSON(ctx, http.MethodPost, "/api/smsman/cancel/"+url.PathEscape(requestID), nil, &result)
	if err != nil {
		if gwErr, ok := err.(*GatewayError); ok && isFinalizedRefusal(gwErr) {
			return nil, &AlreadyFinalizedError{Detail: gwErr.Detail}
		}
		return nil, err
	}
	return &result, nil
}

// GetBalance returns the wallet balance. Best effort: callers must treat a
// failure here as "balance unknown", never as fatal to an in-progress flow.
func (c *Client) GetBalance(ctx context.Context) (*WalletBalance, error) {
	var balance WalletBalance
	if err := c.doJSON(ctx, http.MethodGet, "/api/wallet/balance", nil, &balance); err != nil {
		return nil, err
	}
	return &balance, nil
}

// GetCountries lists available countries. Anonymous endpoint.
func (c *Client) GetCountries(ctx context.Context) ([]Country, error) {
	var resp struct {
		Success   bool      `json:"success"`
		Countries []Country `json:"countries"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/api/smsman/countries", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Countries, nil
}

// GetServices lists services with display prices, country-specific when
// countryID > 0. Anonymous endpoint.
func (c *Client) GetServices(ctx context.Context, countryID int) ([]Service, error) {
	path := "/api/smsman/services"
	if countryID > 0 {
		path = fmt.Sprintf("%s?country_id=%d", path, countryID)
	}

	var resp struct {
		Success  bool      `json:"success"`
		Services []Service `json:"services"`
	}
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Services, nil
}

// Login exchanges credentials for a bearer token.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	body := map[string]string{"email": email, "password": password}

	var resp struct {
		AccessToken string `json:"access_token"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/api/auth/login", body, &resp); err != nil {
		return "", err
	}
	if resp.AccessToken == "" {
		return "", &GatewayError{StatusCode: http.StatusOK, Detail: "login response missing access_token"}
	}
	return resp.AccessToken, nil
}

// Signup registers a new account.
func (c *Client) Signup(ctx context.Context, username, email, password string) error {
	body := map[string]string{"username": username, "email": email, "password": password}
	return c.doJSON(ctx, http.MethodPost, "/api/auth/signup", body, nil)
}

// CreateTopUpOrder opens a Pay0 order and returns the URL the user must be
// redirected to. Gateways disagree on the payment url field name, so both
// spellings are accepted, flat or nested under result.
func (c *Client) CreateTopUpOrder(ctx context.Context, mobile string, amount float64) (*TopUpOrder, error) {
	if c.token() == "" {
		return nil, ErrUnauthenticated
	}

	body := map[string]interface{}{"mobile": mobile, "amount": amount}

	var raw struct {
		Success     bool    `json:"success"`
		OrderID     string  `json:"order_id"`
		Amount      float64 `json:"amount"`
		Message     string  `json:"message"`
		PaymentURL  string  `json:"payment_url"`
		PaymentURL2 string  `json:"paymenturl"`
		Result      struct {
			PaymentURL  string `json:"payment_url"`
			PaymentURL2 string `json:"paymenturl"`
		} `json:"result"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/api/payments/pay0/order", body, &raw); err != nil {
		return nil, err
	}

	paymentURL := firstNonEmpty(raw.PaymentURL, raw.PaymentURL2, raw.Result.PaymentURL, raw.Result.PaymentURL2)
	if paymentURL == "" {
		return nil, &GatewayError{StatusCode: http.StatusOK, Detail: "payment url missing in gateway response"}
	}

	return &TopUpOrder{
		OrderID:    raw.OrderID,
		Amount:     raw.Amount,
		PaymentURL: paymentURL,
		Message:    raw.Message,
	}, nil
}

// CheckPaymentStatus reports the state of a top-up order.
func (c *Client) CheckPaymentStatus(ctx context.Context, orderID string) (*PaymentStatus, error) {
	var status PaymentStatus
	path := "/api/payments/check-status?order_id=" + url.QueryEscape(orderID)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

func (c *Client) token() string {
	if c.tokens == nil {
		return ""
	}
	return c.tokens.Token()
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if token := c.token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return &TransportError{Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &GatewayError{StatusCode: resp.StatusCode, Detail: extractDetail(data, resp.StatusCode)}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// extractDetail pulls the {detail} reason string out of an error body,
// falling back to the HTTP status text.
func extractDetail(data []byte, statusCode int) string {
	var body struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(data, &body); err == nil && body.Detail != "" {
		return body.Detail
	}
	return http.StatusText(statusCode)
}

func isFinalizedRefusal(err *GatewayError) bool {
	if err.StatusCode == http.StatusConflict {
		return true
	}
	detail := strings.ToLower(err.Detail)
	return strings.Contains(detail, "already") || strings.Contains(detail, "cannot cancel")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
