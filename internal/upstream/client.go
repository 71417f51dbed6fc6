// Package upstream is the typed client for the retail backend REST API. It
// centralizes auth cookie handling, request logging, and the mapping of
// backend failures onto domain error codes.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/royaliq/storefront/pkg/config"
	pkgerrors "github.com/royaliq/storefront/pkg/errors"
	"github.com/royaliq/storefront/pkg/logger"
)

var (
	errBaseURLRequired = errors.New("upstream base url is required")
	errLoggerRequired  = errors.New("upstream logger is required")
)

// Client talks to the retail backend. Methods that act on behalf of a logged
// in customer take the session token minted by Login or Signup.
type Client struct {
	httpClient *http.Client
	baseURL    string
	cookieName string
	logger     *logger.Logger
}

func NewClient(cfg config.UpstreamConfig, logg *logger.Logger) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errBaseURLRequired
	}
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    baseURL,
		cookieName: cfg.CookieName,
		logger:     logg,
	}, nil
}

// CookieName reports the session cookie name the backend issues.
func (c *Client) CookieName() string {
	if c == nil {
		return ""
	}
	return c.cookieName
}

// Catalog operations

func (c *Client) ListProducts(ctx context.Context, query ProductQuery) ([]Product, error) {
	params := url.Values{}
	if strings.TrimSpace(query.Search) != "" {
		params.Set("q", strings.TrimSpace(query.Search))
	}
	if strings.TrimSpace(query.Category) != "" {
		params.Set("category", strings.TrimSpace(query.Category))
	}
	if query.Limit > 0 {
		params.Set("limit", strconv.Itoa(query.Limit))
	}
	path := "/public/products"
	if encoded := params.Encode(); encoded != "" {
		path += "?" + encoded
	}

	var products []Product
	if err := c.do(ctx, http.MethodGet, path, "list_products", nil, "", nil, &products); err != nil {
		return nil, err
	}
	return products, nil
}

func (c *Client) GetProduct(ctx context.Context, sku string) (*Product, error) {
	sku = strings.TrimSpace(sku)
	if sku == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sku is required")
	}

	var product Product
	path := "/public/products/" + url.PathEscape(sku)
	if err := c.do(ctx, http.MethodGet, path, "get_product", map[string]any{"sku": sku}, "", nil, &product); err != nil {
		return nil, err
	}
	return &product, nil
}

// Order operations

func (c *Client) CreateOrder(ctx context.Context, req OrderRequest) (*Order, error) {
	var order Order
	fields := map[string]any{
		"customer_phone": req.CustomerPhone,
		"item_count":     len(req.Items),
	}
	if err := c.do(ctx, http.MethodPost, "/public/orders", "create_order", fields, "", req, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// Customer session operations

type authResponse struct {
	OK   bool     `json:"ok"`
	User Customer `json:"user"`
}

// Signup registers a customer and returns the profile plus the session token
// the backend set for it.
func (c *Client) Signup(ctx context.Context, params SignupParams) (*Customer, string, error) {
	body := map[string]any{
		"name":     params.Name,
		"phone":    params.Phone,
		"password": params.Password,
	}
	if strings.TrimSpace(params.Email) != "" {
		body["email"] = params.Email
	}
	return c.authenticate(ctx, "/auth/customer/signup", "signup", body)
}

func (c *Client) Login(ctx context.Context, params LoginParams) (*Customer, string, error) {
	body := map[string]any{
		"phone":    params.Phone,
		"password": params.Password,
	}
	return c.authenticate(ctx, "/auth/customer/login", "login", body)
}

func (c *Client) authenticate(ctx context.Context, path, op string, body map[string]any) (*Customer, string, error) {
	fields := map[string]any{"customer_phone": body["phone"]}
	resp, raw, err := c.roundTrip(ctx, http.MethodPost, path, op, fields, "", body)
	if err != nil {
		return nil, "", err
	}

	var payload authResponse
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("decoding %s response", op))
	}

	session := c.sessionFromResponse(resp)
	if session == "" {
		return nil, "", pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("%s response missing session cookie", op))
	}
	return &payload.User, session, nil
}

// Me resolves the customer bound to a session token. An invalid or expired
// token maps to CodeUnauthorized.
func (c *Client) Me(ctx context.Context, session string) (*Customer, error) {
	var payload authResponse
	if err := c.do(ctx, http.MethodGet, "/auth/customer/me", "me", nil, session, nil, &payload); err != nil {
		return nil, err
	}
	return &payload.User, nil
}

func (c *Client) Logout(ctx context.Context, session string) error {
	return c.do(ctx, http.MethodPost, "/auth/customer/logout", "logout", nil, session, nil, nil)
}

// Payment operations

// CreatePaymentOrder requests a fresh gateway descriptor. Descriptors are
// single use; every checkout attempt needs its own.
func (c *Client) CreatePaymentOrder(ctx context.Context, session string, amount float64) (*PaymentOrder, error) {
	body := map[string]any{
		"amount":   amount,
		"currency": "INR",
	}
	var order PaymentOrder
	fields := map[string]any{"amount": amount}
	if err := c.do(ctx, http.MethodPost, "/payment/create_order", "create_payment_order", fields, session, body, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (c *Client) VerifyPayment(ctx context.Context, session string, params VerifyParams) (*VerifyResult, error) {
	body := map[string]any{
		"razorpay_order_id":   params.ProviderOrderID,
		"razorpay_payment_id": params.ProviderPaymentID,
		"razorpay_signature":  params.ProviderSignature,
		"total_amount":        params.TotalAmount,
	}
	var result VerifyResult
	fields := map[string]any{
		"provider_order_id": params.ProviderOrderID,
		"total_amount":      params.TotalAmount,
	}
	if err := c.do(ctx, http.MethodPost, "/payment/verify", "verify_payment", fields, session, body, &result); err != nil {
		return nil, err
	}
	if !result.OK {
		return nil, pkgerrors.New(pkgerrors.CodePaymentFailed, "payment verification rejected")
	}
	return &result, nil
}

func (c *Client) do(ctx context.Context, method, path, op string, fields map[string]any, session string, body, out any) error {
	_, raw, err := c.roundTrip(ctx, method, path, op, fields, session, body)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("decoding %s response", op))
	}
	return nil
}

func (c *Client) roundTrip(ctx context.Context, method, path, op string, fields map[string]any, session string, body any) (*http.Response, []byte, error) {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, fmt.Sprintf("encoding %s request", op))
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, fmt.Sprintf("building %s request", op))
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if session != "" {
		req.AddCookie(&http.Cookie{Name: c.cookieName, Value: session})
	}

	c.log(ctx, "request", op, fields)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log(ctx, "error", op, map[string]any{"error": err.Error()})
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("upstream %s failed", op))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		c.log(ctx, "error", op, map[string]any{"error": err.Error()})
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("reading %s response", op))
	}

	if resp.StatusCode >= 400 {
		detail := upstreamDetail(raw)
		c.log(ctx, "error", op, map[string]any{
			"status": resp.StatusCode,
			"error":  detail,
		})
		code := domainCodeForStatus(resp.StatusCode)
		return nil, nil, pkgerrors.New(code, fmt.Sprintf("upstream %s failed: %s", op, detail))
	}

	c.log(ctx, "response", op, map[string]any{"status": resp.StatusCode})
	return resp, raw, nil
}

func (c *Client) sessionFromResponse(resp *http.Response) string {
	for _, cookie := range resp.Cookies() {
		if cookie.Name == c.cookieName {
			return cookie.Value
		}
	}
	return ""
}

func (c *Client) log(ctx context.Context, phase, op string, fields map[string]any) {
	if c == nil || c.logger == nil {
		return
	}
	logFields := map[string]any{
		"operation": op,
		"phase":     phase,
	}
	for k, v := range fields {
		logFields[k] = redact(k, v)
	}
	ctx = c.logger.WithFields(ctx, logFields)
	switch phase {
	case "error":
		c.logger.Error(ctx, fmt.Sprintf("upstream %s", op), errors.New(fmt.Sprint(fields["error"])))
	default:
		c.logger.Debug(ctx, fmt.Sprintf("upstream %s", phase))
	}
}

func redact(key string, value any) any {
	lower := strings.ToLower(key)
	for _, sensitive := range []string{"password", "signature", "token", "secret", "phone", "email"} {
		if strings.Contains(lower, sensitive) {
			return "[REDACTED]"
		}
	}
	return value
}

// upstreamDetail pulls the backend's {"detail": ...} message out of an error
// body, falling back to the raw text.
func upstreamDetail(raw []byte) string {
	var payload struct {
		Detail any `json:"detail"`
	}
	if err := json.Unmarshal(raw, &payload); err == nil && payload.Detail != nil {
		if s, ok := payload.Detail.(string); ok {
			return s
		}
		return fmt.Sprint(payload.Detail)
	}
	text := strings.TrimSpace(string(raw))
	if text == "" {
		return "no response body"
	}
	if len(text) > 200 {
		text = text[:200]
	}
	return text
}

func domainCodeForStatus(status int) pkgerrors.Code {
	switch status {
	case http.StatusUnauthorized:
		return pkgerrors.CodeUnauthorized
	case http.StatusForbidden:
		return pkgerrors.CodeForbidden
	case http.StatusNotFound:
		return pkgerrors.CodeNotFound
	case http.StatusConflict:
		return pkgerrors.CodeConflict
	case http.StatusUnprocessableEntity:
		return pkgerrors.CodeValidation
	default:
		if status >= 400 && status < 500 {
			return pkgerrors.CodeValidation
		}
		return pkgerrors.CodeDependency
	}
}
