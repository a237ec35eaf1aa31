// Package paymentprovider реализует клиент платёжного шлюза Chargily Pay V2.
package paymentprovider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/magabrotheeeer/school-admin/internal/models"
)

// Client выполняет запросы к API Chargily с ограниченным временем ожидания.
type Client struct {
	secretKey  string
	apiURL     string
	httpClient *http.Client
}

// NewClient создаёт клиент Chargily. apiURL зависит от режима (live/test).
func NewClient(secretKey, apiURL string, timeout time.Duration) *Client {
	return &Client{
		secretKey:  secretKey,
		apiURL:     apiURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Configured сообщает, задан ли секретный ключ.
func (c *Client) Configured() bool {
	return c.secretKey != ""
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, c.apiURL+path, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// CreateCheckout создаёт платёжную сессию и возвращает ответ шлюза.
//
// Ошибки оборачивают models.ErrGatewayConfiguration (нет ключа),
// models.ErrGatewayRequest (сеть, таймаут, статус >= 400) или
// models.ErrGatewayResponse (в ответе нет checkout_url).
func (c *Client) CreateCheckout(ctx context.Context, reqParams CheckoutRequest) (*CheckoutResponse, error) {
	const op = "paymentprovider.CreateCheckout"
	if !c.Configured() {
		return nil, fmt.Errorf("%s: %w", op, models.ErrGatewayConfiguration)
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/checkouts", reqParams)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, models.ErrGatewayRequest, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, models.ErrGatewayRequest, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= http.StatusBadRequest {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("%s: %w: unexpected status %s: %s", op, models.ErrGatewayRequest, resp.Status, bytes.TrimSpace(body))
	}

	var checkoutResp CheckoutResponse
	if err := json.NewDecoder(resp.Body).Decode(&checkoutResp); err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, models.ErrGatewayResponse, err)
	}
	if checkoutResp.CheckoutURL == "" {
		return nil, fmt.Errorf("%s: %w: checkout_url is missing", op, models.ErrGatewayResponse)
	}
	return &checkoutResp, nil
}
