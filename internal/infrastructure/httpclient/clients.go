package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// InventoryClient calls a remote stock ledger's deduct endpoint. The
// caller's bearer credential is forwarded on every request so the
// downstream hop performs its own authorization.
type InventoryClient struct {
	baseURL string
	client  *http.Client
}

func NewInventoryClient(baseURL string, timeout time.Duration) *InventoryClient {
	return &InventoryClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

type deductRequest struct {
	SKUCode  string `json:"skuCode"`
	Quantity int    `json:"quantity"`
}

// Deduct returns (false, nil) when the ledger rejects the deduction and an
// error for transport failures; the orchestrator treats both as saga
// failure.
func (c *InventoryClient) Deduct(ctx context.Context, credential, skuCode string, quantity int) (bool, error) {
	body, err := json.Marshal(deductRequest{SKUCode: skuCode, Quantity: quantity})
	if err != nil {
		return false, fmt.Errorf("encode deduct request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/inventory/deduct", bytes.NewReader(body))
	if err != nil {
		return false, fmt.Errorf("build deduct request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	setBearer(req, credential)

	resp, err := c.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("call inventory service: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return true, nil
	case resp.StatusCode == http.StatusConflict || resp.StatusCode == http.StatusUnprocessableEntity:
		return false, nil
	default:
		return false, fmt.Errorf("inventory service returned %d", resp.StatusCode)
	}
}

// UserClient resolves user emails from a remote user service.
type UserClient struct {
	baseURL string
	client  *http.Client
}

func NewUserClient(baseURL string, timeout time.Duration) *UserClient {
	return &UserClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *UserClient) EmailOf(ctx context.Context, credential, username string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/auth/email/"+username, nil)
	if err != nil {
		return "", fmt.Errorf("build email request: %w", err)
	}
	setBearer(req, credential)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("call user service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("user service returned %d", resp.StatusCode)
	}

	var payload struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decode email response: %w", err)
	}
	return payload.Email, nil
}

func setBearer(req *http.Request, credential string) {
	if credential != "" {
		req.Header.Set("Authorization", "Bearer "+credential)
	}
}
