package backendapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// Client fala com o backend REST da clínica e com o proxy do gateway de
// pagamento (Asaas). Ele não guarda estado além da configuração.
type Client struct {
	baseURL string
	token   string
	hc      *http.Client
}

// APIError carries the transport status, the backend's internal status code
// (embedded in the response body, distinct from the HTTP one) and a message
// already safe to show to the user.
type APIError struct {
	HTTPStatus     int
	InternalStatus int
	Message        string
}

func (e *APIError) Error() string {
	if e.InternalStatus != 0 && e.InternalStatus != e.HTTPStatus {
		return fmt.Sprintf("backend: http=%d interno=%d: %s", e.HTTPStatus, e.InternalStatus, e.Message)
	}
	return fmt.Sprintf("backend: http=%d: %s", e.HTTPStatus, e.Message)
}

// NewClientFromEnv builds a client from BACKEND_BASE_URL / BACKEND_API_TOKEN.
func NewClientFromEnv() *Client {
	base := os.Getenv("BACKEND_BASE_URL")
	if base == "" {
		base = "http://localhost:3333"
	}
	timeout := 15 * time.Second
	return NewClient(base, os.Getenv("BACKEND_API_TOKEN"), &http.Client{Timeout: timeout})
}

func NewClient(baseURL, token string, hc *http.Client) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), token: token, hc: hc}
}

func (c *Client) do(ctx context.Context, method, path string, body any) ([]byte, int, error) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, 0, err
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, 0, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return raw, resp.StatusCode, nil
}

func (c *Client) get(ctx context.Context, path string) ([]byte, int, error) {
	return c.do(ctx, http.MethodGet, path, nil)
}

func (c *Client) postJSON(ctx context.Context, path string, body any) ([]byte, int, error) {
	return c.do(ctx, http.MethodPost, path, body)
}

// errorMessage digs a human-readable message out of an error body. The
// backend is inconsistent here too: sometimes {error}, sometimes {message},
// sometimes wrapped in data.
func errorMessage(raw []byte) string {
	for _, cand := range envelopeCandidates(raw) {
		var body struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		}
		if err := json.Unmarshal(cand, &body); err != nil {
			continue
		}
		if body.Error != "" {
			return body.Error
		}
		if body.Message != "" {
			return body.Message
		}
	}
	return "erro inesperado no servidor"
}
