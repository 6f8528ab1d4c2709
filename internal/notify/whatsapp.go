package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"mesaflow/internal/config"
)

// WhatsAppClient talks to a uazapi-style WhatsApp gateway. Messages are plain
// text; media and templates are handled by the gateway itself.
type WhatsAppClient struct {
	baseURL string
	token   string
	hc      *http.Client
}

func NewWhatsAppClient(cfg config.WhatsAppConfig) *WhatsAppClient {
	return &WhatsAppClient{
		baseURL: cfg.BaseURL,
		token:   cfg.Token,
		hc:      &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *WhatsAppClient) Configured() bool {
	return c.baseURL != "" && c.token != ""
}

func (c *WhatsAppClient) SendText(ctx context.Context, number, text string) error {
	if !c.Configured() {
		return errors.New("whatsapp gateway not configured")
	}

	payload, err := json.Marshal(map[string]string{
		"number": number,
		"text":   text,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/send/text", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("token", c.token)

	res, err := c.hc.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
		var e struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(body, &e) == nil && e.Message != "" {
			return fmt.Errorf("whatsapp send failed: %s", e.Message)
		}
		return fmt.Errorf("whatsapp send failed (status=%d)", res.StatusCode)
	}
	return nil
}
