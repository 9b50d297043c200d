package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aniladanir/whatsapp-messenger-service/internal/domain"
	"github.com/aniladanir/whatsapp-messenger-service/internal/metrics"
	"github.com/google/uuid"
)

const (
	DefaultBaseURL = "https://graph.facebook.com/v18.0"
	DefaultTimeout = 30 * time.Second
)

type Config struct {
	BaseURL       string
	PhoneNumberID string
	AccessToken   string
	Timeout       time.Duration
	HTTPClient    *http.Client
}

// Client sends text messages through the WhatsApp Cloud API. It makes exactly
// one request per call and never touches storage.
type Client struct {
	endpoint    string
	accessToken string
	httpClient  *http.Client
	logger      *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.PhoneNumberID) == "" || strings.TrimSpace(cfg.AccessToken) == "" {
		return nil, domain.ConfigurationError(
			"WhatsApp API credentials not configured. Please set WHATSAPP_PHONE_NUMBER_ID and WHATSAPP_ACCESS_TOKEN.",
		)
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		endpoint:    fmt.Sprintf("%s/%s/messages", baseURL, cfg.PhoneNumberID),
		accessToken: cfg.AccessToken,
		httpClient:  httpClient,
		logger:      logger,
	}, nil
}

// SendText delivers body to a single recipient. The returned error is a
// *TransportError when the call could not complete and a *RejectedError when
// the API answered outside the 2xx range.
func (c *Client) SendText(ctx context.Context, to, body string) (*SendResponse, error) {
	payload, err := json.Marshal(newTextMessage(to, body))
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	requestID := uuid.NewString()
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", requestID)

	logger := c.logger.With(slog.String("requestId", requestID))

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	metrics.WhatsAppLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.WhatsAppSend.WithLabelValues(metrics.ResultTransportError).Inc()
		logger.Error("failed to send request", "error", err.Error())
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.WhatsAppSend.WithLabelValues(metrics.ResultTransportError).Inc()
		logger.Error("failed to read response body", "error", err.Error())
		return nil, &TransportError{Err: err}
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		metrics.WhatsAppSend.WithLabelValues(metrics.ResultRejected).Inc()
		logger.Error("response indicates error", "statusCode", resp.StatusCode)
		return nil, &RejectedError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	out, err := decodeSendResponse(resp.StatusCode, raw)
	if err != nil {
		metrics.WhatsAppSend.WithLabelValues(metrics.ResultInvalidResponse).Inc()
		logger.Error("failed to decode response", "statusCode", resp.StatusCode, "error", err.Error())
		return nil, &RejectedError{StatusCode: resp.StatusCode, Body: string(raw), Err: err}
	}

	metrics.WhatsAppSend.WithLabelValues(metrics.ResultSent).Inc()
	logger.Info("message accepted", "statusCode", resp.StatusCode, "messageId", out.MessageID())
	return out, nil
}
