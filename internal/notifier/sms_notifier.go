package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	config "github.com/DaniDevGS/triven-shop/configs"
	"github.com/DaniDevGS/triven-shop/internal/logkey"
	"github.com/DaniDevGS/triven-shop/internal/orders"
)

type SMSResponse struct {
	SMSMessageData struct {
		Message    string `json:"Message"`
		Recipients []struct {
			StatusCode int    `json:"statusCode"`
			Number     string `json:"number"`
			Cost       string `json:"cost"`
			Status     string `json:"status"`
			MessageID  string `json:"messageId"`
		} `json:"Recipients"`
	} `json:"SMSMessageData"`
}

// SMSSender talks to the Africa's Talking messaging API.
type SMSSender struct {
	cfg    config.AfricaTalkingConfig
	client *http.Client
}

func NewSMSSender(cfg config.AfricaTalkingConfig) *SMSSender {
	return &SMSSender{cfg: cfg, client: &http.Client{Timeout: 10 * time.Second}}
}

// NotifyManager alerts the shop's phone that an order is waiting for review.
func (s *SMSSender) NotifyManager(ctx context.Context, r orders.Receipt) error {
	if s.cfg.ManagerPhone == "" {
		return fmt.Errorf("manager phone number is not configured")
	}
	message := fmt.Sprintf("New order %s from %s waiting for review. Total: $%s (%d items).",
		r.Code, r.Buyer, r.Total.StringFixed(2), len(r.Items))
	return s.Send(ctx, s.cfg.ManagerPhone, message)
}

func (s *SMSSender) Send(ctx context.Context, toPhoneNumber, message string) error {
	data := url.Values{}
	data.Set("username", s.cfg.Username)
	data.Set("to", toPhoneNumber)
	data.Set("message", message)
	data.Set("from", s.cfg.SenderID)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.SMSURL, strings.NewReader(data.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create SMS request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("apikey", s.cfg.APIKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("SMS send failed: %w", err)
	}
	defer resp.Body.Close()

	var smsResp SMSResponse
	decodeErr := json.NewDecoder(resp.Body).Decode(&smsResp)

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		if decodeErr == nil {
			slog.Warn("SMS API returned error",
				slog.Int("http_status", resp.StatusCode),
				slog.String("message", smsResp.SMSMessageData.Message))
		}
		return fmt.Errorf("SMS API returned non-success status: %d", resp.StatusCode)
	}
	if decodeErr != nil {
		return fmt.Errorf("failed to decode SMS response: %w", decodeErr)
	}

	slog.Info("SMS sent", slog.String("to", toPhoneNumber), slog.String("message", smsResp.SMSMessageData.Message))
	return nil
}

func logFailure(channel, code string, err error) {
	slog.Error("notification failed",
		slog.String("channel", channel),
		slog.String(logkey.OrderCode, code),
		slog.String(logkey.ERROR, err.Error()))
}
