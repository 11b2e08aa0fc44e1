// Package notify delivers one-time codes over a WhatsApp template-message
// gateway. Delivery is best-effort: the caller logs failures and moves on,
// it never fails a signup because the gateway is down.
package notify

import (
	"context"
	"crypto/rand"
	"fmt"

	"github.com/go-resty/resty/v2"

	"refwallet/internal/config"
)

const otpLength = 6

// OTPSender posts "otp" template messages to the configured gateway.
type OTPSender struct {
	client *resty.Client
	url    string
	apiKey string
}

// NewOTPSender builds a sender, or nil when no gateway is configured. A nil
// sender is valid and drops every message.
func NewOTPSender(cfg config.OTPConfig) *OTPSender {
	if cfg.GatewayURL == "" {
		return nil
	}

	return &OTPSender{
		client: resty.New(),
		url:    cfg.GatewayURL,
		apiKey: cfg.APIKey,
	}
}

// SendOTP generates a 6-digit code and delivers it to phone. The code is
// returned so the caller can persist it for verification.
func (s *OTPSender) SendOTP(ctx context.Context, phone string) (string, error) {
	code, err := generateCode()
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}

	if s == nil {
		return code, nil
	}

	payload := map[string]any{
		"messaging_product": "whatsapp",
		"recipient_type":    "individual",
		"to":                phone,
		"type":              "template",
		"template": map[string]any{
			"name":     "otp",
			"language": map[string]string{"code": "en"},
			"components": []map[string]any{
				{
					"type": "body",
					"parameters": []map[string]string{
						{"type": "text", "text": code},
					},
				},
				{
					"type":     "button",
					"sub_type": "url",
					"index":    "0",
					"parameters": []map[string]string{
						{"type": "payload", "payload": ""},
					},
				},
			},
		},
	}

	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("apikey", s.apiKey).
		SetBody(payload).
		Post(s.url)
	if err != nil {
		return "", fmt.Errorf("post otp to gateway: %w", err)
	}

	if resp.IsError() {
		return "", fmt.Errorf("otp gateway returned %s: %s", resp.Status(), resp.String())
	}

	return code, nil
}

func generateCode() (string, error) {
	var buf [otpLength]byte

	_, err := rand.Read(buf[:])
	if err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}

	digits := make([]byte, otpLength)
	for i, b := range buf {
		digits[i] = '0' + b%10
	}

	return string(digits), nil
}
