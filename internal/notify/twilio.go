package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	defaultTwilioBaseURL  = "https://api.twilio.com"
	defaultCountryPrefix  = "+91"
	messagesPathTemplate  = "/2010-04-01/Accounts/%s/Messages.json"
	whatsappAddressPrefix = "whatsapp:"
)

// TemplateSet holds the Twilio content template SIDs for each message.
type TemplateSet struct {
	Welcome      string
	Recharge     string
	SessionStart string
	SessionExit  string
	Broadcast    string
	ResendQR     string
}

// TwilioClient sends WhatsApp content-template messages through the
// Twilio Messages API.
type TwilioClient struct {
	accountSID    string
	authToken     string
	fromNumber    string
	countryPrefix string
	templates     TemplateSet
	baseURL       string
	httpClient    *http.Client
}

// TwilioOption configures a TwilioClient.
type TwilioOption func(*TwilioClient)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client *http.Client) TwilioOption {
	return func(twilioClient *TwilioClient) {
		twilioClient.httpClient = client
	}
}

// WithBaseURL overrides the API endpoint.
func WithBaseURL(baseURL string) TwilioOption {
	return func(twilioClient *TwilioClient) {
		twilioClient.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithCountryPrefix overrides the dialing prefix prepended to bare
// 10-digit numbers.
func WithCountryPrefix(prefix string) TwilioOption {
	return func(twilioClient *TwilioClient) {
		twilioClient.countryPrefix = prefix
	}
}

// NewTwilioClient wires a TwilioClient.
func NewTwilioClient(accountSID string, authToken string, fromNumber string, templates TemplateSet, options ...TwilioOption) (*TwilioClient, error) {
	if accountSID == "" || authToken == "" {
		return nil, fmt.Errorf("twilio credentials must not be empty")
	}
	if fromNumber == "" {
		return nil, fmt.Errorf("twilio sender number must not be empty")
	}
	client := &TwilioClient{
		accountSID:    accountSID,
		authToken:     authToken,
		fromNumber:    fromNumber,
		countryPrefix: defaultCountryPrefix,
		templates:     templates,
		baseURL:       defaultTwilioBaseURL,
		httpClient:    &http.Client{},
	}
	for _, option := range options {
		if option != nil {
			option(client)
		}
	}
	return client, nil
}

func (client *TwilioClient) Welcome(ctx context.Context, name string, mobile string, qrImageURL string, balance decimal.Decimal) error {
	return client.send(ctx, mobile, client.templates.Welcome, map[string]string{
		"1": name,
		"2": balance.String(),
		"3": qrImageURL,
	})
}

func (client *TwilioClient) Recharge(ctx context.Context, name string, mobile string, amount decimal.Decimal, bonus decimal.Decimal, newBalance decimal.Decimal) error {
	bonusText := "0"
	if bonus.IsPositive() {
		bonusText = bonus.String()
	}
	return client.send(ctx, mobile, client.templates.Recharge, map[string]string{
		"1": name,
		"2": amount.String(),
		"3": bonusText,
		"4": newBalance.String(),
	})
}

func (client *TwilioClient) SessionStart(ctx context.Context, name string, mobile string, cost decimal.Decimal, guests string) error {
	return client.send(ctx, mobile, client.templates.SessionStart, map[string]string{
		"1": name,
		"2": guests,
		"3": cost.String(),
	})
}

func (client *TwilioClient) SessionExit(ctx context.Context, name string, mobile string, balance decimal.Decimal) error {
	return client.send(ctx, mobile, client.templates.SessionExit, map[string]string{
		"1": name,
		"2": balance.String(),
	})
}

func (client *TwilioClient) Broadcast(ctx context.Context, mobile string, message string) error {
	return client.send(ctx, mobile, client.templates.Broadcast, map[string]string{
		"1": message,
	})
}

func (client *TwilioClient) ResendQR(ctx context.Context, name string, mobile string, qrImageURL string) error {
	return client.send(ctx, mobile, client.templates.ResendQR, map[string]string{
		"1": name,
		"2": qrImageURL,
	})
}

func (client *TwilioClient) send(ctx context.Context, mobile string, contentSID string, variables map[string]string) error {
	if contentSID == "" {
		return fmt.Errorf("no content template configured for this message")
	}
	encodedVariables, err := json.Marshal(variables)
	if err != nil {
		return fmt.Errorf("encode content variables: %w", err)
	}
	form := url.Values{}
	form.Set("From", client.fromNumber)
	form.Set("To", client.whatsappAddress(mobile))
	form.Set("ContentSid", contentSID)
	form.Set("ContentVariables", string(encodedVariables))

	endpoint := client.baseURL + fmt.Sprintf(messagesPathTemplate, client.accountSID)
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build twilio request: %w", err)
	}
	request.SetBasicAuth(client.accountSID, client.authToken)
	request.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	response, err := client.httpClient.Do(request)
	if err != nil {
		return fmt.Errorf("send twilio request: %w", err)
	}
	defer response.Body.Close()
	if response.StatusCode >= 300 {
		return fmt.Errorf("twilio send failed: %s", response.Status)
	}
	return nil
}

// whatsappAddress formats a destination. Bare 10-digit numbers get the
// configured country prefix; numbers already carrying a + keep it.
func (client *TwilioClient) whatsappAddress(mobile string) string {
	trimmed := strings.TrimSpace(mobile)
	if !strings.HasPrefix(trimmed, "+") {
		trimmed = client.countryPrefix + trimmed
	}
	return whatsappAddressPrefix + trimmed
}
