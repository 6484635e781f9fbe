package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	whatsAppBaseURL    = "https://graph.facebook.com/v18.0"
	whatsAppMaxBody    = 4096
	whatsAppMaxRespLen = 64 << 10
)

// ErrNoMessageID is returned when the Cloud API accepts a request but does
// not report the created message.
var ErrNoMessageID = errors.New("whatsapp: no message ID in response")

// APIError is a non-2xx answer from the Cloud API.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("whatsapp API error (status %d): %s", e.StatusCode, e.Body)
}

// Temporary reports whether resending later may succeed.
func (e *APIError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError
}

// WhatsAppCloudSender posts coach notifications to the WhatsApp Cloud API
type WhatsAppCloudSender struct {
	accessToken   string
	phoneNumberID string
	httpClient    *http.Client
	baseURL       string
}

// NewWhatsAppCloudSender creates a sender for one business phone number
func NewWhatsAppCloudSender(accessToken, phoneNumberID string) (*WhatsAppCloudSender, error) {
	if accessToken == "" || phoneNumberID == "" {
		return nil, fmt.Errorf("WHATSAPP_ACCESS_TOKEN and WHATSAPP_PHONE_NUMBER_ID must be set")
	}

	return &WhatsAppCloudSender{
		accessToken:   accessToken,
		phoneNumberID: phoneNumberID,
		httpClient:    &http.Client{Timeout: 15 * time.Second},
		baseURL:       whatsAppBaseURL,
	}, nil
}

// outboundMessage covers both the text and template message shapes; only
// the field matching Type is set.
type outboundMessage struct {
	MessagingProduct string           `json:"messaging_product"`
	RecipientType    string           `json:"recipient_type"`
	To               string           `json:"to"`
	Type             string           `json:"type"`
	Text             *textPayload     `json:"text,omitempty"`
	Template         *templatePayload `json:"template,omitempty"`
}

type textPayload struct {
	PreviewURL bool   `json:"preview_url"`
	Body       string `json:"body"`
}

type templatePayload struct {
	Name     string `json:"name"`
	Language struct {
		Code string `json:"code"`
	} `json:"language"`
	Components []templateComponent `json:"components,omitempty"`
}

type templateComponent struct {
	Type       string              `json:"type"`
	Parameters []templateParameter `json:"parameters"`
}

type templateParameter struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type sendResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
}

func newOutbound(to, kind string) outboundMessage {
	return outboundMessage{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               to,
		Type:             kind,
	}
}

// SendTemplate sends an approved template; parameters fill the body placeholders in order
func (w *WhatsAppCloudSender) SendTemplate(ctx context.Context, to, templateName, languageCode string, parameters []string) (string, error) {
	tpl := &templatePayload{Name: templateName}
	tpl.Language.Code = languageCode
	if len(parameters) > 0 {
		body := templateComponent{Type: "body", Parameters: make([]templateParameter, 0, len(parameters))}
		for _, p := range parameters {
			body.Parameters = append(body.Parameters, templateParameter{Type: "text", Text: p})
		}
		tpl.Components = []templateComponent{body}
	}

	msg := newOutbound(to, "template")
	msg.Template = tpl
	return w.post(ctx, msg)
}

// SendText sends a freeform message. Bodies over the Cloud API limit are truncated.
func (w *WhatsAppCloudSender) SendText(ctx context.Context, to, body string) (string, error) {
	if r := []rune(body); len(r) > whatsAppMaxBody {
		body = string(r[:whatsAppMaxBody-1]) + "…"
	}
	msg := newOutbound(to, "text")
	msg.Text = &textPayload{Body: body}
	return w.post(ctx, msg)
}

func (w *WhatsAppCloudSender) post(ctx context.Context, msg outboundMessage) (string, error) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return "", fmt.Errorf("failed to marshal %s message: %w", msg.Type, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.baseURL+"/"+w.phoneNumberID+"/messages", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+w.accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("whatsapp request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, whatsAppMaxRespLen))
	if err != nil {
		return "", fmt.Errorf("failed to read whatsapp response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var out sendResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("failed to decode whatsapp response: %w", err)
	}
	if len(out.Messages) == 0 || out.Messages[0].ID == "" {
		return "", ErrNoMessageID
	}
	return out.Messages[0].ID, nil
}
