package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func messageResponse(id string) map[string]any {
	return map[string]any{
		"messaging_product": "whatsapp",
		"messages":          []map[string]string{{"id": id}},
	}
}

func newTestSender(server *httptest.Server) *WhatsAppCloudSender {
	return &WhatsAppCloudSender{
		accessToken:   "test_token",
		phoneNumberID: "123456789",
		httpClient:    server.Client(),
		baseURL:       server.URL,
	}
}

func TestNewWhatsAppCloudSender(t *testing.T) {
	_, err := NewWhatsAppCloudSender("", "123456789")
	assert.Error(t, err)
	_, err = NewWhatsAppCloudSender("test_token", "")
	assert.Error(t, err)

	sender, err := NewWhatsAppCloudSender("test_token", "123456789")
	require.NoError(t, err)
	assert.Equal(t, whatsAppBaseURL, sender.baseURL)
}

func TestWhatsAppCloudSender_SendTemplate(t *testing.T) {
	tests := []struct {
		name           string
		parameters     []string
		status         int
		wantComponents int
		wantErr        bool
	}{
		{name: "with parameters", parameters: []string{"Nutrition packet failed", "pkt-1"}, status: http.StatusOK, wantComponents: 1},
		{name: "without parameters", status: http.StatusOK},
		{name: "rejected", parameters: []string{"x"}, status: http.StatusBadRequest, wantComponents: 1, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "/123456789/messages", r.URL.Path)
				assert.Equal(t, "Bearer test_token", r.Header.Get("Authorization"))

				var msg outboundMessage
				require.NoError(t, json.NewDecoder(r.Body).Decode(&msg))
				assert.Equal(t, "template", msg.Type)
				assert.Nil(t, msg.Text)
				require.NotNil(t, msg.Template)
				assert.Equal(t, "packet_failed", msg.Template.Name)
				assert.Equal(t, "en_US", msg.Template.Language.Code)
				assert.Len(t, msg.Template.Components, tt.wantComponents)

				w.WriteHeader(tt.status)
				_ = json.NewEncoder(w).Encode(messageResponse("wamid.tpl"))
			}))
			defer server.Close()

			id, err := newTestSender(server).SendTemplate(context.Background(), "+15550001111", "packet_failed", "en_US", tt.parameters)
			if tt.wantErr {
				var apiErr *APIError
				require.ErrorAs(t, err, &apiErr)
				assert.Equal(t, tt.status, apiErr.StatusCode)
				assert.False(t, apiErr.Temporary())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "wamid.tpl", id)
		})
	}
}

func TestWhatsAppCloudSender_SendText(t *testing.T) {
	var got outboundMessage
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(messageResponse("wamid.text"))
	}))
	defer server.Close()

	id, err := newTestSender(server).SendText(context.Background(), "+15550001111", "Workout packet for Jane failed")
	require.NoError(t, err)
	assert.Equal(t, "wamid.text", id)
	assert.Equal(t, "text", got.Type)
	assert.Nil(t, got.Template)
	require.NotNil(t, got.Text)
	assert.Equal(t, "Workout packet for Jane failed", got.Text.Body)
}

func TestWhatsAppCloudSender_SendTextTruncatesLongBody(t *testing.T) {
	var got outboundMessage
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(messageResponse("wamid.long"))
	}))
	defer server.Close()

	_, err := newTestSender(server).SendText(context.Background(), "+15550001111", strings.Repeat("é", whatsAppMaxBody+50))
	require.NoError(t, err)
	assert.Equal(t, whatsAppMaxBody, utf8.RuneCountInString(got.Text.Body))
	assert.True(t, strings.HasSuffix(got.Text.Body, "…"))
}

func TestWhatsAppCloudSender_RateLimitIsTemporary(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"code":130429}}`))
	}))
	defer server.Close()

	_, err := newTestSender(server).SendText(context.Background(), "+15550001111", "hi")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.Temporary())
	assert.Contains(t, apiErr.Error(), "130429")
}

func TestWhatsAppCloudSender_NoMessageID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"messaging_product":"whatsapp","messages":[]}`))
	}))
	defer server.Close()

	_, err := newTestSender(server).SendText(context.Background(), "+15550001111", "Test")
	assert.True(t, errors.Is(err, ErrNoMessageID))
}

func TestWhatsAppCloudSender_NetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	sender := newTestSender(server)
	server.Close()

	_, err := sender.SendText(context.Background(), "+15550001111", "Test")
	assert.Error(t, err)
}
