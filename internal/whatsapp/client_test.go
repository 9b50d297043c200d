package whatsapp

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aniladanir/whatsapp-messenger-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()

	c, err := NewClient(Config{
		BaseURL:       baseURL,
		PhoneNumberID: "12345",
		AccessToken:   "test-token",
		Timeout:       time.Second,
	}, nil)
	require.NoError(t, err)
	return c
}

func TestNewClient_RequiresCredentials(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{name: "missing phone number id", cfg: Config{AccessToken: "token"}},
		{name: "missing access token", cfg: Config{PhoneNumberID: "12345"}},
		{name: "blank access token", cfg: Config{PhoneNumberID: "12345", AccessToken: "   "}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewClient(tt.cfg, nil)
			assert.Nil(t, c)
			require.ErrorIs(t, err, domain.ErrConfiguration)
			assert.Contains(t, err.Error(), "WhatsApp API credentials not configured")
		})
	}
}

func TestNewClient_Defaults(t *testing.T) {
	c, err := NewClient(Config{PhoneNumberID: "12345", AccessToken: "token"}, nil)
	require.NoError(t, err)

	assert.Equal(t, "https://graph.facebook.com/v18.0/12345/messages", c.endpoint)
	assert.Equal(t, DefaultTimeout, c.httpClient.Timeout)
}

func TestSendText_Success(t *testing.T) {
	var (
		gotPath    string
		gotAuth    string
		gotCT      string
		gotReqID   string
		gotPayload map[string]any
	)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotCT = r.Header.Get("Content-Type")
		gotReqID = r.Header.Get("X-Request-ID")
		b, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(b, &gotPayload)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"messaging_product":"whatsapp","contacts":[{"input":"+14155552671","wa_id":"14155552671"}],"messages":[{"id":"wamid.X"}]}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL+"/")

	resp, err := c.SendText(context.Background(), "+14155552671", "hello")
	require.NoError(t, err)

	assert.Equal(t, "/12345/messages", gotPath)
	assert.Equal(t, "Bearer test-token", gotAuth)
	assert.Equal(t, "application/json", gotCT)
	assert.NotEmpty(t, gotReqID)

	assert.Equal(t, "whatsapp", gotPayload["messaging_product"])
	assert.Equal(t, "individual", gotPayload["recipient_type"])
	assert.Equal(t, "+14155552671", gotPayload["to"])
	assert.Equal(t, "text", gotPayload["type"])
	assert.Equal(t, map[string]any{"preview_url": false, "body": "hello"}, gotPayload["text"])

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "wamid.X", resp.MessageID())
	assert.Equal(t, "whatsapp", resp.Payload["messaging_product"])
}

func TestSendText_AcceptsAny2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"messaging_product":"whatsapp"}`))
	}))
	defer srv.Close()

	resp, err := newTestClient(t, srv.URL).SendText(context.Background(), "+14155552671", "hi")
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Empty(t, resp.MessageID())
}

func TestSendResponse_MessageID(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{name: "first of many", body: `{"messages":[{"id":"a"},{"id":"b"}]}`, want: "a"},
		{name: "empty list", body: `{"messages":[]}`, want: ""},
		{name: "absent list", body: `{"contacts":[]}`, want: ""},
		{name: "unexpected shape", body: `{"messages":"nope"}`, want: ""},
		{name: "missing id", body: `{"messages":[{}]}`, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := decodeSendResponse(http.StatusOK, []byte(tt.body))
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.MessageID())
		})
	}

	var nilResp *SendResponse
	assert.Empty(t, nilResp.MessageID())
}

func TestSendText_Rejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`Bad Request`))
	}))
	defer srv.Close()

	resp, err := newTestClient(t, srv.URL).SendText(context.Background(), "+14155552671", "hi")
	assert.Nil(t, resp)

	var rejected *RejectedError
	require.ErrorAs(t, err, &rejected)
	assert.Equal(t, http.StatusBadRequest, rejected.StatusCode)
	assert.Equal(t, "Bad Request", rejected.Body)
	assert.Equal(t, "400 - Bad Request", err.Error())
}

func TestSendText_UndecodableSuccessBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`THIS IS NOT JSON`))
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv.URL).SendText(context.Background(), "+14155552671", "hi")

	var rejected *RejectedError
	require.ErrorAs(t, err, &rejected)
	assert.Equal(t, http.StatusOK, rejected.StatusCode)
	assert.Equal(t, "THIS IS NOT JSON", rejected.Body)
	assert.Error(t, rejected.Err)
}

func TestSendText_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := newTestClient(t, url).SendText(context.Background(), "+14155552671", "hi")

	var transport *TransportError
	require.ErrorAs(t, err, &transport)
	assert.NotEmpty(t, transport.Error())
}

func TestSendText_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	c, err := NewClient(Config{
		BaseURL:       srv.URL,
		PhoneNumberID: "12345",
		AccessToken:   "token",
		Timeout:       20 * time.Millisecond,
	}, nil)
	require.NoError(t, err)

	_, err = c.SendText(context.Background(), "+14155552671", "hi")

	var transport *TransportError
	require.ErrorAs(t, err, &transport)
}
