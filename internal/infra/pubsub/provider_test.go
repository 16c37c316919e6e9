package pubsub

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"gatekeeper/config"
	"gatekeeper/internal/domain/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx/fxtest"
)

func newDiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestLocalHTTPDispatcher_Dispatch(t *testing.T) {
	var received PushMessage
	var requestID string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID = r.Header.Get("X-Request-Id")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	dispatcher := NewLocalHTTPDispatcher(srv.URL, newDiscardLogger())
	msg := &service.OutboundMessage{
		RequestID: "req-1",
		Kind:      service.MessageOTPCode,
		Channel:   service.ChannelSMS,
		Recipient: "+886912345678",
		Code:      "123456",
	}
	require.NoError(t, dispatcher.Dispatch(context.Background(), msg))

	assert.Equal(t, "req-1", requestID)
	assert.Equal(t, map[string]string{"kind": "otp_code", "channel": "sms", "request_id": "req-1"}, received.Message.Attributes)

	data, err := base64.StdEncoding.DecodeString(received.Message.Data)
	require.NoError(t, err)
	var decoded service.OutboundMessage
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, *msg, decoded)
}

func TestLocalHTTPDispatcher_NonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	err := NewLocalHTTPDispatcher(srv.URL, newDiscardLogger()).Dispatch(context.Background(), &service.OutboundMessage{Kind: service.MessageMagicLink})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestNewMessageDispatcher_SelectsProvider(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *config.PubSubConfig
		wantErr bool
		wantT   any
	}{
		{name: "unset", cfg: nil, wantT: &noopDispatcher{}},
		{name: "noop", cfg: &config.PubSubConfig{Provider: "noop"}, wantT: &noopDispatcher{}},
		{name: "local", cfg: &config.PubSubConfig{Provider: "local", LocalEndpoint: "http://localhost:1"}, wantT: &localHTTPDispatcher{}},
		{name: "local without endpoint", cfg: &config.PubSubConfig{Provider: "local"}, wantErr: true},
		{name: "google without project", cfg: &config.PubSubConfig{Provider: "google", TopicID: "t"}, wantErr: true},
		{name: "unknown", cfg: &config.PubSubConfig{Provider: "kafka"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lc := fxtest.NewLifecycle(t)
			dispatcher, err := NewMessageDispatcher(DispatcherParams{
				Lc:     lc,
				Ctx:    context.Background(),
				Config: &config.Config{PubSub: tt.cfg},
				Logger: newDiscardLogger(),
			})
			if tt.wantErr {
				assert.Error(t, err)

				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.wantT, dispatcher)
			assert.NoError(t, dispatcher.Close())
		})
	}
}
