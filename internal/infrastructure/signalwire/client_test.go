package signalwire

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	apperrors "github.com/operationseasyfi/ai-voice-agent/internal/domain/errors"
	"github.com/operationseasyfi/ai-voice-agent/internal/infrastructure/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient(config.SignalWireConfig{
		ProjectID: "proj-1",
		Token:     "secret",
		SpaceURL:  srv.URL,
		Timeout:   time.Second,
	}, zaptest.NewLogger(t))
	require.NoError(t, err)
	return c
}

func TestClient_GetRecording(t *testing.T) {
	t.Run("first recording", func(t *testing.T) {
		var gotPath string
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			user, pass, ok := r.BasicAuth()
			assert.True(t, ok)
			assert.Equal(t, "proj-1", user)
			assert.Equal(t, "secret", pass)
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"recordings":[
				{"sid":"RE123","duration":"95","status":"completed"},
				{"sid":"RE456","duration":"12","status":"completed"}
			]}`))
		})

		rec, err := c.GetRecording(context.Background(), "CA-1")
		require.NoError(t, err)
		require.NotNil(t, rec)
		assert.Equal(t, "/api/laml/2010-04-01/Accounts/proj-1/Calls/CA-1/Recordings.json", gotPath)
		assert.Equal(t, "RE123", rec.SID)
		assert.Equal(t, 95.0, rec.Duration)
		assert.Equal(t, c.baseURL+"/Recordings/RE123.mp3", rec.URL)
	})

	t.Run("numeric duration", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"recordings":[{"sid":"RE1","duration":42.5}]}`))
		})
		rec, err := c.GetRecording(context.Background(), "CA-2")
		require.NoError(t, err)
		assert.Equal(t, 42.5, rec.Duration)
	})

	t.Run("no recordings yet", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"recordings":[]}`))
		})
		rec, err := c.GetRecording(context.Background(), "CA-3")
		require.NoError(t, err)
		assert.Nil(t, rec)
	})

	t.Run("unknown call", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		})
		rec, err := c.GetRecording(context.Background(), "CA-4")
		require.NoError(t, err)
		assert.Nil(t, rec)
	})

	t.Run("server error", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		})
		_, err := c.GetRecording(context.Background(), "CA-5")
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeExternal))
	})

	t.Run("malformed body", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`<html>`))
		})
		_, err := c.GetRecording(context.Background(), "CA-6")
		assert.Error(t, err)
	})

	t.Run("missing call id", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("unexpected request")
		})
		_, err := c.GetRecording(context.Background(), "")
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
	})
}

func TestNewClient(t *testing.T) {
	_, err := NewClient(config.SignalWireConfig{ProjectID: "p"}, zaptest.NewLogger(t))
	assert.Error(t, err)

	c, err := NewClient(config.SignalWireConfig{
		ProjectID: "p", Token: "t", SpaceURL: "example.signalwire.com/",
	}, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.Equal(t, "https://example.signalwire.com/api/laml/2010-04-01/Accounts/p", c.baseURL)
	assert.Equal(t, defaultTimeout, c.client.Timeout)
}
