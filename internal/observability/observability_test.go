package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("nonsense"))
}

func TestNewLoggerWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "info", "roomchat", "test")
	logger.Debug("hidden")
	logger.Info("hello", "room_id", "r1")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "hello", line["msg"])
	assert.Equal(t, "roomchat", line["service"])
	assert.Equal(t, "r1", line["room_id"])
}

func TestObserveCacheLookup(t *testing.T) {
	hits := testutil.ToFloat64(cacheLookupsTotal.WithLabelValues("hit"))
	misses := testutil.ToFloat64(cacheLookupsTotal.WithLabelValues("miss"))

	ObserveCacheLookup(true)
	ObserveCacheLookup(false)
	ObserveCacheLookup(false)

	assert.Equal(t, hits+1, testutil.ToFloat64(cacheLookupsTotal.WithLabelValues("hit")))
	assert.Equal(t, misses+2, testutil.ToFloat64(cacheLookupsTotal.WithLabelValues("miss")))
}

type failingPublisher struct{ calls int }

func (p *failingPublisher) Publish(context.Context, string, any, map[string]string) error {
	p.calls++
	return errors.New("channel closed")
}

func TestPublishEventCountsFailures(t *testing.T) {
	defer SetPublisher(nil)
	require.NoError(t, PublishEvent(context.Background(), "ws_events.rooms", EventEnvelope{}, nil))

	pub := &failingPublisher{}
	SetPublisher(pub)
	before := testutil.ToFloat64(amqpPublishErrorsTotal)
	err := PublishEvent(context.Background(), "ws_events.rooms", EventEnvelope{EventType: "ws_events"}, BuildHeaders("req", ""))
	assert.Error(t, err)
	assert.Equal(t, 1, pub.calls)
	assert.Equal(t, before+1, testutil.ToFloat64(amqpPublishErrorsTotal))
}

func TestRequestHelpers(t *testing.T) {
	req := httptest.NewRequest("GET", "/ws", nil)
	req.RemoteAddr = "10.0.0.1:5555"
	assert.Equal(t, "10.0.0.1", IPFromRequest(req))
	assert.NotEmpty(t, RequestIDFromRequest(req))

	req.Header.Set("X-Forwarded-For", "1.2.3.4, 10.0.0.1")
	req.Header.Set("X-Request-Id", "abc")
	assert.Equal(t, "1.2.3.4", IPFromRequest(req))
	assert.Equal(t, "abc", RequestIDFromRequest(req))
	assert.Equal(t, map[string]string{"x-request-id": "abc"}, BuildHeaders("abc", ""))
}
