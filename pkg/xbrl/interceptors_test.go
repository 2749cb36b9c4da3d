package xbrl_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xbrlus/xbrlapi/pkg/xbrl"
)

func TestInterceptorChain_RequestInterceptors(t *testing.T) {
	t.Parallel()

	chain := xbrl.NewInterceptorChain()

	var executionOrder []string

	chain.AddRequestInterceptor(func(_ context.Context, _ *xbrl.Request) error {
		executionOrder = append(executionOrder, "first")

		return nil
	})
	chain.AddRequestInterceptor(func(_ context.Context, _ *xbrl.Request) error {
		executionOrder = append(executionOrder, "second")

		return nil
	})

	err := chain.ExecuteRequestInterceptors(context.Background(), &xbrl.Request{Method: http.MethodGet, Path: "/api/v1/fact/search"})
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, executionOrder)
}

func TestInterceptorChain_StopsOnError(t *testing.T) {
	t.Parallel()

	chain := xbrl.NewInterceptorChain()
	denied := errors.New("denied")
	called := false

	chain.AddRequestInterceptor(func(_ context.Context, _ *xbrl.Request) error { return denied })
	chain.AddRequestInterceptor(func(_ context.Context, _ *xbrl.Request) error {
		called = true

		return nil
	})
	chain.AddResponseInterceptor(func(_ context.Context, _ *xbrl.Request, _ *xbrl.Response) error { return denied })

	err := chain.ExecuteRequestInterceptors(context.Background(), &xbrl.Request{})
	require.ErrorIs(t, err, denied)
	assert.Contains(t, err.Error(), "request interceptor failed")
	assert.False(t, called)

	err = chain.ExecuteResponseInterceptors(context.Background(), &xbrl.Request{}, &xbrl.Response{})
	require.ErrorIs(t, err, denied)
	assert.Contains(t, err.Error(), "response interceptor failed")
}

func TestHeaderInterceptor(t *testing.T) {
	t.Parallel()

	interceptor := xbrl.HeaderInterceptor(map[string]string{
		"X-Team":       "research",
		"X-Request-ID": "123456",
	})

	req := &xbrl.Request{Method: http.MethodGet, Path: "/api/v1/report/search"}
	require.NoError(t, interceptor(context.Background(), req))

	assert.Equal(t, "research", req.Headers.Get("X-Team"))
	assert.Equal(t, "123456", req.Headers.Get("X-Request-ID"))
}

type recordingLogger struct {
	xbrl.NopLogger

	mutex    sync.Mutex
	messages []string
	fields   []map[string]interface{}
}

func (l *recordingLogger) record(level, msg string, fields map[string]interface{}) {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	l.messages = append(l.messages, level+":"+msg)
	l.fields = append(l.fields, fields)
}

func (l *recordingLogger) Debug(msg string, fields map[string]interface{}) { l.record("debug", msg, fields) }
func (l *recordingLogger) Warn(msg string, fields map[string]interface{})  { l.record("warn", msg, fields) }
func (l *recordingLogger) Error(msg string, fields map[string]interface{}) { l.record("error", msg, fields) }

func TestLoggingInterceptors(t *testing.T) {
	t.Parallel()

	logger := &recordingLogger{}
	req := &xbrl.Request{
		Method:  http.MethodGet,
		Path:    "/api/v1/fact/search?fields=fact.value%2Cfact.limit%28100%29&concept.local-name=Assets",
		Headers: http.Header{"X-Correlation-Id": []string{"corr-1"}, "Authorization": []string{"Bearer secret"}},
	}
	onResponse := xbrl.LoggingResponseInterceptor(logger)

	require.NoError(t, xbrl.LoggingInterceptor(logger)(context.Background(), req))
	require.NoError(t, onResponse(context.Background(), req, &xbrl.Response{StatusCode: http.StatusOK, Body: []byte(`{"data":[]}`)}))
	require.NoError(t, onResponse(context.Background(), req, &xbrl.Response{
		StatusCode: http.StatusOK,
		Body:       []byte(`{"error":"invalid_request","error_description":"Bad or expired token"}`),
	}))
	require.NoError(t, onResponse(context.Background(), req, &xbrl.Response{Error: errors.New("reset")}))

	assert.Equal(t, []string{
		"debug:XBRL request",
		"debug:XBRL response",
		"warn:XBRL API error",
		"error:XBRL request failed",
	}, logger.messages)

	first := logger.fields[0]
	assert.Equal(t, "/api/v1/fact/search", first["route"])
	assert.Equal(t, "fact.value,fact.limit(100)", first["fields"])
	assert.Equal(t, "corr-1", first["correlation_id"])
	assert.Equal(t, "invalid_request", logger.fields[2]["error"])

	for _, fields := range logger.fields {
		for _, value := range fields {
			assert.NotContains(t, fmt.Sprint(value), "secret")
		}
	}
}

func TestRateLimitInterceptor(t *testing.T) {
	t.Parallel()

	interceptor, stop := xbrl.RateLimitInterceptor(2)
	defer stop()

	req := &xbrl.Request{}

	require.NoError(t, interceptor(context.Background(), req))
	require.NoError(t, interceptor(context.Background(), req))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// The bucket is empty until the next refill tick.
	err := interceptor(ctx, req)
	require.ErrorIs(t, err, context.Canceled)

	waitCtx, waitCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer waitCancel()

	require.NoError(t, interceptor(waitCtx, req))

	stop()
	stop()
}

func TestMetricsInterceptors(t *testing.T) {
	t.Parallel()

	collector := xbrl.NewMetricsCollector()

	var changes []string

	collector.SetOnChange(func(endpoint string, _ xbrl.Metrics) {
		changes = append(changes, endpoint)
	})

	requestInterceptor := xbrl.MetricsRequestInterceptor(collector)
	responseInterceptor := xbrl.MetricsResponseInterceptor(collector)

	responses := []*xbrl.Response{
		{StatusCode: http.StatusOK, Body: []byte(`{"data":[]}`)},
		{StatusCode: http.StatusBadGateway},
		{StatusCode: http.StatusOK, Body: []byte(`{"error":"invalid_request","error_description":"Bad or expired token"}`)},
	}

	for _, resp := range responses {
		req := &xbrl.Request{Method: http.MethodGet, Path: "/api/v1/fact/search?fields=fact.value"}
		require.NoError(t, requestInterceptor(context.Background(), req))
		require.NoError(t, responseInterceptor(context.Background(), req, resp))
	}

	metrics, ok := collector.GetMetrics("GET /api/v1/fact/search")
	require.True(t, ok)
	assert.Equal(t, int64(3), metrics.TotalRequests)
	assert.Equal(t, int64(1), metrics.TotalErrors)
	assert.Equal(t, int64(1), metrics.APIErrors)
	assert.False(t, metrics.LastRequestTime.IsZero())
	assert.Len(t, changes, 3)
	assert.Equal(t, "GET /api/v1/fact/search", changes[0])

	_, ok = collector.GetMetrics("GET /unknown")
	assert.False(t, ok)
}
