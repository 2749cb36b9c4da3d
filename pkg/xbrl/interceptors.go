package xbrl

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/xbrlus/xbrlapi/internal/constants"
)

const metricsStartKey = "xbrl.start"

// Request is one API exchange as seen by interceptors. Path is relative to
// the base URL and keeps its query string. Headers already carry the bearer
// token and correlation ID, and changes to them are sent.
type Request struct {
	Method   string
	Path     string
	Headers  http.Header
	Body     []byte
	Metadata map[string]interface{}
}

// Response is the answer to a Request. Error is set when the exchange itself
// failed; API error payloads arrive in Body with a normal status.
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
	Error      error
}

// RequestInterceptor runs before a request leaves the client. A non-nil
// error aborts the request.
type RequestInterceptor func(ctx context.Context, req *Request) error

// ResponseInterceptor runs once the response body has been read.
type ResponseInterceptor func(ctx context.Context, req *Request, resp *Response) error

// InterceptorChain holds interceptors in registration order.
type InterceptorChain struct {
	requestInterceptors  []RequestInterceptor
	responseInterceptors []ResponseInterceptor
}

// NewInterceptorChain returns an empty chain.
func NewInterceptorChain() *InterceptorChain {
	return &InterceptorChain{}
}

// AddRequestInterceptor appends interceptor to the request side.
func (c *InterceptorChain) AddRequestInterceptor(interceptor RequestInterceptor) {
	c.requestInterceptors = append(c.requestInterceptors, interceptor)
}

// AddResponseInterceptor appends interceptor to the response side.
func (c *InterceptorChain) AddResponseInterceptor(interceptor ResponseInterceptor) {
	c.responseInterceptors = append(c.responseInterceptors, interceptor)
}

// ExecuteRequestInterceptors stops at the first failing interceptor.
func (c *InterceptorChain) ExecuteRequestInterceptors(ctx context.Context, req *Request) error {
	for _, interceptor := range c.requestInterceptors {
		err := interceptor(ctx, req)
		if err != nil {
			return fmt.Errorf("request interceptor failed: %w", err)
		}
	}

	return nil
}

// ExecuteResponseInterceptors stops at the first failing interceptor.
func (c *InterceptorChain) ExecuteResponseInterceptors(ctx context.Context, req *Request, resp *Response) error {
	for _, interceptor := range c.responseInterceptors {
		err := interceptor(ctx, req, resp)
		if err != nil {
			return fmt.Errorf("response interceptor failed: %w", err)
		}
	}

	return nil
}

// LoggingInterceptor writes each outgoing call at debug level with its
// route, fields parameter and correlation ID. Credentials are never logged.
func LoggingInterceptor(logger Logger) RequestInterceptor {
	return func(_ context.Context, req *Request) error {
		logger.Debug("XBRL request", requestFields(req))

		return nil
	}
}

// LoggingResponseInterceptor logs failed exchanges as errors and API error
// payloads, such as an expired token, as warnings.
func LoggingResponseInterceptor(logger Logger) ResponseInterceptor {
	return func(_ context.Context, req *Request, resp *Response) error {
		fields := requestFields(req)
		fields["status_code"] = resp.StatusCode

		if resp.Error != nil {
			fields["error"] = resp.Error.Error()
			logger.Error("XBRL request failed", fields)

			return nil
		}

		if serverErr, ok := ParseServerError(resp.Body); ok {
			fields["error"] = serverErr.Error
			logger.Warn("XBRL API error", fields)

			return nil
		}

		logger.Debug("XBRL response", fields)

		return nil
	}
}

func requestFields(req *Request) map[string]interface{} {
	route, rawQuery, _ := strings.Cut(req.Path, "?")

	fields := map[string]interface{}{
		"method": req.Method,
		"route":  route,
	}

	if query, err := url.ParseQuery(rawQuery); err == nil && query.Has(constants.ParamFields) {
		fields["fields"] = query.Get(constants.ParamFields)
	}

	if id := req.Headers.Get(constants.HeaderCorrelationID); id != "" {
		fields["correlation_id"] = id
	}

	return fields
}

// RateLimitInterceptor lets at most perSecond calls through each second,
// with bursts of up to perSecond. Page requests of one paginated call each
// take a slot. Call stop once the client is no longer used.
func RateLimitInterceptor(perSecond int) (RequestInterceptor, func()) {
	if perSecond <= 0 {
		perSecond = 1
	}

	slots := make(chan struct{}, perSecond)
	for range perSecond {
		slots <- struct{}{}
	}

	done := make(chan struct{})

	var once sync.Once

	go func() {
		ticker := time.NewTicker(time.Second / time.Duration(perSecond))
		defer ticker.Stop()

		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				select {
				case slots <- struct{}{}:
				default:
				}
			}
		}
	}()

	interceptor := func(ctx context.Context, _ *Request) error {
		select {
		case <-slots:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return interceptor, func() { once.Do(func() { close(done) }) }
}

// HeaderInterceptor sets fixed headers on every call, for example to tag
// traffic from one application. A header the client already set, including
// Authorization, is replaced.
func HeaderInterceptor(headers map[string]string) RequestInterceptor {
	return func(_ context.Context, req *Request) error {
		if req.Headers == nil {
			req.Headers = make(http.Header, len(headers))
		}

		for name, value := range headers {
			req.Headers.Set(name, value)
		}

		return nil
	}
}

// Metrics are the counters for one route. TotalErrors counts failed
// exchanges and 4xx/5xx statuses; APIErrors counts error payloads returned
// in the body.
type Metrics struct {
	TotalRequests   int64
	TotalErrors     int64
	APIErrors       int64
	TotalLatency    time.Duration
	AverageLatency  time.Duration
	LastRequestTime time.Time
}

// MetricsCollector aggregates Metrics per "METHOD route", without the query
// string, so every page of a search lands on one key.
type MetricsCollector struct {
	mutex    sync.Mutex
	metrics  map[string]*Metrics
	onChange func(endpoint string, metrics Metrics)
}

// NewMetricsCollector returns an empty collector.
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{
		metrics: make(map[string]*Metrics),
	}
}

// SetOnChange registers fn to receive a snapshot after every recorded call.
// fn runs outside the collector lock.
func (m *MetricsCollector) SetOnChange(fn func(endpoint string, metrics Metrics)) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.onChange = fn
}

// GetMetrics returns a snapshot for endpoint, e.g. "GET /api/v1/fact/search".
func (m *MetricsCollector) GetMetrics(endpoint string) (Metrics, bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	metrics, ok := m.metrics[endpoint]
	if !ok {
		return Metrics{}, false
	}

	return *metrics, true
}

func (m *MetricsCollector) record(req *Request, resp *Response) {
	endpoint := req.Method + " " + stripQuery(req.Path)

	m.mutex.Lock()

	metrics, ok := m.metrics[endpoint]
	if !ok {
		metrics = &Metrics{}
		m.metrics[endpoint] = metrics
	}

	metrics.TotalRequests++
	metrics.LastRequestTime = time.Now()

	if start, ok := req.Metadata[metricsStartKey].(time.Time); ok {
		metrics.TotalLatency += time.Since(start)
		metrics.AverageLatency = metrics.TotalLatency / time.Duration(metrics.TotalRequests)
	}

	switch {
	case resp.Error != nil || resp.StatusCode >= http.StatusBadRequest:
		metrics.TotalErrors++
	default:
		if _, isAPIError := ParseServerError(resp.Body); isAPIError {
			metrics.APIErrors++
		}
	}

	snapshot := *metrics
	onChange := m.onChange

	m.mutex.Unlock()

	if onChange != nil {
		onChange(endpoint, snapshot)
	}
}

// MetricsRequestInterceptor stamps the request so its latency can be measured.
func MetricsRequestInterceptor(_ *MetricsCollector) RequestInterceptor {
	return func(_ context.Context, req *Request) error {
		if req.Metadata == nil {
			req.Metadata = make(map[string]interface{})
		}

		req.Metadata[metricsStartKey] = time.Now()

		return nil
	}
}

// MetricsResponseInterceptor records the finished exchange in collector.
func MetricsResponseInterceptor(collector *MetricsCollector) ResponseInterceptor {
	return func(_ context.Context, req *Request, resp *Response) error {
		collector.record(req, resp)

		return nil
	}
}

func stripQuery(path string) string {
	route, _, _ := strings.Cut(path, "?")

	return route
}
