package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/cenkalti/backoff/v5"
	"github.com/spf13/cast"

	"github.com/xbrlus/xbrlapi/internal/constants"
	xbrlhttp "github.com/xbrlus/xbrlapi/internal/http"
	"github.com/xbrlus/xbrlapi/pkg/xbrl"
)

// retryState counts the attempts spent on one page.
type retryState struct {
	attempt int
}

func (r *retryState) exhausted() bool {
	return r.attempt >= constants.MaxCallAttempts
}

// Call implements xbrl.Client.Call.
func (c *Client) Call(ctx context.Context, req *xbrl.CallRequest) (*xbrl.Result, error) {
	result, err := c.call(ctx, req)
	if err != nil {
		return nil, c.fail(ctx, err)
	}

	return result, nil
}

// CallRaw implements xbrl.Client.CallRaw. Exactly one request is made; error
// payloads are returned like any other body.
func (c *Client) CallRaw(ctx context.Context, req *xbrl.CallRequest) (*xbrl.RawResponse, error) {
	raw, err := c.callRaw(ctx, req)
	if err != nil {
		return nil, c.fail(ctx, err)
	}

	return raw, nil
}

// Get implements xbrl.Client.Get.
func (c *Client) Get(ctx context.Context, route string, params xbrl.Params) (*xbrl.Result, error) {
	return c.Call(ctx, &xbrl.CallRequest{Route: route, Params: params, Method: http.MethodGet})
}

// Post implements xbrl.Client.Post.
func (c *Client) Post(ctx context.Context, route string, params xbrl.Params) (*xbrl.Result, error) {
	return c.Call(ctx, &xbrl.CallRequest{Route: route, Params: params, Method: http.MethodPost})
}

// Put implements xbrl.Client.Put.
func (c *Client) Put(ctx context.Context, route string, params xbrl.Params) (*xbrl.Result, error) {
	return c.Call(ctx, &xbrl.CallRequest{Route: route, Params: params, Method: http.MethodPut})
}

// Delete implements xbrl.Client.Delete.
func (c *Client) Delete(ctx context.Context, route string, params xbrl.Params) (*xbrl.Result, error) {
	return c.Call(ctx, &xbrl.CallRequest{Route: route, Params: params, Method: http.MethodDelete})
}

// preparedCall is a CallRequest with its method normalized and max_limit
// taken out of the parameters.
type preparedCall struct {
	route      string
	method     string
	params     xbrl.Params
	encodeJSON bool
	maxRecords int
}

func (c *Client) prepare(req *xbrl.CallRequest) (*preparedCall, error) {
	if req == nil || strings.TrimSpace(req.Route) == "" {
		return nil, constants.ErrRouteRequired
	}

	method, err := normalizeMethod(req.Method)
	if err != nil {
		return nil, err
	}

	maxRecords := constants.DefaultMaxRecords

	switch {
	case req.MaxRecords > 0:
		maxRecords = req.MaxRecords
	case c.maxRecords > 0:
		maxRecords = c.maxRecords
	}

	params := req.Params

	if value, ok := params.Get(constants.ParamMaxLimit); ok {
		limit, err := cast.ToIntE(value)
		if err != nil || limit <= 0 {
			return nil, fmt.Errorf("%w: %v", constants.ErrInvalidMaxLimit, value)
		}

		maxRecords = limit
		params = params.Without(constants.ParamMaxLimit)
	}

	return &preparedCall{
		route:      req.Route,
		method:     method,
		params:     params,
		encodeJSON: req.EncodeJSON,
		maxRecords: maxRecords,
	}, nil
}

func (c *Client) call(ctx context.Context, req *xbrl.CallRequest) (*xbrl.Result, error) {
	prepared, err := c.prepare(req)
	if err != nil {
		return nil, err
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	state := newPaginationState(prepared.maxRecords)
	params := prepared.params

	for {
		body, err := c.fetch(ctx, prepared, params)
		if err != nil {
			return nil, err
		}

		page, err := decodePage(body)
		if err != nil {
			return nil, &xbrl.TransportError{Method: prepared.method, URL: prepared.route, Err: err}
		}

		if page == nil {
			if state.started() {
				return nil, &xbrl.TransportError{
					Method: prepared.method,
					URL:    prepared.route,
					Err:    fmt.Errorf("%w: continuation page has no paging", constants.ErrMalformedResponse),
				}
			}

			return &xbrl.Result{Body: body}, nil
		}

		state.merge(page)

		if !state.more(page) {
			break
		}

		params, err = continuationParams(prepared.route, prepared.params, state.nextOffset())
		if err != nil {
			return nil, err
		}

		c.logger.Debug("Requesting next page", map[string]interface{}{
			"route":  prepared.route,
			"offset": state.nextOffset(),
			"total":  state.total(),
		})
	}

	return state.result(), nil
}

// fetch obtains one successful page body, spending at most MaxCallAttempts
// requests. Token errors are repaired and retried at once; unclassified
// errors wait on the retry backoff.
func (c *Client) fetch(ctx context.Context, call *preparedCall, params xbrl.Params) ([]byte, error) {
	retry := &retryState{}

	operation := func() ([]byte, error) {
		retry.attempt++

		resp, err := c.send(ctx, call, params)
		if err != nil {
			return nil, backoff.Permanent(err)
		}

		serverErr, failed := xbrl.ParseServerError(resp.Body)
		if !failed {
			return resp.Body, nil
		}

		c.logger.Warn("API call returned an error", map[string]interface{}{
			"route":       call.route,
			"attempt":     retry.attempt,
			"error":       serverErr.Error,
			"description": serverErr.Description,
		})

		apiErr := &xbrl.APIError{
			Route:       call.route,
			Code:        serverErr.Error,
			Description: serverErr.Description,
			Attempts:    retry.attempt,
			Body:        json.RawMessage(resp.Body),
		}

		if retry.exhausted() {
			return nil, apiErr
		}

		code := serverErr.Code()

		err = c.recover(ctx, code)
		if err != nil {
			return nil, backoff.Permanent(err)
		}

		if code != xbrl.ErrorCodeUnclassified {
			return nil, backoff.RetryAfter(0)
		}

		return nil, apiErr
	}

	body, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(c.retryBackOff),
		backoff.WithMaxTries(constants.MaxCallAttempts),
		backoff.WithMaxElapsedTime(0),
	)
	if err != nil {
		var permanent *backoff.PermanentError
		if errors.As(err, &permanent) {
			err = permanent.Unwrap()
		}

		return nil, err
	}

	return body, nil
}

// recover takes the corrective action for code before the next attempt.
func (c *Client) recover(ctx context.Context, code xbrl.ErrorCode) error {
	switch code {
	case xbrl.ErrorCodeBadOrExpiredToken:
		err := c.auth.Refresh(ctx)
		if err == nil {
			return nil
		}

		var authErr *xbrl.AuthenticationError
		if !errors.As(err, &authErr) || xbrl.ClassifyError(authErr.Description) != xbrl.ErrorCodeInvalidRefreshToken {
			return fmt.Errorf("refreshing token: %w", err)
		}

		return c.relogin(ctx)

	case xbrl.ErrorCodeInvalidRefreshToken:
		return c.relogin(ctx)

	default:
		return nil
	}
}

func (c *Client) relogin(ctx context.Context) error {
	err := c.auth.InvalidateAndRelogin(ctx)
	if err != nil {
		return fmt.Errorf("logging in again: %w", err)
	}

	return nil
}

func (c *Client) callRaw(ctx context.Context, req *xbrl.CallRequest) (*xbrl.RawResponse, error) {
	prepared, err := c.prepare(req)
	if err != nil {
		return nil, err
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	resp, err := c.send(ctx, prepared, prepared.params)
	if err != nil {
		return nil, err
	}

	if req.ForwardHeaders != nil {
		for key, values := range resp.Headers {
			for _, value := range values {
				req.ForwardHeaders.Add(key, value)
			}
		}
	}

	return &xbrl.RawResponse{
		StatusCode: resp.StatusCode,
		Header:     resp.Headers,
		Body:       resp.Body,
	}, nil
}

// send performs one HTTP exchange for call with params.
func (c *Client) send(ctx context.Context, call *preparedCall, params xbrl.Params) (*xbrlhttp.Response, error) {
	httpReq, err := buildRequest(call, params, c.auth.AccessToken())
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(ctx, httpReq)
	if err != nil {
		return nil, fmt.Errorf("calling %s: %w", call.route, err)
	}

	return resp, nil
}
