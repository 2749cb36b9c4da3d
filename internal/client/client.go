package client

import (
	"context"
	"fmt"
	"sync"

	"github.com/cenkalti/backoff/v5"

	"github.com/xbrlus/xbrlapi/internal/auth"
	"github.com/xbrlus/xbrlapi/internal/constants"
	"github.com/xbrlus/xbrlapi/internal/http"
	"github.com/xbrlus/xbrlapi/pkg/xbrl"
)

// Options carries the collaborators injected into a Client.
type Options struct {
	// TokenStore holds the token pair between runs. Defaults to memory.
	TokenStore xbrl.TokenStore
	// ErrorHandler sees every error a Client returns.
	ErrorHandler xbrl.ErrorHandler
	// Interceptors run around every HTTP exchange.
	Interceptors *xbrl.InterceptorChain
	// MaxRecords replaces the default record cap for every call.
	MaxRecords int
	// RetryBackOff paces repeats of calls that failed with an unclassified
	// server error. Defaults to exponential backoff.
	RetryBackOff backoff.BackOff
}

// Client implements the xbrl.Client interface. Calls on one Client are
// serialized.
type Client struct {
	mutex        sync.Mutex
	httpClient   *http.Client
	auth         *auth.Manager
	logger       xbrl.Logger
	errorHandler xbrl.ErrorHandler
	maxRecords   int
	retryBackOff backoff.BackOff
}

// createHTTPClientOptions builds HTTP client options from config.
func createHTTPClientOptions(config *xbrl.Config, interceptors *xbrl.InterceptorChain) []http.Option {
	var httpOpts []http.Option

	if config.Logger != nil {
		httpOpts = append(httpOpts, http.WithLogger(config.Logger))
	}

	if config.Debug {
		httpOpts = append(httpOpts, http.WithDebug(true))
	}

	if config.UserAgent != "" {
		httpOpts = append(httpOpts, http.WithUserAgent(config.UserAgent))
	}

	if config.HTTPTimeout > 0 {
		httpOpts = append(httpOpts, http.WithTimeout(config.HTTPTimeout))
	}

	if config.RetryMax > 0 {
		retryWaitMin := constants.DefaultRetryWaitMin
		retryWaitMax := constants.DefaultRetryWaitMax

		if config.RetryWaitMin > 0 {
			retryWaitMin = config.RetryWaitMin
		}

		if config.RetryWaitMax > 0 {
			retryWaitMax = config.RetryWaitMax
		}

		httpOpts = append(httpOpts, http.WithRetryConfig(config.RetryMax, retryWaitMin, retryWaitMax))
	}

	if config.InsecureSkipVerify {
		httpOpts = append(httpOpts, http.WithInsecureSkipVerify(true))
	}

	if interceptors != nil {
		httpOpts = append(httpOpts, http.WithInterceptors(interceptors))
	}

	return httpOpts
}

// New validates config, builds the transport and obtains a token pair. It
// fails with a ConfigurationError or an AuthenticationError when no usable
// pair can be had.
func New(ctx context.Context, config *xbrl.Config, opts *Options) (*Client, error) {
	if opts == nil {
		opts = &Options{}
	}

	client := &Client{
		logger:       xbrl.LoggerOrNop(nil),
		errorHandler: opts.ErrorHandler,
		maxRecords:   opts.MaxRecords,
		retryBackOff: opts.RetryBackOff,
	}

	if client.retryBackOff == nil {
		expBackoff := backoff.NewExponentialBackOff()
		expBackoff.InitialInterval = constants.DefaultCallRetryWait
		expBackoff.MaxInterval = constants.DefaultCallRetryWaitMax
		client.retryBackOff = expBackoff
	}

	err := config.Validate()
	if err != nil {
		return nil, client.fail(ctx, err)
	}

	client.logger = xbrl.LoggerOrNop(config.Logger)
	client.httpClient = http.NewClient(config.BaseURL, createHTTPClientOptions(config, opts.Interceptors)...)
	client.auth = auth.NewManager(config, client.httpClient, opts.TokenStore, config.Logger)

	err = client.auth.Initialize(ctx)
	if err != nil {
		return nil, client.fail(ctx, fmt.Errorf("initializing credentials: %w", err))
	}

	if !client.auth.Credentials().Complete() {
		return nil, client.fail(ctx, &xbrl.AuthenticationError{Err: constants.ErrTokensNotObtained})
	}

	return client, nil
}

// Credentials implements xbrl.Client.Credentials.
func (c *Client) Credentials() xbrl.Credentials {
	return c.auth.Credentials()
}

// Login implements xbrl.Client.Login.
func (c *Client) Login(ctx context.Context) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	err := c.auth.Login(ctx)
	if err != nil {
		return c.fail(ctx, err)
	}

	return nil
}

// Logout implements xbrl.Client.Logout.
func (c *Client) Logout(ctx context.Context) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	err := c.auth.Logout(ctx)
	if err != nil {
		return c.fail(ctx, err)
	}

	return nil
}

// fail reports err to the error handler and returns it unchanged.
func (c *Client) fail(ctx context.Context, err error) error {
	if c.errorHandler != nil {
		c.errorHandler.HandleError(ctx, err)
	}

	return err
}
