package llm

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/sony/gobreaker"

	"github.com/hupe1980/supportmesh/logging"
)

// ClientOptions configures the resilience behavior of a Client.
type ClientOptions struct {
	// Model is the default model requested from the provider.
	Model string

	// FallbackModels are tried in order when the active model is denied.
	// A fallback that succeeds becomes the active model for all subsequent
	// requests on this client.
	FallbackModels []string

	// Temperature applied when the request does not set one.
	Temperature float64

	// MaxTokens applied when the request does not set one.
	MaxTokens int

	// RetryInterval is the pause before the single retry of a transient
	// failure.
	RetryInterval time.Duration

	// BreakerEnabled guards the provider with a circuit breaker that opens
	// after three consecutive failures and recovers after thirty seconds.
	// While open, requests fail fast with gobreaker.ErrOpenState.
	BreakerEnabled bool

	// Logger receives diagnostic output. Defaults to a no-op logger.
	Logger logging.Logger
}

// Client wraps a provider Completer with transient retry, model fallback
// and an optional circuit breaker. It is safe for concurrent use.
type Client struct {
	completer Completer
	opts      ClientOptions
	breaker   *gobreaker.CircuitBreaker

	mu        sync.Mutex
	model     string
	fallbacks []string
}

// NewClient wraps completer with resilience behavior.
func NewClient(completer Completer, optFns ...func(o *ClientOptions)) *Client {
	opts := ClientOptions{
		Temperature:   0.7,
		MaxTokens:     1024,
		RetryInterval: 2 * time.Second,
		Logger:        logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Model == "" {
		opts.Model = completer.Info().Name
	}

	c := &Client{
		completer: completer,
		opts:      opts,
		model:     opts.Model,
		fallbacks: append([]string(nil), opts.FallbackModels...),
	}

	if opts.BreakerEnabled {
		c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "llm-provider",
			Timeout: 30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 3
			},
		})
	}

	return c
}

// ActiveModel returns the model currently used for requests. It changes
// when a fallback model takes over after an access denial.
func (c *Client) ActiveModel() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.model
}

// Complete implements Completer. Transient failures are retried once after
// RetryInterval. Access denials walk the fallback chain; when every
// fallback is denied a ForbiddenError is returned.
func (c *Client) Complete(ctx context.Context, req Request) (*Response, error) {
	if req.Model == "" {
		req.Model = c.ActiveModel()
	}

	if req.Temperature == 0 {
		req.Temperature = c.opts.Temperature
	}

	if req.MaxTokens == 0 {
		req.MaxTokens = c.opts.MaxTokens
	}

	for {
		resp, err := c.completeOnce(ctx, req)
		if err == nil {
			return resp, nil
		}

		if !IsForbidden(err) {
			return nil, err
		}

		next, ok := c.switchModel(req.Model)
		if !ok {
			c.opts.Logger.Error("model denied and fallbacks exhausted", "model", req.Model)
			return nil, &ForbiddenError{Model: req.Model, Fallbacks: c.opts.FallbackModels}
		}

		c.opts.Logger.Warn("model denied, switching to fallback", "from", req.Model, "to", next)
		req.Model = next
	}
}

// Info implements Completer by delegating to the wrapped provider.
func (c *Client) Info() Info { return c.completer.Info() }

// completeOnce performs a single logical invocation: one attempt plus at
// most one retry when the failure is transient.
func (c *Client) completeOnce(ctx context.Context, req Request) (*Response, error) {
	op := func() (*Response, error) {
		resp, err := c.invoke(ctx, req)
		if err == nil {
			return resp, nil
		}

		if IsTransient(err) {
			c.opts.Logger.Warn("transient completion failure, retrying", "model", req.Model, "error", err)
			return nil, err
		}

		return nil, backoff.Permanent(err)
	}

	return backoff.Retry(ctx, op,
		backoff.WithBackOff(backoff.NewConstantBackOff(c.opts.RetryInterval)),
		backoff.WithMaxTries(2),
	)
}

// invoke dispatches to the provider, routed through the circuit breaker
// when one is configured.
func (c *Client) invoke(ctx context.Context, req Request) (*Response, error) {
	if c.breaker == nil {
		return c.completer.Complete(ctx, req)
	}

	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.completer.Complete(ctx, req)
	})
	if err != nil {
		return nil, err
	}

	return result.(*Response), nil
}

// switchModel advances the fallback chain after failed was denied. It
// returns the model to try next, or false when no fallbacks remain. The
// switch is permanent so later requests skip the denied model entirely.
func (c *Client) switchModel(failed string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// A concurrent request may already have moved off the failed model.
	if c.model != failed {
		return c.model, true
	}

	if len(c.fallbacks) == 0 {
		return "", false
	}

	c.model = c.fallbacks[0]
	c.fallbacks = c.fallbacks[1:]

	return c.model, true
}

var _ Completer = (*Client)(nil)
