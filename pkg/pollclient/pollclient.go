// Package pollclient implements the client side of the checkout protocol:
// submit a purchase, poll its status until a terminal state, and complete a
// card authentication challenge when the server reports one.
package pollclient

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// State is the client's view of an in-progress checkout
type State string

const (
	StateSubmitting             State = "submitting"
	StatePolling                State = "polling"
	StateAwaitingAuthentication State = "awaiting_authentication"
	StateSucceeded              State = "succeeded"
	StateFailed                 State = "failed"
)

// ErrBudgetExhausted is returned when the server does not reach a terminal
// state within the poll budget
var ErrBudgetExhausted = errors.New("pollclient: status polling budget exhausted")

// Status is one poll answer from the server
type Status struct {
	GUID         string
	State        string
	Error        string
	ClientSecret string
}

// Terminal reports whether the server is done with this checkout
func (s *Status) Terminal() bool {
	switch s.State {
	case "finished", "active", "errored", "canceled", "refunded":
		return true
	}
	return false
}

// Succeeded reports whether the terminal state is a success
func (s *Status) Succeeded() bool {
	return s.State == "finished" || s.State == "active"
}

// Submitter starts the purchase and returns the guid to poll
type Submitter func(ctx context.Context) (string, error)

// Poller fetches the current status of a checkout
type Poller interface {
	Poll(ctx context.Context, guid string) (*Status, error)
}

// Authenticator completes a card authentication challenge. In a browser this
// is the processor's JS confirming the payment with the client secret.
type Authenticator interface {
	Authenticate(ctx context.Context, clientSecret string) error
}

// Scheduler spaces the polls. Injectable so tests run without sleeping.
type Scheduler interface {
	Wait(ctx context.Context) error
}

// FixedDelay is a Scheduler sleeping a constant interval between polls
type FixedDelay time.Duration

func (d FixedDelay) Wait(ctx context.Context) error {
	timer := time.NewTimer(time.Duration(d))
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Client drives a checkout from submission to a terminal state
type Client struct {
	poller        Poller
	authenticator Authenticator
	scheduler     Scheduler
	budget        int

	state State
}

// Option configures a Client
type Option func(*Client)

// WithScheduler replaces the default fixed one-second delay
func WithScheduler(s Scheduler) Option {
	return func(c *Client) { c.scheduler = s }
}

// WithBudget sets how many polls may run before giving up. An authentication
// challenge refreshes the budget, since the buyer may take a while.
func WithBudget(n int) Option {
	return func(c *Client) { c.budget = n }
}

// NewClient creates a checkout poll client
func NewClient(poller Poller, authenticator Authenticator, opts ...Option) *Client {
	c := &Client{
		poller:        poller,
		authenticator: authenticator,
		scheduler:     FixedDelay(time.Second),
		budget:        30,
		state:         StateSubmitting,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns the client's current protocol state
func (c *Client) State() State {
	return c.state
}

// Run submits the purchase and polls until the server reaches a terminal
// state. A reported authentication challenge runs the authenticator once per
// challenge and resumes polling with a fresh budget. Returns the final status;
// a declined or errored checkout is a valid final status, not an error.
func (c *Client) Run(ctx context.Context, submit Submitter) (*Status, error) {
	c.state = StateSubmitting
	guid, err := submit(ctx)
	if err != nil {
		c.state = StateFailed
		return nil, fmt.Errorf("submit: %w", err)
	}

	c.state = StatePolling
	remaining := c.budget
	authenticated := ""

	for remaining > 0 {
		if err := c.scheduler.Wait(ctx); err != nil {
			c.state = StateFailed
			return nil, err
		}
		remaining--

		status, err := c.poller.Poll(ctx, guid)
		if err != nil {
			c.state = StateFailed
			return nil, fmt.Errorf("poll: %w", err)
		}

		if status.Terminal() {
			if status.Succeeded() {
				c.state = StateSucceeded
			} else {
				c.state = StateFailed
			}
			return status, nil
		}

		// Each distinct secret is one challenge. The same secret seen
		// again means the buyer is still in the challenge flow.
		if status.ClientSecret != "" && status.ClientSecret != authenticated {
			c.state = StateAwaitingAuthentication
			if err := c.authenticator.Authenticate(ctx, status.ClientSecret); err != nil {
				c.state = StateFailed
				return nil, fmt.Errorf("authenticate: %w", err)
			}
			authenticated = status.ClientSecret
			c.state = StatePolling
			remaining = c.budget
		}
	}

	c.state = StateFailed
	return nil, ErrBudgetExhausted
}
