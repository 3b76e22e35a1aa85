package directory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog"

	"github.com/wandeltn/hausmeistersteuerung-user-sync/internal/config"
)

const (
	defaultCallTimeout = 10 * time.Second
	defaultMaxAttempts = 3
	defaultMaxElapsed  = 30 * time.Second
)

// Client adds get-or-create semantics, per call timeouts and bounded
// exponential backoff to a Provider. Only transient errors are retried.
type Client struct {
	provider    Provider
	log         zerolog.Logger
	callTimeout time.Duration
	retry       config.Retry
}

// New returns a Client for p. Zero values in cfg fall back to defaults.
func New(p Provider, cfg config.Directory, log zerolog.Logger) *Client {
	c := &Client{
		provider:    p,
		log:         log,
		callTimeout: cfg.CallTimeout,
		retry:       cfg.Retry,
	}

	if c.callTimeout <= 0 {
		c.callTimeout = defaultCallTimeout
	}

	if c.retry.MaxAttempts == 0 {
		c.retry.MaxAttempts = defaultMaxAttempts
	}

	if c.retry.MaxElapsedTime <= 0 {
		c.retry.MaxElapsedTime = defaultMaxElapsed
	}

	return c
}

// ListUsers returns every directory account.
func (c *Client) ListUsers(ctx context.Context) ([]User, error) {
	return retry(ctx, c, "list_users", c.provider.Users)
}

// ListGroupMembers returns the member ids of a group. A missing group has no members.
func (c *Client) ListGroupMembers(ctx context.Context, group string) ([]string, error) {
	g, err := c.lookup(ctx, group)
	if errors.Is(err, ErrGroupNotFound) {
		return []string{}, nil
	}

	if err != nil {
		return nil, err
	}

	return retry(ctx, c, "list_members", func(ctx context.Context) ([]string, error) {
		return c.provider.GroupMembers(ctx, g)
	})
}

// EnsureGroupExists returns the named group, creating it when missing.
func (c *Client) EnsureGroupExists(ctx context.Context, group string) (Group, error) {
	g, err := c.lookup(ctx, group)
	if err == nil || !errors.Is(err, ErrGroupNotFound) {
		return g, err
	}

	g, err = retry(ctx, c, "create_group", func(ctx context.Context) (Group, error) {
		return c.provider.CreateGroup(ctx, group)
	})
	if err == nil {
		c.log.Info().Str("group", group).Msg("created directory group")
		return g, nil
	}

	// a concurrent creator may have won, its group is as good as ours
	if existing, lookupErr := c.lookup(ctx, group); lookupErr == nil {
		return existing, nil
	}

	return Group{}, fmt.Errorf("ensure group %q: %w", group, err)
}

// AddMember adds a student to a group, creating the group first when missing.
func (c *Client) AddMember(ctx context.Context, studentID, group string) error {
	g, err := c.EnsureGroupExists(ctx, group)
	if err != nil {
		return err
	}

	_, err = retry(ctx, c, "add_user", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, c.provider.AddUser(ctx, g, studentID)
	})
	if err != nil {
		return fmt.Errorf("add %s to %q: %w", studentID, group, err)
	}

	return nil
}

// RemoveMember removes a student from a group. A missing group is a success.
func (c *Client) RemoveMember(ctx context.Context, studentID, group string) error {
	g, err := c.lookup(ctx, group)
	if errors.Is(err, ErrGroupNotFound) {
		c.log.Debug().Str("group", group).Str("student", studentID).Msg("group does not exist, nothing to remove")
		return nil
	}

	if err != nil {
		return err
	}

	_, err = retry(ctx, c, "remove_user", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, c.provider.RemoveUser(ctx, g, studentID)
	})
	if err != nil {
		return fmt.Errorf("remove %s from %q: %w", studentID, group, err)
	}

	return nil
}

func (c *Client) lookup(ctx context.Context, group string) (Group, error) {
	return retry(ctx, c, "get_group", func(ctx context.Context) (Group, error) {
		return c.provider.GroupByName(ctx, group)
	})
}

func (c *Client) newBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()

	if c.retry.InitialInterval > 0 {
		b.InitialInterval = c.retry.InitialInterval
	}

	if c.retry.MaxInterval > 0 {
		b.MaxInterval = c.retry.MaxInterval
	}

	return b
}

// retry runs fn until it succeeds, fails permanently or the attempt and time budgets are spent.
// Every attempt gets its own deadline.
func retry[T any](ctx context.Context, c *Client, op string, fn func(context.Context) (T, error)) (T, error) {
	res, err := backoff.Retry(ctx, func() (T, error) {
		actx, cancel := context.WithTimeout(ctx, c.callTimeout)
		defer cancel()

		res, err := fn(actx)
		if err == nil {
			return res, nil
		}

		if ctx.Err() != nil || !IsTransient(err) {
			return res, backoff.Permanent(err)
		}

		return res, err
	},
		backoff.WithBackOff(c.newBackOff()),
		backoff.WithMaxTries(c.retry.MaxAttempts),
		backoff.WithMaxElapsedTime(c.retry.MaxElapsedTime),
		backoff.WithNotify(func(err error, wait time.Duration) {
			retriesTotal.WithLabelValues(op).Inc()
			c.log.Debug().Err(err).Str("op", op).Dur("wait", wait).Msg("retrying directory call")
		}),
	)

	if !errors.Is(err, ErrGroupNotFound) {
		observe(op, err)
	}

	return res, err
}
