package game

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/time/rate"
)

// Limited caps how often effects reach the page. A call over budget waits
// for a token within its own deadline; when the deadline is too close it
// fails with ErrRateLimited. Queries and watches are not limited.
type Limited struct {
	Client
	lim *rate.Limiter
}

func NewLimited(c Client, perSec float64, burst int) *Limited {
	if burst <= 0 {
		burst = 1
	}
	lim := rate.NewLimiter(rate.Limit(perSec), burst)
	if perSec <= 0 {
		lim = rate.NewLimiter(rate.Inf, burst)
	}
	return &Limited{Client: c, lim: lim}
}

func (l *Limited) wait(ctx context.Context) error {
	err := l.lim.Wait(ctx)
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	// Wait reports a deadline it cannot meet with a plain error.
	return fmt.Errorf("%w: %v", ErrRateLimited, err)
}

func (l *Limited) CraftAll(ctx context.Context, resource string) error {
	if err := l.wait(ctx); err != nil {
		return err
	}
	return l.Client.CraftAll(ctx, resource)
}

func (l *Limited) HuntAll(ctx context.Context) error {
	if err := l.wait(ctx); err != nil {
		return err
	}
	return l.Client.HuntAll(ctx)
}

func (l *Limited) Praise(ctx context.Context) error {
	if err := l.wait(ctx); err != nil {
		return err
	}
	return l.Client.Praise(ctx)
}

func (l *Limited) TradeAll(ctx context.Context, race string) error {
	if err := l.wait(ctx); err != nil {
		return err
	}
	return l.Client.TradeAll(ctx, race)
}

func (l *Limited) ClickObserve(ctx context.Context) error {
	if err := l.wait(ctx); err != nil {
		return err
	}
	return l.Client.ClickObserve(ctx)
}
