// Package game talks to a running Kittens Game page.
//
// Client is what automation variants call to perform their effects. The
// production implementation drives a real browser through playwright; Fake is
// used by tests and dry runs.
package game

import (
	"context"
	"errors"
)

var (
	ErrRateLimited      = errors.New("game: rate limited")
	ErrClosed           = errors.New("game: client closed")
	ErrNoObserveButton  = errors.New("game: observe button container not found")
	ErrUnknownRace      = errors.New("game: unknown race")
	ErrUnexpectedResult = errors.New("game: unexpected evaluation result")
)

type Client interface {
	// CraftAll crafts as much of resource as current stock allows.
	CraftAll(ctx context.Context, resource string) error
	HuntAll(ctx context.Context) error
	Praise(ctx context.Context) error
	TradeAll(ctx context.Context, race string) error
	// Races lists the names of unlocked trade partners.
	Races(ctx context.Context) ([]string, error)
	// ClickObserve clicks the astronomical event button, if present.
	ClickObserve(ctx context.Context) error
	// WatchObserve calls fn whenever the observe button appears. fn may be
	// called from any goroutine.
	WatchObserve(fn func()) (cancel func(), err error)
	Close() error
}
