package task

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
)

// CronTicker is the production Ticker. Each entry is an @every schedule on a
// shared cron; ticks are handed to post so they run on the task goroutine.
type CronTicker struct {
	c    *cron.Cron
	post func(func())
}

// NewCronTicker returns a ticker whose callbacks are delivered through post.
// A nil post runs callbacks on the cron's own goroutine, which is only safe
// when nothing else touches the tasks.
func NewCronTicker(post func(func())) *CronTicker {
	if post == nil {
		post = func(fn func()) { fn() }
	}
	return &CronTicker{
		c:    cron.New(cron.WithLocation(time.Local)),
		post: post,
	}
}

func (c *CronTicker) Start() { c.c.Start() }

// Stop halts scheduling and waits for in-flight ticks to be handed off.
func (c *CronTicker) Stop(ctx context.Context) error {
	select {
	case <-c.c.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *CronTicker) Every(d time.Duration, fn func()) func() {
	id := c.c.Schedule(cron.Every(d), cron.FuncJob(func() { c.post(fn) }))
	return func() { c.c.Remove(id) }
}

// Entries returns the number of live schedules.
func (c *CronTicker) Entries() int { return len(c.c.Entries()) }

// PostingSource re-delivers another Source's callbacks through post.
type PostingSource struct {
	Source Source
	Post   func(func())
}

func (s PostingSource) Subscribe(fn func(arg any)) (func(), error) {
	return s.Source.Subscribe(func(arg any) {
		s.Post(func() { fn(arg) })
	})
}
