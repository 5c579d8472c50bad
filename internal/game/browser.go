package game

import (
	"context"
	"fmt"
	"sync"
	"time"

	logx "autokittens/pkg/logx"

	"github.com/playwright-community/playwright-go"
)

const observeBinding = "__autokittensObserve"

type BrowserConfig struct {
	URL      string
	Headless bool
	// Install downloads the browser driver before launching.
	Install bool
	Timeout time.Duration
	// Ready is the JS expression that must become truthy before the game is usable.
	Ready string
}

// Browser drives the game inside a headless Chromium page.
type Browser struct {
	cfg BrowserConfig
	log logx.Logger

	pw      *playwright.Playwright
	browser playwright.Browser
	page    playwright.Page

	mu       sync.Mutex
	closed   bool
	watchers map[uint64]func()
	nextID   uint64
}

func OpenBrowser(ctx context.Context, cfg BrowserConfig, log logx.Logger) (*Browser, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("game: url is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Ready == "" {
		cfg.Ready = "() => typeof gamePage !== 'undefined' && gamePage.ui !== undefined"
	}
	log = log.With(logx.String("comp", "game"))

	if cfg.Install {
		if err := playwright.Install(&playwright.RunOptions{Browsers: []string{"chromium"}}); err != nil {
			return nil, fmt.Errorf("install playwright: %w", err)
		}
	}
	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("start playwright: %w", err)
	}
	b := &Browser{cfg: cfg, log: log, pw: pw, watchers: map[uint64]func(){}}

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(cfg.Headless),
	})
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("launch browser: %w", err)
	}
	b.browser = browser

	page, err := browser.NewPage()
	if err != nil {
		_ = b.Close()
		return nil, fmt.Errorf("new page: %w", err)
	}
	b.page = page
	page.SetDefaultTimeout(float64(cfg.Timeout.Milliseconds()))

	if err := page.ExposeFunction(observeBinding, func(args ...interface{}) interface{} {
		b.notifyObservers()
		return nil
	}); err != nil {
		_ = b.Close()
		return nil, fmt.Errorf("expose observe binding: %w", err)
	}

	if err := ctx.Err(); err != nil {
		_ = b.Close()
		return nil, err
	}
	if _, err := page.Goto(cfg.URL, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
	}); err != nil {
		_ = b.Close()
		return nil, fmt.Errorf("open %s: %w", cfg.URL, err)
	}
	if _, err := page.WaitForFunction(cfg.Ready, nil); err != nil {
		_ = b.Close()
		return nil, fmt.Errorf("wait for game: %w", err)
	}
	log.Info("game page ready", logx.String("url", cfg.URL))
	return b, nil
}

func (b *Browser) eval(ctx context.Context, expr string, arg ...interface{}) (interface{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return nil, ErrClosed
	}
	return await(ctx, func() (interface{}, error) { return b.page.Evaluate(expr, arg...) })
}

// await runs call and returns when it finishes or ctx ends, whichever is
// first. Evaluate has no timeout of its own; an abandoned call keeps running
// on the page and its result is discarded.
func await(ctx context.Context, call func() (interface{}, error)) (interface{}, error) {
	type result struct {
		v   interface{}
		err error
	}
	done := make(chan result, 1)
	go func() {
		v, err := call()
		done <- result{v, err}
	}()
	select {
	case r := <-done:
		return r.v, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (b *Browser) CraftAll(ctx context.Context, resource string) error {
	_, err := b.eval(ctx, `res => gamePage.craftAll(res)`, resource)
	if err != nil {
		return fmt.Errorf("craft %s: %w", resource, err)
	}
	return nil
}

func (b *Browser) HuntAll(ctx context.Context) error {
	_, err := b.eval(ctx, `() => gamePage.huntAll(new Event('hunt'))`)
	if err != nil {
		return fmt.Errorf("hunt: %w", err)
	}
	return nil
}

func (b *Browser) Praise(ctx context.Context) error {
	_, err := b.eval(ctx, `() => gamePage.religion.praise()`)
	if err != nil {
		return fmt.Errorf("praise: %w", err)
	}
	return nil
}

func (b *Browser) TradeAll(ctx context.Context, race string) error {
	res, err := b.eval(ctx, `name => {
		const race = gamePage.diplomacy.get(name);
		if (!race) { return false; }
		gamePage.diplomacy.tradeAll(race);
		return true;
	}`, race)
	if err != nil {
		return fmt.Errorf("trade with %s: %w", race, err)
	}
	if ok, _ := res.(bool); !ok {
		return fmt.Errorf("%w: %s", ErrUnknownRace, race)
	}
	return nil
}

func (b *Browser) Races(ctx context.Context) ([]string, error) {
	res, err := b.eval(ctx, `() => gamePage.diplomacy.races.filter(r => r.unlocked).map(r => r.name)`)
	if err != nil {
		return nil, fmt.Errorf("list races: %w", err)
	}
	return toStrings(res)
}

func (b *Browser) ClickObserve(ctx context.Context) error {
	_, err := b.eval(ctx, `() => {
		const btn = document.querySelector('#observeBtn');
		if (btn) { btn.click(); }
		return !!btn;
	}`)
	if err != nil {
		return fmt.Errorf("click observe: %w", err)
	}
	return nil
}

// WatchObserve installs a MutationObserver on the observe button container.
// The page keeps at most one observer; it is disconnected when the last
// watcher cancels.
func (b *Browser) WatchObserve(fn func()) (func(), error) {
	if fn == nil {
		return nil, fmt.Errorf("game: nil observe callback")
	}
	res, err := b.eval(context.Background(), `binding => {
		const target = document.querySelector('#observeButton');
		if (!target) { return false; }
		if (window.__autokittensObserver) { return true; }
		const obs = new MutationObserver(() => {
			if (document.querySelector('#observeBtn')) { window[binding](); }
		});
		obs.observe(target, { childList: true });
		window.__autokittensObserver = obs;
		return true;
	}`, observeBinding)
	if err != nil {
		return nil, fmt.Errorf("watch observe: %w", err)
	}
	if ok, _ := res.(bool); !ok {
		return nil, ErrNoObserveButton
	}

	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.watchers[id] = fn
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.watchers, id)
			last := len(b.watchers) == 0 && !b.closed
			b.mu.Unlock()
			if !last {
				return
			}
			if _, err := b.page.Evaluate(`() => {
				if (window.__autokittensObserver) {
					window.__autokittensObserver.disconnect();
					window.__autokittensObserver = null;
				}
			}`); err != nil {
				b.log.Warn("disconnect observe watcher failed", logx.Err(err))
			}
		})
	}, nil
}

func (b *Browser) notifyObservers() {
	b.mu.Lock()
	fns := make([]func(), 0, len(b.watchers))
	for _, fn := range b.watchers {
		fns = append(fns, fn)
	}
	b.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

func (b *Browser) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.watchers = map[uint64]func(){}
	b.mu.Unlock()

	var firstErr error
	keep := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if b.browser != nil {
		keep(b.browser.Close())
	}
	if b.pw != nil {
		keep(b.pw.Stop())
	}
	return firstErr
}

func toStrings(v interface{}) ([]string, error) {
	list, ok := v.([]interface{})
	if !ok {
		if v == nil {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %T", ErrUnexpectedResult, v)
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("%w: %T in list", ErrUnexpectedResult, item)
		}
		out = append(out, s)
	}
	return out, nil
}
