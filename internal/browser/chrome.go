package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	jsoniter "github.com/json-iterator/go"
	"github.com/user/catalog-scraper/internal/config"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ChromeDriver drives a single headless Chrome tab through chromedp.
type ChromeDriver struct {
	ctx    context.Context
	logger *zap.Logger
}

// NewChromeDriver starts a browser and opens one tab. The returned func closes both.
func NewChromeDriver(ctx context.Context, cfg config.BrowserConfig, logger *zap.Logger) (*ChromeDriver, func(), error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	sugar := logger.Sugar()
	tabCtx, tabCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(sugar.Debugf),
		chromedp.WithErrorf(sugar.Debugf),
	)
	closeFn := func() {
		tabCancel()
		allocCancel()
	}

	// The first Run launches the browser.
	err := chromedp.Run(tabCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		return page.SetLifecycleEventsEnabled(true).Do(ctx)
	}))
	if err != nil {
		closeFn()
		return nil, func() {}, fmt.Errorf("failed to start browser: %w", err)
	}

	return &ChromeDriver{ctx: tabCtx, logger: logger}, closeFn, nil
}

// run executes actions on the tab, bounded by timeout (when positive) and by ctx.
func (d *ChromeDriver) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(d.ctx)
	defer cancel()
	if timeout > 0 {
		var cancelTimeout context.CancelFunc
		runCtx, cancelTimeout = context.WithTimeout(runCtx, timeout)
		defer cancelTimeout()
	}
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return ErrTimeout
	}
	return err
}

func (d *ChromeDriver) Navigate(ctx context.Context, url string) error {
	d.logger.Debug("navigating", zap.String("url", url))
	if err := d.run(ctx, 0, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	return nil
}

func (d *ChromeDriver) WaitFor(ctx context.Context, selector string, timeout time.Duration) error {
	if err := d.run(ctx, timeout, chromedp.WaitVisible(selector, queryBy(selector))); err != nil {
		return fmt.Errorf("waiting for %q: %w", selector, err)
	}
	return nil
}

func (d *ChromeDriver) Click(ctx context.Context, selector string, timeout time.Duration) error {
	if err := d.run(ctx, timeout, chromedp.Click(selector, queryBy(selector), chromedp.NodeVisible)); err != nil {
		return fmt.Errorf("clicking %q: %w", selector, err)
	}
	return nil
}

func (d *ChromeDriver) Fill(ctx context.Context, selector, value string, timeout time.Duration) error {
	by := queryBy(selector)
	err := d.run(ctx, timeout,
		chromedp.WaitVisible(selector, by),
		chromedp.SetValue(selector, "", by),
		chromedp.SendKeys(selector, value, by),
	)
	if err != nil {
		return fmt.Errorf("filling %q: %w", selector, err)
	}
	return nil
}

// ClickAndSettle clicks selector and waits up to timeout for a networkIdle
// lifecycle event. The click itself failing is reported as is; a missing idle
// signal is ErrSettleTimeout.
func (d *ChromeDriver) ClickAndSettle(ctx context.Context, selector string, timeout time.Duration) error {
	listenCtx, stopListening := context.WithCancel(d.ctx)
	defer stopListening()

	idle := make(chan struct{}, 1)
	chromedp.ListenTarget(listenCtx, func(ev any) {
		if e, ok := ev.(*page.EventLifecycleEvent); ok && e.Name == "networkIdle" {
			select {
			case idle <- struct{}{}:
			default:
			}
		}
	})

	if err := d.Click(ctx, selector, timeout); err != nil {
		return err
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-idle:
		return nil
	case <-timer.C:
		return ErrSettleTimeout
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *ChromeDriver) Rows(ctx context.Context, rowSelector, cellSelector string) ([][]string, error) {
	var html string
	if err := d.run(ctx, 0, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return nil, fmt.Errorf("reading page html: %w", err)
	}
	return ParseRows(html, rowSelector, cellSelector)
}

// Control looks the element up without waiting for it to appear.
func (d *ChromeDriver) Control(ctx context.Context, selector string) (bool, bool, error) {
	var nodes []*cdp.Node
	if err := d.run(ctx, 0, chromedp.Nodes(selector, &nodes, chromedp.AtLeast(0), queryBy(selector))); err != nil {
		return false, false, fmt.Errorf("looking up %q: %w", selector, err)
	}
	if len(nodes) == 0 {
		return false, false, nil
	}
	return true, nodeEnabled(nodes[0]), nil
}

// queryBy treats selectors starting with "/" or "(" as XPath and everything
// else as CSS.
func queryBy(selector string) chromedp.QueryOption {
	s := strings.TrimSpace(selector)
	if strings.HasPrefix(s, "/") || strings.HasPrefix(s, "(") {
		return chromedp.BySearch
	}
	return chromedp.ByQuery
}

func nodeEnabled(n *cdp.Node) bool {
	if _, ok := n.Attribute("disabled"); ok {
		return false
	}
	if v, ok := n.Attribute("aria-disabled"); ok && strings.EqualFold(v, "true") {
		return false
	}
	for _, class := range strings.Fields(n.AttributeValue("class")) {
		if class == "disabled" {
			return false
		}
	}
	return true
}

func (d *ChromeDriver) Sleep(ctx context.Context, dur time.Duration) error {
	return sleep(ctx, dur)
}

// storedCookie is the serialized form of a browser cookie.
type storedCookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Expires  float64 `json:"expires,omitempty"`
	HTTPOnly bool    `json:"http_only,omitempty"`
	Secure   bool    `json:"secure,omitempty"`
	SameSite string  `json:"same_site,omitempty"`
}

// SaveSession serializes every cookie the browser holds.
func (d *ChromeDriver) SaveSession(ctx context.Context) ([]byte, error) {
	var cookies []*network.Cookie
	err := d.run(ctx, 0, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		cookies, err = network.GetCookies().Do(ctx)
		return err
	}))
	if err != nil {
		return nil, fmt.Errorf("reading cookies: %w", err)
	}
	return encodeCookies(cookies)
}

func (d *ChromeDriver) RestoreSession(ctx context.Context, blob []byte) error {
	params, err := decodeCookies(blob)
	if err != nil {
		return err
	}
	if len(params) == 0 {
		return nil
	}
	err = d.run(ctx, 0, chromedp.ActionFunc(func(ctx context.Context) error {
		return network.SetCookies(params).Do(ctx)
	}))
	if err != nil {
		return fmt.Errorf("restoring cookies: %w", err)
	}
	return nil
}

func (d *ChromeDriver) Snapshot(ctx context.Context) (string, error) {
	var html string
	if err := d.run(ctx, 0, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", err
	}
	return html, nil
}

func encodeCookies(cookies []*network.Cookie) ([]byte, error) {
	stored := make([]storedCookie, 0, len(cookies))
	for _, c := range cookies {
		sc := storedCookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			HTTPOnly: c.HTTPOnly,
			Secure:   c.Secure,
			SameSite: c.SameSite.String(),
		}
		if !c.Session {
			sc.Expires = c.Expires
		}
		stored = append(stored, sc)
	}
	return json.Marshal(stored)
}

func decodeCookies(blob []byte) ([]*network.CookieParam, error) {
	var stored []storedCookie
	if err := json.Unmarshal(blob, &stored); err != nil {
		return nil, fmt.Errorf("decoding cookies: %w", err)
	}
	params := make([]*network.CookieParam, 0, len(stored))
	for _, sc := range stored {
		p := &network.CookieParam{
			Name:     sc.Name,
			Value:    sc.Value,
			Domain:   sc.Domain,
			Path:     sc.Path,
			HTTPOnly: sc.HTTPOnly,
			Secure:   sc.Secure,
		}
		if sc.SameSite != "" {
			p.SameSite = network.CookieSameSite(sc.SameSite)
		}
		if sc.Expires > 0 {
			sec := int64(sc.Expires)
			nsec := int64((sc.Expires - float64(sec)) * float64(time.Second))
			exp := cdp.TimeSinceEpoch(time.Unix(sec, nsec))
			p.Expires = &exp
		}
		params = append(params, p)
	}
	return params, nil
}
