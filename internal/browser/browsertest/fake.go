// Package browsertest provides an in-memory browser.Driver that simulates a
// login-protected dashboard with a menu and a paged product table.
package browsertest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/user/catalog-scraper/internal/browser"
)

// ErrUnreachable is what Navigate returns for a site marked unreachable.
var ErrUnreachable = errors.New("net::ERR_NAME_NOT_RESOLVED")

// Site describes the simulated application.
type Site struct {
	Unreachable bool

	UsernameSelector string
	PasswordSelector string
	SubmitSelector   string
	Username         string
	Password         string
	// SessionToken is the cookie blob a successful login produces.
	SessionToken string

	// NavSelectors must be clicked in order; each one reveals the next.
	NavSelectors []string
	// MissingStep is the 1-based index of a step that never appears. Zero means none.
	MissingStep int
	// TableSelector becomes visible once every step has been clicked.
	TableSelector string

	NextSelector string
	Pages        [][][]string
	// DisableNextOnLast keeps the next control on the last page but disabled.
	// Otherwise it disappears.
	DisableNextOnLast bool
	// StuckPaging makes the next control accept clicks without changing the page.
	StuckPaging bool
	// SettleFails makes every ClickAndSettle report a missing idle signal.
	SettleFails bool
	// LoadingReads is how many Rows calls after each page change return the
	// single LoadingRow instead of the new page.
	LoadingReads int
}

// LoadingRow is the placeholder a table shows while it fetches the next page.
var LoadingRow = []string{"Loading..."}

// FakeDriver implements browser.Driver against a Site.
type FakeDriver struct {
	site Site

	mu       sync.Mutex
	loaded   bool
	authed   bool
	cookie   string
	filled   map[string]string
	stepPos  int
	page     int
	loading  int
	calls    map[string]int
	sleeps   []time.Duration
	restored []string
}

var _ browser.Driver = (*FakeDriver)(nil)

func New(site Site) *FakeDriver {
	return &FakeDriver{
		site:   site,
		filled: map[string]string{},
		calls:  map[string]int{},
	}
}

// Calls returns how many times the named method was invoked.
func (d *FakeDriver) Calls(method string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls[method]
}

// Sleeps returns every duration passed to Sleep.
func (d *FakeDriver) Sleeps() []time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]time.Duration(nil), d.sleeps...)
}

// Page returns the zero-based index of the table page currently shown.
func (d *FakeDriver) Page() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.page
}

// LoggedIn reports whether the browser holds an authenticated session.
func (d *FakeDriver) LoggedIn() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.authed
}

func (d *FakeDriver) enter(ctx context.Context, method string) error {
	d.calls[method]++
	return ctx.Err()
}

func (d *FakeDriver) Navigate(ctx context.Context, url string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.enter(ctx, "Navigate"); err != nil {
		return err
	}
	if d.site.Unreachable {
		return fmt.Errorf("failed to navigate to %s: %w", url, ErrUnreachable)
	}
	d.loaded = true
	d.stepPos = 0
	d.page = 0
	d.loading = 0
	d.filled = map[string]string{}
	return nil
}

func (d *FakeDriver) WaitFor(ctx context.Context, selector string, _ time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.enter(ctx, "WaitFor"); err != nil {
		return err
	}
	if !d.visible(selector) {
		return fmt.Errorf("waiting for %q: %w", selector, browser.ErrTimeout)
	}
	return nil
}

func (d *FakeDriver) Click(ctx context.Context, selector string, _ time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.enter(ctx, "Click"); err != nil {
		return err
	}
	return d.click(selector)
}

func (d *FakeDriver) Fill(ctx context.Context, selector, value string, _ time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.enter(ctx, "Fill"); err != nil {
		return err
	}
	if !d.visible(selector) {
		return fmt.Errorf("filling %q: %w", selector, browser.ErrTimeout)
	}
	d.filled[selector] = value
	return nil
}

func (d *FakeDriver) ClickAndSettle(ctx context.Context, selector string, _ time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.enter(ctx, "ClickAndSettle"); err != nil {
		return err
	}
	if err := d.click(selector); err != nil {
		return err
	}
	if d.site.SettleFails {
		return browser.ErrSettleTimeout
	}
	return nil
}

func (d *FakeDriver) Rows(ctx context.Context, _, _ string) ([][]string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.enter(ctx, "Rows"); err != nil {
		return nil, err
	}
	if !d.tableVisible() || d.page >= len(d.site.Pages) {
		return nil, nil
	}
	if d.loading > 0 {
		d.loading--
		return [][]string{append([]string{}, LoadingRow...)}, nil
	}
	rows := make([][]string, len(d.site.Pages[d.page]))
	for i, r := range d.site.Pages[d.page] {
		rows[i] = append([]string{}, r...)
	}
	return rows, nil
}

func (d *FakeDriver) Control(ctx context.Context, selector string) (bool, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.enter(ctx, "Control"); err != nil {
		return false, false, err
	}
	if selector != d.site.NextSelector {
		return d.visible(selector), d.visible(selector), nil
	}
	return d.nextPresent(), d.nextEnabled(), nil
}

func (d *FakeDriver) Sleep(ctx context.Context, dur time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.enter(ctx, "Sleep"); err != nil {
		return err
	}
	d.sleeps = append(d.sleeps, dur)
	return nil
}

func (d *FakeDriver) SaveSession(ctx context.Context) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.enter(ctx, "SaveSession"); err != nil {
		return nil, err
	}
	if d.cookie == "" {
		return []byte("[]"), nil
	}
	return []byte(d.cookie), nil
}

func (d *FakeDriver) RestoreSession(ctx context.Context, blob []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.enter(ctx, "RestoreSession"); err != nil {
		return err
	}
	d.restored = append(d.restored, string(blob))
	if d.site.SessionToken != "" && string(blob) == d.site.SessionToken {
		d.cookie = string(blob)
		d.authed = true
	}
	return nil
}

func (d *FakeDriver) Snapshot(ctx context.Context) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.enter(ctx, "Snapshot"); err != nil {
		return "", err
	}
	return fmt.Sprintf(`<html><body data-step="%d" data-page="%d"></body></html>`, d.stepPos, d.page), nil
}

func (d *FakeDriver) click(selector string) error {
	if !d.visible(selector) {
		return fmt.Errorf("clicking %q: %w", selector, browser.ErrTimeout)
	}
	switch {
	case selector == d.site.SubmitSelector && !d.authed:
		if d.filled[d.site.UsernameSelector] == d.site.Username &&
			d.filled[d.site.PasswordSelector] == d.site.Password {
			d.authed = true
			d.cookie = d.site.SessionToken
		}
	case selector == d.site.NextSelector:
		if d.nextEnabled() && !d.site.StuckPaging {
			d.page++
			d.loading = d.site.LoadingReads
		}
	case d.stepPos < len(d.site.NavSelectors) && selector == d.site.NavSelectors[d.stepPos]:
		d.stepPos++
	}
	return nil
}

func (d *FakeDriver) visible(selector string) bool {
	if !d.loaded || strings.TrimSpace(selector) == "" {
		return false
	}
	if !d.authed {
		return selector == d.site.UsernameSelector ||
			selector == d.site.PasswordSelector ||
			selector == d.site.SubmitSelector
	}
	for i, s := range d.site.NavSelectors {
		if s == selector && i <= d.stepPos && i+1 != d.site.MissingStep {
			return true
		}
	}
	switch selector {
	case d.site.TableSelector:
		return d.tableVisible()
	case d.site.NextSelector:
		return d.nextPresent()
	}
	return false
}

func (d *FakeDriver) tableVisible() bool {
	return d.loaded && d.authed && d.stepPos >= len(d.site.NavSelectors)
}

func (d *FakeDriver) nextPresent() bool {
	if !d.tableVisible() {
		return false
	}
	return d.page < len(d.site.Pages)-1 || d.site.DisableNextOnLast
}

func (d *FakeDriver) nextEnabled() bool {
	return d.tableVisible() && d.page < len(d.site.Pages)-1
}
