package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrTimeout is returned when a bounded wait expires before its condition holds.
	ErrTimeout = errors.New("timed out waiting for element")
	// ErrSettleTimeout is returned when no network-idle signal arrived after an action.
	ErrSettleTimeout = errors.New("timed out waiting for network to settle")
)

// Driver is the browser capability the scraper runs on. Every blocking call is bounded,
// either by an explicit timeout or by ctx. Selectors starting with "/" or "(" are XPath, the rest CSS.
type Driver interface {
	Navigate(ctx context.Context, url string) error
	WaitFor(ctx context.Context, selector string, timeout time.Duration) error
	Click(ctx context.Context, selector string, timeout time.Duration) error
	Fill(ctx context.Context, selector, value string, timeout time.Duration) error
	// ClickAndSettle clicks and then waits for the page's network to go idle.
	ClickAndSettle(ctx context.Context, selector string, timeout time.Duration) error
	// Rows returns the trimmed cell texts of every row on the current page.
	Rows(ctx context.Context, rowSelector, cellSelector string) ([][]string, error)
	// Control reports whether an element exists and whether it accepts interaction.
	Control(ctx context.Context, selector string) (present, enabled bool, err error)
	Sleep(ctx context.Context, d time.Duration) error
	SaveSession(ctx context.Context) ([]byte, error)
	RestoreSession(ctx context.Context, blob []byte) error
	Snapshot(ctx context.Context) (string, error)
}

// TextSelector builds an XPath matching any element whose own text equals label.
func TextSelector(label string) string {
	return fmt.Sprintf("//*[normalize-space(text())=%s]", xpathLiteral(strings.TrimSpace(label)))
}

// xpathLiteral quotes s for XPath 1.0, which has no escape sequences.
func xpathLiteral(s string) string {
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	parts := strings.Split(s, "'")
	quoted := make([]string, 0, len(parts)*2)
	for i, p := range parts {
		if i > 0 {
			quoted = append(quoted, `"'"`)
		}
		if p != "" {
			quoted = append(quoted, "'"+p+"'")
		}
	}
	return "concat(" + strings.Join(quoted, ",") + ")"
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
