package scraper

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/user/catalog-scraper/internal/browser"
	"github.com/user/catalog-scraper/internal/config"
	"github.com/user/catalog-scraper/internal/domain"
	"github.com/user/catalog-scraper/internal/session"
	"go.uber.org/zap"
)

// Warning is a non-fatal problem recorded on the run result. Kind is a short
// machine-readable tag used as a metric label.
type Warning struct {
	Kind    string
	Message string
}

func (w Warning) String() string {
	return w.Kind + ": " + w.Message
}

// Session describes how the run obtained its authenticated browser state.
type Session struct {
	// Restored is set when a stored session was loaded into the browser.
	Restored bool
	// LoggedIn is set when the login form was found and submitted.
	LoggedIn bool
	// Persisted is set when the fresh session was written to the store.
	Persisted bool
	Warnings  []Warning
}

func (s *Session) warn(kind, format string, args ...any) {
	s.Warnings = append(s.Warnings, Warning{Kind: kind, Message: fmt.Sprintf(format, args...)})
}

// Authenticator resumes a stored session or logs in through the form.
type Authenticator struct {
	cfg    *config.Config
	store  session.Store
	logger *zap.Logger
	now    func() time.Time
}

// NewAuthenticator creates an Authenticator. store may be nil, in which case
// every run logs in and nothing is persisted.
func NewAuthenticator(cfg *config.Config, store session.Store, logger *zap.Logger) *Authenticator {
	return &Authenticator{
		cfg:    cfg,
		store:  store,
		logger: logger.Named("auth"),
		now:    time.Now,
	}
}

// EnsureAuthenticated leaves the driver on the entry page with a usable
// session. The only error it returns is an unreachable entry URL (wrapping
// domain.ErrUnreachable) or a cancelled ctx; everything else becomes a
// warning on the returned Session.
func (a *Authenticator) EnsureAuthenticated(ctx context.Context, d browser.Driver) (*Session, error) {
	sess := &Session{}
	a.restore(ctx, d, sess)

	if err := d.Navigate(ctx, a.cfg.EntryURL); err != nil {
		if ctx.Err() != nil {
			return sess, ctx.Err()
		}
		return sess, fmt.Errorf("%w: %w", domain.ErrUnreachable, err)
	}

	sel := a.cfg.Selectors
	err := d.WaitFor(ctx, sel.Username, a.cfg.Timeouts.LoginProbe)
	switch {
	case err == nil:
	case ctx.Err() != nil:
		return sess, ctx.Err()
	case errors.Is(err, browser.ErrTimeout):
		a.logger.Info("no login form, session is already authenticated", zap.Bool("restored", sess.Restored))
		return sess, nil
	default:
		a.logger.Warn("proceeding despite login form probe error", zap.Error(err))
		sess.warn("login_probe", "login form probe failed: %v", err)
		return sess, nil
	}

	a.logger.Info("login form present, signing in", zap.String("username", a.cfg.Credentials.Username))
	if err := d.Fill(ctx, sel.Username, a.cfg.Credentials.Username, a.cfg.Timeouts.Click); err != nil {
		sess.warn("login_form", "could not fill username: %v", err)
		return sess, nil
	}
	if err := d.Fill(ctx, sel.Password, a.cfg.Credentials.Password, a.cfg.Timeouts.Click); err != nil {
		sess.warn("login_form", "could not fill password: %v", err)
		return sess, nil
	}

	err = d.ClickAndSettle(ctx, sel.Submit, a.cfg.Timeouts.LoginSettle)
	switch {
	case err == nil:
	case errors.Is(err, browser.ErrSettleTimeout):
		a.logger.Warn("proceeding despite login settle timeout", zap.Duration("timeout", a.cfg.Timeouts.LoginSettle))
		sess.warn("login_settle", "network did not settle within %s after login", a.cfg.Timeouts.LoginSettle)
	case ctx.Err() != nil:
		return sess, ctx.Err()
	default:
		sess.warn("login_submit", "could not submit login form: %v", err)
		return sess, nil
	}
	sess.LoggedIn = true

	a.persist(ctx, d, sess)
	return sess, nil
}

func (a *Authenticator) restore(ctx context.Context, d browser.Driver, sess *Session) {
	if a.store == nil {
		return
	}
	state, err := a.store.Load(ctx)
	switch {
	case errors.Is(err, session.ErrCorrupt):
		a.logger.Warn("ignoring corrupt stored session", zap.Error(err))
		sess.warn("session_corrupt", "stored session ignored: %v", err)
		return
	case err != nil:
		a.logger.Warn("proceeding without stored session", zap.Error(err))
		sess.warn("session_load", "could not load stored session: %v", err)
		return
	case state == nil:
		a.logger.Debug("no stored session")
		return
	}

	if state.Expired(a.now(), a.cfg.Session.MaxAge) {
		a.logger.Info("stored session expired", zap.Time("captured_at", state.CapturedAt))
		return
	}
	if err := d.RestoreSession(ctx, state.Blob); err != nil {
		a.logger.Warn("proceeding without stored session", zap.Error(err))
		sess.warn("session_restore", "could not restore stored session: %v", err)
		return
	}
	sess.Restored = true
}

func (a *Authenticator) persist(ctx context.Context, d browser.Driver, sess *Session) {
	if a.store == nil {
		return
	}
	blob, err := d.SaveSession(ctx)
	if err != nil {
		a.logger.Warn("session not saved", zap.Error(err))
		sess.warn("session_save", "could not read browser session: %v", err)
		return
	}
	state := &domain.SessionState{Blob: blob, CapturedAt: a.now().UTC()}
	if err := a.store.Save(ctx, state); err != nil {
		a.logger.Warn("session not saved", zap.Error(err))
		sess.warn("session_save", "could not store session: %v", err)
		return
	}
	sess.Persisted = true
	a.logger.Info("session saved")
}
