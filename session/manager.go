// Package session owns the credential lifecycle of the client: startup
// restore, login and registration, proactive and reactive token refresh, and
// logout. The Manager is the sole writer of session state; consumers observe
// it through snapshots and subscriptions.
package session

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"go.pilab.hu/eduflow/api"
	"go.pilab.hu/eduflow/config"
	"go.pilab.hu/eduflow/domain"
	autherr "go.pilab.hu/eduflow/errors"
	"go.pilab.hu/eduflow/log"
	"go.pilab.hu/eduflow/store"
)

// Backend is the slice of the API client the manager drives. Declared here
// so tests can substitute a fake without a network.
type Backend interface {
	Login(ctx context.Context, email, password string) (*api.AuthResponse, error)
	Register(ctx context.Context, username, email, password, name string) (*api.AuthResponse, error)
	RefreshToken(ctx context.Context, accessToken, refreshToken string) (*api.RefreshResponse, error)
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, code, password, passwordConfirmation string) (*api.AuthResponse, error)
	VerifyEmail(ctx context.Context, confirmation string) error
	SendEmailConfirmation(ctx context.Context, email string) error
	ChangePassword(ctx context.Context, accessToken, currentPassword, newPassword string, userID int) error
	SetAuthTransport(source api.TokenSource, refresh api.RefreshFunc)
	ClearAuthTransport()
}

// Manager is the sole authority for session state. The in-memory session
// always reflects the latest successfully persisted record.
type Manager struct {
	backend Backend
	store   store.CredentialStore
	logger  log.Logger

	validity  time.Duration // fallback token validity window
	threshold time.Duration // proactive refresh lead time

	mu      sync.RWMutex
	state   State
	session domain.Session
	loading bool
	lastErr error

	timer    *time.Timer
	timerGen uint64

	group singleflight.Group

	subMu   sync.Mutex
	subs    map[int]chan Snapshot
	nextSub int
}

// NewManager creates a Manager and wires the backend's authenticated
// transport to the manager's token source and refresh algorithm.
func NewManager(backend Backend, credStore store.CredentialStore, cfg *config.ClientConfig, logger log.Logger) *Manager {
	if logger == nil {
		logger = log.NewNop()
	}

	m := &Manager{
		backend:   backend,
		store:     credStore,
		logger:    logger,
		validity:  cfg.TokenValidity(),
		threshold: cfg.RefreshThreshold(),
		state:     StateUninitialized,
		subs:      make(map[int]chan Snapshot),
	}

	m.wireTransport()

	return m
}

// wireTransport points the backend's authenticated pipeline at this
// manager's token source and refresh algorithm. Called again after adopt so
// a logout-then-login cycle ends with a working pipeline.
func (m *Manager) wireTransport() {
	m.backend.SetAuthTransport(m.currentToken, func(ctx context.Context) (string, error) {
		return m.refresh(ctx)
	})
}

// Snapshot returns the current read-only projection of the session.
func (m *Manager) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshotLocked()
}

func (m *Manager) snapshotLocked() Snapshot {
	snap := Snapshot{
		State:       m.state,
		AccessToken: m.session.AccessToken,
		Loading:     m.loading,
		Err:         m.lastErr,
	}
	if m.session.User != nil {
		user := *m.session.User
		snap.User = &user
	}
	return snap
}

// Subscribe registers an observer of state transitions. The returned cancel
// function must be called when the observer goes away. Slow observers miss
// intermediate snapshots rather than blocking the manager.
func (m *Manager) Subscribe() (<-chan Snapshot, func()) {
	m.subMu.Lock()
	id := m.nextSub
	m.nextSub++
	ch := make(chan Snapshot, 16)
	m.subs[id] = ch
	m.subMu.Unlock()

	cancel := func() {
		m.subMu.Lock()
		if sub, ok := m.subs[id]; ok {
			delete(m.subs, id)
			close(sub)
		}
		m.subMu.Unlock()
	}

	return ch, cancel
}

func (m *Manager) notify() {
	snap := m.Snapshot()

	m.subMu.Lock()
	for _, ch := range m.subs {
		select {
		case ch <- snap:
		default:
		}
	}
	m.subMu.Unlock()
}

// currentToken is the TokenSource injected into the request pipeline. It is
// consulted at send time so rotated pairs are always picked up.
func (m *Manager) currentToken() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.session.AccessToken
}

// Start runs the one-time startup restore. It transitions
// Uninitialized -> Loading -> {Anonymous, Authenticated} and never leaves
// the manager in an intermediate state: any failure resolves to Anonymous.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.state != StateUninitialized {
		m.mu.Unlock()
		return nil
	}
	m.state = StateLoading
	m.mu.Unlock()
	m.notify()

	stored, err := m.store.Load(ctx)
	if err != nil {
		// Unreadable record: treat as corrupted state, force logout
		// semantics and come up anonymous.
		m.logger.Error(ctx, "failed to restore stored session", err)
		if clearErr := m.store.Clear(ctx); clearErr != nil {
			m.logger.Error(ctx, "failed to clear corrupted session record", clearErr)
		}
		m.setAnonymous(autherr.NewCorruptedState("stored session could not be restored"))
		return nil
	}

	if stored == nil || stored.IsZero() {
		m.setAnonymous(nil)
		return nil
	}

	if stored.NeedsRefresh(time.Now(), m.threshold) {
		// Inside the refresh threshold: refresh synchronously before
		// declaring the session authenticated.
		m.mu.Lock()
		m.session = *stored
		m.mu.Unlock()

		if _, err := m.refresh(ctx); err != nil {
			m.logger.Warn(ctx, "startup refresh failed, continuing anonymous")
			return nil
		}
		return nil
	}

	m.mu.Lock()
	m.session = *stored
	m.state = StateAuthenticated
	m.mu.Unlock()
	m.armRefreshTimer()
	m.notify()

	m.logger.Info(ctx, "session restored", map[string]interface{}{
		"expires_at": stored.ExpiresAt,
	})

	return nil
}

// Close cancels the proactive refresh timer. The store and backend are owned
// by the caller and closed separately.
func (m *Manager) Close() error {
	m.mu.Lock()
	m.stopTimerLocked()
	m.mu.Unlock()
	return nil
}

// beginOp marks an operation as in flight and clears the previous
// operation's error. The stale error stays visible until this point.
func (m *Manager) beginOp() {
	m.mu.Lock()
	m.loading = true
	m.lastErr = nil
	m.mu.Unlock()
	m.notify()
}

// endOp records the operation outcome for display and clears the transient
// loading flag. The error (if any) is also returned to the caller by the
// operation itself.
func (m *Manager) endOp(err error) {
	m.mu.Lock()
	m.loading = false
	m.lastErr = err
	m.mu.Unlock()
	m.notify()
}

// adopt persists the token pair from an auth response and promotes it to the
// active session. Persistence failure fails the operation; the in-memory
// state is only updated after the record is durable.
func (m *Manager) adopt(ctx context.Context, resp *api.AuthResponse) error {
	user := resp.User
	sess := domain.Session{
		AccessToken:  resp.JWT,
		RefreshToken: resp.RefreshToken,
		ExpiresAt:    domain.TokenExpiry(resp.JWT, time.Now(), m.validity),
		User:         &user,
	}

	if err := m.store.Save(ctx, &sess); err != nil {
		m.logger.Error(ctx, "failed to persist session", err)
		return autherr.NewRequestFailed("failed to persist session")
	}

	m.mu.Lock()
	m.session = sess
	m.state = StateAuthenticated
	m.mu.Unlock()
	m.wireTransport()
	m.armRefreshTimer()
	m.notify()

	return nil
}

// Login authenticates with email and password and establishes a session.
func (m *Manager) Login(ctx context.Context, email, password string) error {
	m.beginOp()

	resp, err := m.backend.Login(ctx, email, password)
	if err == nil {
		err = m.adopt(ctx, resp)
	}

	m.endOp(err)
	return err
}

// Register creates an account and establishes a session.
func (m *Manager) Register(ctx context.Context, username, email, password, name string) error {
	m.beginOp()

	resp, err := m.backend.Register(ctx, username, email, password, name)
	if err == nil {
		err = m.adopt(ctx, resp)
	}

	m.endOp(err)
	return err
}

// Logout clears the persisted record and resets the session to anonymous.
// The in-memory session is reset even when clearing the store fails; the
// store error is reported. Logging out an anonymous session is a no-op.
func (m *Manager) Logout(ctx context.Context) error {
	m.beginOp()

	m.mu.Lock()
	m.stopTimerLocked()
	m.mu.Unlock()

	err := m.store.Clear(ctx)
	if err != nil {
		m.logger.Error(ctx, "failed to clear persisted session", err)
		err = autherr.NewRequestFailed("failed to clear persisted session")
	}

	m.mu.Lock()
	m.session = domain.Session{}
	m.state = StateAnonymous
	m.mu.Unlock()
	m.backend.ClearAuthTransport()

	m.endOp(err)
	return err
}

// ForgotPassword triggers the backend's reset-email flow. The session is
// unaffected.
func (m *Manager) ForgotPassword(ctx context.Context, email string) error {
	m.beginOp()
	err := m.backend.ForgotPassword(ctx, email)
	m.endOp(err)
	return err
}

// ResetPassword completes the reset flow. The backend returns a fresh token
// pair, so success also establishes a session.
func (m *Manager) ResetPassword(ctx context.Context, code, password, passwordConfirmation string) error {
	m.beginOp()

	resp, err := m.backend.ResetPassword(ctx, code, password, passwordConfirmation)
	if err == nil {
		err = m.adopt(ctx, resp)
	}

	m.endOp(err)
	return err
}

// VerifyEmail confirms an email address. The session is unaffected.
func (m *Manager) VerifyEmail(ctx context.Context, confirmation string) error {
	m.beginOp()
	err := m.backend.VerifyEmail(ctx, confirmation)
	m.endOp(err)
	return err
}

// SendEmailConfirmation resends the confirmation mail. The session is
// unaffected.
func (m *Manager) SendEmailConfirmation(ctx context.Context, email string) error {
	m.beginOp()
	err := m.backend.SendEmailConfirmation(ctx, email)
	m.endOp(err)
	return err
}

// ChangePassword updates the authenticated user's password. It fails fast
// without a network call when no session is active.
func (m *Manager) ChangePassword(ctx context.Context, currentPassword, newPassword string) error {
	m.mu.RLock()
	sess := m.session
	m.mu.RUnlock()

	if sess.IsZero() || sess.User == nil {
		err := autherr.NewNotAuthenticated("change password requires an active session")
		m.mu.Lock()
		m.lastErr = err
		m.mu.Unlock()
		m.notify()
		return err
	}

	m.beginOp()
	err := m.backend.ChangePassword(ctx, sess.AccessToken, currentPassword, newPassword, sess.User.ID)
	m.endOp(err)
	return err
}

// refresh runs the token refresh algorithm. Concurrent triggers (the
// proactive timer, a 401-driven retry, the startup restore) coalesce into a
// single backend call; late arrivals wait for and share its result. Failure
// forces a full logout before propagating, so callers never observe a
// refresh-failed-but-still-authenticated state.
func (m *Manager) refresh(ctx context.Context) (string, error) {
	token, err, _ := m.group.Do("refresh", func() (interface{}, error) {
		m.mu.Lock()
		if m.session.IsZero() {
			m.mu.Unlock()
			return nil, autherr.NewNotAuthenticated("no session to refresh")
		}
		accessToken := m.session.AccessToken
		refreshToken := m.session.RefreshToken
		user := m.session.User
		m.state = StateRefreshing
		m.mu.Unlock()
		m.notify()

		resp, err := m.backend.RefreshToken(ctx, accessToken, refreshToken)
		if err != nil {
			m.logger.Error(ctx, "token refresh failed", err)
			m.forceLogout(ctx)
			return nil, err
		}

		sess := domain.Session{
			AccessToken:  resp.JWT,
			RefreshToken: resp.RefreshToken,
			ExpiresAt:    domain.TokenExpiry(resp.JWT, time.Now(), m.validity),
			User:         user,
		}

		if err := m.store.Save(ctx, &sess); err != nil {
			m.logger.Error(ctx, "failed to persist refreshed session", err)
			m.forceLogout(ctx)
			return nil, err
		}

		m.mu.Lock()
		m.session = sess
		m.state = StateAuthenticated
		m.mu.Unlock()
		m.armRefreshTimer()
		m.notify()

		return resp.JWT, nil
	})
	if err != nil {
		return "", err
	}

	return token.(string), nil
}

// forceLogout clears all session state after an unrecoverable refresh
// failure. Unlike Logout it is not an operation: it does not touch the
// transient loading/error fields.
func (m *Manager) forceLogout(ctx context.Context) {
	m.mu.Lock()
	m.stopTimerLocked()
	m.session = domain.Session{}
	m.state = StateAnonymous
	m.mu.Unlock()
	m.backend.ClearAuthTransport()

	if err := m.store.Clear(ctx); err != nil {
		m.logger.Error(ctx, "failed to clear persisted session", err)
	}

	m.notify()
}

// setAnonymous resolves the startup restore to the anonymous state.
func (m *Manager) setAnonymous(restoreErr error) {
	m.mu.Lock()
	m.session = domain.Session{}
	m.state = StateAnonymous
	m.lastErr = restoreErr
	m.mu.Unlock()
	m.notify()
}

// armRefreshTimer schedules the proactive refresh at expiry minus the
// threshold, replacing any previously armed timer. A moment already in the
// past fires the refresh immediately.
func (m *Manager) armRefreshTimer() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stopTimerLocked()
	if m.session.IsZero() {
		return
	}

	m.timerGen++
	gen := m.timerGen
	fire := func() {
		m.mu.RLock()
		stale := gen != m.timerGen || m.session.IsZero()
		m.mu.RUnlock()
		if stale {
			return
		}
		if _, err := m.refresh(context.Background()); err != nil {
			m.logger.Warn(context.Background(), "proactive token refresh failed")
		}
	}

	delay := time.Until(m.session.ExpiresAt.Add(-m.threshold))
	if delay <= 0 {
		go fire()
		return
	}

	m.timer = time.AfterFunc(delay, fire)
}

// stopTimerLocked cancels the armed proactive refresh. Callers hold m.mu.
func (m *Manager) stopTimerLocked() {
	m.timerGen++
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
}
