package session

import "go.pilab.hu/eduflow/domain"

// State is the lifecycle phase of the managed session.
type State string

const (
	// StateUninitialized is the phase before the startup restore runs.
	StateUninitialized State = "uninitialized"
	// StateLoading means the startup restore is in progress. Consumers
	// should block on this state rather than assume anonymity.
	StateLoading State = "loading"
	// StateAnonymous means no valid session exists.
	StateAnonymous State = "anonymous"
	// StateAuthenticated means a valid (or refreshable) session is active.
	StateAuthenticated State = "authenticated"
	// StateRefreshing means a token refresh is in flight. It always
	// resolves back to Authenticated or Anonymous.
	StateRefreshing State = "refreshing"
)

// Snapshot is the read-only projection of the session handed to consumers.
// All mutations go through the Manager's operations.
type Snapshot struct {
	State       State
	User        *domain.User
	AccessToken string
	Loading     bool  // transient per-operation flag, presentation only
	Err         error // last operation error, cleared at the start of the next operation
}

// IsAuthenticated reports whether the snapshot carries an active session.
// A refresh in flight still counts as authenticated for display purposes.
func (s Snapshot) IsAuthenticated() bool {
	return s.State == StateAuthenticated || s.State == StateRefreshing
}
