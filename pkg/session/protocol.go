package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ProtocolSession is the in-memory state of a protocol-originated session.
// It addresses its conversation through SessionKey and owns the abort
// signal of the active run.
type ProtocolSession struct {
	SessionID  string
	SessionKey string
	Cwd        string
	CreatedAt  time.Time

	mu          sync.Mutex
	cancel      context.CancelFunc
	activeRunID string
}

// NewProtocolSession creates a protocol session for sessionKey with a fresh id.
func NewProtocolSession(sessionKey, cwd string) *ProtocolSession {
	return &ProtocolSession{
		SessionID:  uuid.New().String(),
		SessionKey: sessionKey,
		Cwd:        cwd,
		CreatedAt:  time.Now(),
	}
}

// BeginRun starts a run, aborting any run still active, and returns the run
// id with a context cancelled by Abort.
func (p *ProtocolSession) BeginRun(ctx context.Context) (string, context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	runCtx, cancel := context.WithCancel(ctx)
	runID := uuid.New().String()

	p.mu.Lock()
	previous := p.cancel
	p.cancel = cancel
	p.activeRunID = runID
	p.mu.Unlock()

	if previous != nil {
		previous()
	}
	log.Debug().Str("session_key", p.SessionKey).Str("run_id", runID).Msg("Protocol run started")
	return runID, runCtx
}

// ActiveRunID returns the id of the running run, or "".
func (p *ProtocolSession) ActiveRunID() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.activeRunID
}

// Abort cancels the active run. It reports whether a run was active.
func (p *ProtocolSession) Abort() bool {
	p.mu.Lock()
	cancel := p.cancel
	runID := p.activeRunID
	p.cancel = nil
	p.activeRunID = ""
	p.mu.Unlock()

	if cancel == nil {
		return false
	}
	cancel()
	log.Info().Str("session_key", p.SessionKey).Str("run_id", runID).Msg("Protocol run aborted")
	return true
}

// EndRun releases runID if it is still the active run.
func (p *ProtocolSession) EndRun(runID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.activeRunID != runID {
		return
	}
	if p.cancel != nil {
		p.cancel()
	}
	p.cancel = nil
	p.activeRunID = ""
}
