package session

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/harun/sessionkey/internal/observability"
	"github.com/rs/zerolog/log"
)

var (
	ErrUnknownField = errors.New("unknown runtime state field")
	ErrFieldType    = errors.New("runtime state field type mismatch")
)

// RuntimeState is what a session is doing right now. It lives only in
// process memory and is never written to the session record. Nil fields are
// unknown.
type RuntimeState struct {
	SystemSent          *bool               `json:"systemSent,omitempty"`
	LastHeartbeatText   *string             `json:"lastHeartbeatText,omitempty"`
	LastHeartbeatSentAt *int64              `json:"lastHeartbeatSentAt,omitempty"` // unix ms
	CLISessionIDs       map[string]string   `json:"cliSessionIds,omitempty"`
	ClaudeCLISessionID  *string             `json:"claudeCliSessionId,omitempty"`
	SkillsSnapshot      *SkillSnapshot      `json:"skillsSnapshot,omitempty"`
	SystemPromptReport  *SystemPromptReport `json:"systemPromptReport,omitempty"`
	AbortedLastRun      *bool               `json:"abortedLastRun,omitempty"`
}

// RuntimeField names a single RuntimeState field for SetField.
type RuntimeField string

const (
	FieldSystemSent          RuntimeField = "systemSent"
	FieldLastHeartbeatText   RuntimeField = "lastHeartbeatText"
	FieldLastHeartbeatSentAt RuntimeField = "lastHeartbeatSentAt"
	FieldCLISessionIDs       RuntimeField = "cliSessionIds"
	FieldClaudeCLISessionID  RuntimeField = "claudeCliSessionId"
	FieldSkillsSnapshot      RuntimeField = "skillsSnapshot"
	FieldSystemPromptReport  RuntimeField = "systemPromptReport"
	FieldAbortedLastRun      RuntimeField = "abortedLastRun"
)

// IsEmpty reports whether no field is known.
func (s RuntimeState) IsEmpty() bool {
	return s.SystemSent == nil &&
		s.LastHeartbeatText == nil &&
		s.LastHeartbeatSentAt == nil &&
		s.CLISessionIDs == nil &&
		s.ClaudeCLISessionID == nil &&
		s.SkillsSnapshot == nil &&
		s.SystemPromptReport == nil &&
		s.AbortedLastRun == nil
}

// Clone returns a deep copy so callers never alias stored state.
func (s RuntimeState) Clone() RuntimeState {
	out := RuntimeState{
		SystemSent:          clonePtr(s.SystemSent),
		LastHeartbeatText:   clonePtr(s.LastHeartbeatText),
		LastHeartbeatSentAt: clonePtr(s.LastHeartbeatSentAt),
		ClaudeCLISessionID:  clonePtr(s.ClaudeCLISessionID),
		SkillsSnapshot:      s.SkillsSnapshot.clone(),
		SystemPromptReport:  s.SystemPromptReport.clone(),
		AbortedLastRun:      clonePtr(s.AbortedLastRun),
	}
	if s.CLISessionIDs != nil {
		out.CLISessionIDs = make(map[string]string, len(s.CLISessionIDs))
		for k, v := range s.CLISessionIDs {
			out.CLISessionIDs[k] = v
		}
	}
	return out
}

// Merge returns s with every non-nil field of patch applied on top.
func (s RuntimeState) Merge(patch RuntimeState) RuntimeState {
	out := s.Clone()
	patch = patch.Clone()
	if patch.SystemSent != nil {
		out.SystemSent = patch.SystemSent
	}
	if patch.LastHeartbeatText != nil {
		out.LastHeartbeatText = patch.LastHeartbeatText
	}
	if patch.LastHeartbeatSentAt != nil {
		out.LastHeartbeatSentAt = patch.LastHeartbeatSentAt
	}
	if patch.CLISessionIDs != nil {
		out.CLISessionIDs = patch.CLISessionIDs
	}
	if patch.ClaudeCLISessionID != nil {
		out.ClaudeCLISessionID = patch.ClaudeCLISessionID
	}
	if patch.SkillsSnapshot != nil {
		out.SkillsSnapshot = patch.SkillsSnapshot
	}
	if patch.SystemPromptReport != nil {
		out.SystemPromptReport = patch.SystemPromptReport
	}
	if patch.AbortedLastRun != nil {
		out.AbortedLastRun = patch.AbortedLastRun
	}
	return out
}

// RuntimeStore maps session keys to RuntimeState for the life of the
// process. Every method is safe for concurrent use; compound
// read-modify-write sequences go through Mutate.
type RuntimeStore struct {
	mu     sync.RWMutex
	states map[string]RuntimeState
}

// NewRuntimeStore creates an empty store.
func NewRuntimeStore() *RuntimeStore {
	observability.EnsureRegistered()
	return &RuntimeStore{
		states: make(map[string]RuntimeState),
	}
}

// Get returns a copy of the state for sessionKey. A key without state yields
// an empty RuntimeState, never an error.
func (s *RuntimeStore) Get(sessionKey string) RuntimeState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.states[sessionKey].Clone()
}

// Update shallow-merges patch onto the existing state. Fields left nil in
// patch are preserved.
func (s *RuntimeStore) Update(sessionKey string, patch RuntimeState) {
	s.Mutate(sessionKey, func(state RuntimeState) RuntimeState {
		return state.Merge(patch)
	})
	observability.RecordRuntimeStateOp("update")
}

// Mutate applies fn to the current state and stores the result atomically.
// fn receives a copy and must not retain it.
func (s *RuntimeStore) Mutate(sessionKey string, fn func(RuntimeState) RuntimeState) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, found := s.states[sessionKey]
	s.states[sessionKey] = fn(existing.Clone()).Clone()
	if !found {
		observability.AddRuntimeStateEntries(1)
	}
}

// SetField sets one field. A nil value clears the field and never creates a
// record; a value of the wrong type is rejected with ErrFieldType.
func (s *RuntimeStore) SetField(sessionKey string, field RuntimeField, value any) error {
	patch, reset, err := fieldPatch(field, value)
	if err != nil {
		return err
	}

	if reset {
		s.mu.Lock()
		if state, found := s.states[sessionKey]; found {
			s.states[sessionKey] = clearField(state.Clone(), field)
		}
		s.mu.Unlock()
	} else {
		s.Mutate(sessionKey, func(state RuntimeState) RuntimeState {
			return state.Merge(patch)
		})
	}
	observability.RecordRuntimeStateOp("set_field")
	return nil
}

// Clear drops all state for sessionKey, e.g. on session reset.
func (s *RuntimeStore) Clear(sessionKey string) {
	s.mu.Lock()
	_, found := s.states[sessionKey]
	delete(s.states, sessionKey)
	s.mu.Unlock()

	if found {
		observability.AddRuntimeStateEntries(-1)
	}
	observability.RecordRuntimeStateOp("clear")
	log.Debug().Str("session_key", sessionKey).Bool("had_state", found).Msg("Runtime state cleared")
}

// Has reports whether sessionKey holds any state.
func (s *RuntimeStore) Has(sessionKey string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.states[sessionKey]
	return ok
}

// Keys returns every session key holding state, sorted.
func (s *RuntimeStore) Keys() []string {
	s.mu.RLock()
	keys := make([]string, 0, len(s.states))
	for key := range s.states {
		keys = append(keys, key)
	}
	s.mu.RUnlock()

	sort.Strings(keys)
	return keys
}

// Len returns the number of sessions holding state.
func (s *RuntimeStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.states)
}

// ClearAll drops every session's state. Intended for tests and shutdown.
func (s *RuntimeStore) ClearAll() {
	s.mu.Lock()
	count := len(s.states)
	s.states = make(map[string]RuntimeState)
	s.mu.Unlock()

	observability.AddRuntimeStateEntries(-count)
	observability.RecordRuntimeStateOp("clear_all")
	log.Debug().Int("sessions", count).Msg("All runtime state cleared")
}

func fieldPatch(field RuntimeField, value any) (RuntimeState, bool, error) {
	var patch RuntimeState
	if value == nil {
		if !knownField(field) {
			return patch, false, fmt.Errorf("%w: %s", ErrUnknownField, field)
		}
		return patch, true, nil
	}

	ok := true
	switch field {
	case FieldSystemSent:
		var v bool
		v, ok = value.(bool)
		patch.SystemSent = &v
	case FieldAbortedLastRun:
		var v bool
		v, ok = value.(bool)
		patch.AbortedLastRun = &v
	case FieldLastHeartbeatText:
		var v string
		v, ok = value.(string)
		patch.LastHeartbeatText = &v
	case FieldClaudeCLISessionID:
		var v string
		v, ok = value.(string)
		patch.ClaudeCLISessionID = &v
	case FieldLastHeartbeatSentAt:
		switch v := value.(type) {
		case int64:
			patch.LastHeartbeatSentAt = &v
		case int:
			ms := int64(v)
			patch.LastHeartbeatSentAt = &ms
		default:
			ok = false
		}
	case FieldCLISessionIDs:
		patch.CLISessionIDs, ok = value.(map[string]string)
	case FieldSkillsSnapshot:
		switch v := value.(type) {
		case SkillSnapshot:
			patch.SkillsSnapshot = &v
		case *SkillSnapshot:
			patch.SkillsSnapshot, ok = v, v != nil
		default:
			ok = false
		}
	case FieldSystemPromptReport:
		switch v := value.(type) {
		case SystemPromptReport:
			patch.SystemPromptReport = &v
		case *SystemPromptReport:
			patch.SystemPromptReport, ok = v, v != nil
		default:
			ok = false
		}
	default:
		return patch, false, fmt.Errorf("%w: %s", ErrUnknownField, field)
	}

	if !ok {
		return RuntimeState{}, false, fmt.Errorf("%w: %s cannot hold %T", ErrFieldType, field, value)
	}
	return patch, false, nil
}

func knownField(field RuntimeField) bool {
	switch field {
	case FieldSystemSent, FieldLastHeartbeatText, FieldLastHeartbeatSentAt, FieldCLISessionIDs,
		FieldClaudeCLISessionID, FieldSkillsSnapshot, FieldSystemPromptReport, FieldAbortedLastRun:
		return true
	}
	return false
}

func clearField(state RuntimeState, field RuntimeField) RuntimeState {
	switch field {
	case FieldSystemSent:
		state.SystemSent = nil
	case FieldLastHeartbeatText:
		state.LastHeartbeatText = nil
	case FieldLastHeartbeatSentAt:
		state.LastHeartbeatSentAt = nil
	case FieldCLISessionIDs:
		state.CLISessionIDs = nil
	case FieldClaudeCLISessionID:
		state.ClaudeCLISessionID = nil
	case FieldSkillsSnapshot:
		state.SkillsSnapshot = nil
	case FieldSystemPromptReport:
		state.SystemPromptReport = nil
	case FieldAbortedLastRun:
		state.AbortedLastRun = nil
	}
	return state
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// Bool, String and Int64 build pointer values for RuntimeState patches.
func Bool(v bool) *bool { return &v }

func String(v string) *string { return &v }

func Int64(v int64) *int64 { return &v }
