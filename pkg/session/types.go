package session

import (
	"fmt"
	"strings"
)

// ExecHost is where tool execution happens.
type ExecHost string

const (
	ExecHostGateway ExecHost = "gateway"
	ExecHostNode    ExecHost = "node"
	ExecHostLocal   ExecHost = "local"
)

// ExecSecurity is the security policy for tool execution.
type ExecSecurity string

const (
	ExecSecurityDeny       ExecSecurity = "deny"
	ExecSecurityAllowlist  ExecSecurity = "allowlist"
	ExecSecurityPermissive ExecSecurity = "permissive"
)

// ExecAsk is when the user is prompted for tool permission.
type ExecAsk string

const (
	ExecAskAlways ExecAsk = "always"
	ExecAskOnMiss ExecAsk = "on-miss"
	ExecAskNever  ExecAsk = "never"
)

// ExecutionConfig is the per-session tool execution override stored in the
// durable session record. Empty fields fall back to agent/global config.
type ExecutionConfig struct {
	ExecHost     ExecHost     `json:"execHost,omitempty"`
	ExecSecurity ExecSecurity `json:"execSecurity,omitempty"`
	ExecAsk      ExecAsk      `json:"execAsk,omitempty"`
	ExecNode     string       `json:"execNode,omitempty"`
}

// QueueMode is how messages arriving mid-run are handled.
type QueueMode string

const (
	QueueModeSteer        QueueMode = "steer"
	QueueModeFollowup     QueueMode = "followup"
	QueueModeCollect      QueueMode = "collect"
	QueueModeSteerBacklog QueueMode = "steer-backlog"
	QueueModeQueue        QueueMode = "queue"
	QueueModeInterrupt    QueueMode = "interrupt"
)

// ParseQueueMode validates a queue mode; "steer+backlog" is accepted as an
// alias of steer-backlog.
func ParseQueueMode(value string) (QueueMode, error) {
	switch mode := QueueMode(normalizeToken(value)); mode {
	case "steer+backlog":
		return QueueModeSteerBacklog, nil
	case QueueModeSteer, QueueModeFollowup, QueueModeCollect, QueueModeSteerBacklog, QueueModeQueue, QueueModeInterrupt:
		return mode, nil
	default:
		return "", fmt.Errorf("invalid queue mode %q", strings.TrimSpace(value))
	}
}

// QueueDrop is the overflow policy of a session queue.
type QueueDrop string

const (
	QueueDropOld       QueueDrop = "old"
	QueueDropNew       QueueDrop = "new"
	QueueDropSummarize QueueDrop = "summarize"
)

// QueueConfig is the per-session queue override stored in the durable
// session record.
type QueueConfig struct {
	Mode       QueueMode `json:"queueMode,omitempty"`
	DebounceMs int       `json:"queueDebounceMs,omitempty"`
	Cap        int       `json:"queueCap,omitempty"`
	Drop       QueueDrop `json:"queueDrop,omitempty"`
}

// SkillSnapshot is the set of skills resolved for a session run.
type SkillSnapshot struct {
	Prompt string   `json:"prompt,omitempty"`
	Skills []string `json:"skills,omitempty"`
	// Version lets callers detect a stale snapshot after skills change.
	Version int `json:"version,omitempty"`
}

// SystemPromptReport describes how the system prompt was assembled.
type SystemPromptReport struct {
	Source      string         `json:"source,omitempty"`
	GeneratedAt int64          `json:"generatedAt,omitempty"`
	Chars       int            `json:"chars,omitempty"`
	Sections    map[string]int `json:"sections,omitempty"`
}

func (s *SkillSnapshot) clone() *SkillSnapshot {
	if s == nil {
		return nil
	}
	out := *s
	if s.Skills != nil {
		out.Skills = append([]string(nil), s.Skills...)
	}
	return &out
}

func (r *SystemPromptReport) clone() *SystemPromptReport {
	if r == nil {
		return nil
	}
	out := *r
	if r.Sections != nil {
		out.Sections = make(map[string]int, len(r.Sections))
		for k, v := range r.Sections {
			out.Sections[k] = v
		}
	}
	return &out
}
