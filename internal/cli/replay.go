package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/harun/sessionkey/internal/observability"
	"github.com/harun/sessionkey/internal/tracing"
	"github.com/harun/sessionkey/pkg/routing"
	"github.com/harun/sessionkey/pkg/session"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// replayEvent is one inbound message of a replay stream, one JSON object
// per line.
type replayEvent struct {
	routing.InboundContext
	CLIProvider  string `json:"cli_provider,omitempty"`
	CLISessionID string `json:"cli_session_id,omitempty"`
	Heartbeat    string `json:"heartbeat,omitempty"`
	Abort        bool   `json:"abort,omitempty"`
	Reset        bool   `json:"reset,omitempty"`
}

type replayResult struct {
	Route        routing.Route        `json:"route"`
	RunID        string               `json:"run_id"`
	CLISessionID string               `json:"cli_session_id,omitempty"`
	State        session.RuntimeState `json:"state"`
}

// replayer feeds events through routing and the runtime state store the way
// a gateway would for live traffic.
type replayer struct {
	resolver *routing.Resolver
	store    *session.RuntimeStore
	cli      *session.CLISessions
	sessions map[string]*session.ProtocolSession
	now      func() time.Time
}

func newReplayer(resolver *routing.Resolver) *replayer {
	store := session.NewRuntimeStore()
	return &replayer{
		resolver: resolver,
		store:    store,
		cli:      session.NewCLISessions(store),
		sessions: make(map[string]*session.ProtocolSession),
		now:      time.Now,
	}
}

func (r *replayer) handle(ctx context.Context, ev replayEvent) (replayResult, error) {
	route := r.resolver.Resolve(ev.InboundContext)
	key := route.SessionKey

	ps, ok := r.sessions[key]
	if !ok {
		ps = session.NewProtocolSession(key, "")
		r.sessions[key] = ps
	}
	runID, runCtx := ps.BeginRun(tracing.WithSession(ctx, key))
	logger := tracing.LoggerFromContext(tracing.WithRunID(runCtx, runID), log.Logger)

	if !r.store.Has(key) {
		if err := r.store.SetField(key, session.FieldSystemSent, true); err != nil {
			return replayResult{}, err
		}
	}
	provider := ev.CLIProvider
	if provider == "" {
		provider = session.LegacyCLIProvider
	}
	if ev.CLISessionID != "" {
		r.cli.Set(key, provider, ev.CLISessionID)
	}
	if ev.Heartbeat != "" {
		r.store.Update(key, session.RuntimeState{
			LastHeartbeatText:   session.String(ev.Heartbeat),
			LastHeartbeatSentAt: session.Int64(r.now().UnixMilli()),
		})
	}

	aborted := ev.Abort && ps.Abort()
	if err := r.store.SetField(key, session.FieldAbortedLastRun, aborted); err != nil {
		return replayResult{}, err
	}
	ps.EndRun(runID)

	if ev.Reset {
		r.store.Clear(key)
		delete(r.sessions, key)
	}

	logger.Debug().Bool("aborted", aborted).Bool("reset", ev.Reset).Msg("Replayed inbound message")

	result := replayResult{
		Route: route,
		RunID: runID,
		State: r.store.Get(key),
	}
	if ev.CLIProvider != "" || ev.CLISessionID != "" {
		result.CLISessionID = r.cli.Get(key, provider)
	}
	return result, nil
}

func (r *replayer) run(ctx context.Context, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	enc := json.NewEncoder(out)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		var ev replayEvent
		if err := json.Unmarshal([]byte(text), &ev); err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		if _, err := session.ParsePeerKind(string(ev.PeerKind)); err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}

		result, err := r.handle(ctx, ev)
		if err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		if err := enc.Encode(result); err != nil {
			return fmt.Errorf("failed to write result: %w", err)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read events: %w", err)
	}

	log.Info().
		Int("lines", line).
		Int("sessions", r.store.Len()).
		Strs("session_keys", r.store.Keys()).
		Msg("Replay finished")
	return nil
}

func newReplayCmd() *cobra.Command {
	var dumpMetrics bool
	cmd := &cobra.Command{
		Use:   "replay [events.jsonl]",
		Short: "Route a stream of inbound messages and track their runtime state",
		Long: `Replay reads inbound messages as JSON lines (from a file or stdin),
resolves each to an agent session and applies its runtime state changes.
One result is printed per message.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resolver, err := routing.NewResolver(appConfig)
			if err != nil {
				return err
			}
			if dumpMetrics {
				observability.SetEnabled(true)
			}

			in := cmd.InOrStdin()
			if len(args) == 1 && args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("failed to open events file: %w", err)
				}
				defer f.Close()
				in = f
			}

			ctx := tracing.NewRequestContext(cmd.Context())
			if err := newReplayer(resolver).run(ctx, in, cmd.OutOrStdout()); err != nil {
				return err
			}
			if dumpMetrics {
				return observability.WriteMetrics(cmd.OutOrStdout())
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&dumpMetrics, "metrics", false, "record metrics and print them after the replay")
	return cmd
}
