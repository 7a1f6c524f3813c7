package cli

import (
	"fmt"
	"strings"

	"github.com/harun/sessionkey/pkg/session"
	"github.com/spf13/cobra"
)

func newKeyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "key",
		Short: "Build and inspect session keys",
	}
	cmd.AddCommand(
		newKeyParseCmd(),
		newKeyMainCmd(),
		newKeyPeerCmd(),
		newKeyGroupHistoryCmd(),
		newKeyThreadCmd(),
		newKeyParentCmd(),
		newKeyStoreCmd(),
		newKeySubagentCmd(),
	)
	return cmd
}

type keyInfo struct {
	Key          string `json:"key"`
	Valid        bool   `json:"valid"`
	AgentID      string `json:"agent_id"`
	Rest         string `json:"rest,omitempty"`
	RequestKey   string `json:"request_key"`
	Subagent     bool   `json:"subagent"`
	ACP          bool   `json:"acp"`
	ThreadParent string `json:"thread_parent,omitempty"`
}

func newKeyParseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "parse <session-key>",
		Short: "Decompose a session key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := args[0]
			parsed, ok := session.ParseAgentSessionKey(key)
			info := keyInfo{
				Key:        key,
				Valid:      ok,
				AgentID:    session.ResolveAgentIDFromSessionKey(key),
				Rest:       parsed.Rest,
				RequestKey: session.ToAgentRequestSessionKey(key),
				Subagent:   session.IsSubagentSessionKey(key),
				ACP:        session.IsAcpSessionKey(key),
			}
			if parent, ok := session.ResolveThreadParentSessionKey(key); ok {
				info.ThreadParent = parent
			}
			return writeJSON(cmd.OutOrStdout(), info)
		},
	}
}

func newKeyMainCmd() *cobra.Command {
	var agentID string
	cmd := &cobra.Command{
		Use:   "main",
		Short: "Print the main session key of an agent",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if agentID == "" {
				agentID = appConfig.DefaultAgentID()
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), session.BuildAgentMainSessionKey(agentID, appConfig.MainKeyFor(agentID)))
			return err
		},
	}
	cmd.Flags().StringVar(&agentID, "agent", "", "agent id (default is the configured default agent)")
	return cmd
}

func newKeyPeerCmd() *cobra.Command {
	var (
		agentID, channel, accountID, kind, peerID, dmScope string
		detailed                                           bool
	)
	cmd := &cobra.Command{
		Use:   "peer",
		Short: "Build the session key for a direct message, group or channel",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			peerKind, err := session.ParsePeerKind(kind)
			if err != nil {
				return err
			}
			if agentID == "" {
				agentID = appConfig.DefaultAgentID()
			}
			scope := appConfig.DMScopeFor(agentID)
			if dmScope != "" {
				if scope, err = session.ParseDMScope(dmScope); err != nil {
					return err
				}
			}

			result := session.BuildAgentPeerSessionKeyDetailed(session.PeerKeyParams{
				AgentID:       agentID,
				MainKey:       appConfig.MainKeyFor(agentID),
				Channel:       channel,
				AccountID:     accountID,
				PeerKind:      peerKind,
				PeerID:        peerID,
				IdentityLinks: appConfig.Session.IdentityLinks,
				DMScope:       scope,
			})
			if detailed {
				return writeJSON(cmd.OutOrStdout(), map[string]any{
					"key":               result.Key,
					"linked_peer_id":    result.LinkedPeerID,
					"fell_back_to_main": result.FellBackToMain,
				})
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), result.Key)
			return err
		},
	}
	cmd.Flags().StringVar(&agentID, "agent", "", "agent id (default is the configured default agent)")
	cmd.Flags().StringVar(&channel, "channel", "", "channel name")
	cmd.Flags().StringVar(&accountID, "account", "", "channel account id")
	cmd.Flags().StringVar(&kind, "kind", "dm", "peer kind (dm, group, channel)")
	cmd.Flags().StringVar(&peerID, "peer", "", "peer id")
	cmd.Flags().StringVar(&dmScope, "dm-scope", "", "override the configured dm scope")
	cmd.Flags().BoolVar(&detailed, "detailed", false, "print identity link and fallback details as JSON")
	return cmd
}

func newKeyGroupHistoryCmd() *cobra.Command {
	var channel, accountID, kind, peerID string
	cmd := &cobra.Command{
		Use:   "group-history",
		Short: "Build the history key shared by every agent in a group",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			peerKind, err := session.ParsePeerKind(kind)
			if err != nil {
				return err
			}
			key := session.BuildGroupHistoryKey(session.GroupHistoryParams{
				Channel:   channel,
				AccountID: accountID,
				PeerKind:  peerKind,
				PeerID:    peerID,
			})
			_, err = fmt.Fprintln(cmd.OutOrStdout(), key)
			return err
		},
	}
	cmd.Flags().StringVar(&channel, "channel", "", "channel name")
	cmd.Flags().StringVar(&accountID, "account", "", "channel account id")
	cmd.Flags().StringVar(&kind, "kind", "group", "peer kind (group, channel)")
	cmd.Flags().StringVar(&peerID, "peer", "", "group or channel id")
	return cmd
}

func newKeyThreadCmd() *cobra.Command {
	var (
		parent   string
		noSuffix bool
	)
	cmd := &cobra.Command{
		Use:   "thread <base-key> <thread-id>",
		Short: "Derive the session key of a thread",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			keys := session.ResolveThreadSessionKeys(session.ThreadKeyParams{
				BaseSessionKey:   args[0],
				ThreadID:         args[1],
				ParentSessionKey: parent,
				DisableSuffix:    noSuffix || !appConfig.Session.ThreadSuffix,
			})
			return writeJSON(cmd.OutOrStdout(), map[string]string{
				"session_key":        keys.SessionKey,
				"parent_session_key": keys.ParentSessionKey,
			})
		},
	}
	cmd.Flags().StringVar(&parent, "parent", "", "parent session key to record")
	cmd.Flags().BoolVar(&noSuffix, "no-suffix", false, "keep the base key instead of appending the thread id")
	return cmd
}

func newKeyParentCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "parent <session-key>",
		Short: "Print the parent of a thread or topic session key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			parent, ok := session.ResolveThreadParentSessionKey(args[0])
			if !ok {
				return fmt.Errorf("%s has no thread parent", strings.TrimSpace(args[0]))
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), parent)
			return err
		},
	}
}

func newKeyStoreCmd() *cobra.Command {
	var agentID string
	cmd := &cobra.Command{
		Use:   "store <request-key>",
		Short: "Convert a request key into the agent-prefixed store key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if agentID == "" {
				agentID = appConfig.DefaultAgentID()
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), session.ToAgentStoreSessionKey(agentID, args[0], appConfig.MainKeyFor(agentID)))
			return err
		},
	}
	cmd.Flags().StringVar(&agentID, "agent", "", "agent id (default is the configured default agent)")
	return cmd
}

func newKeySubagentCmd() *cobra.Command {
	var agentID string
	cmd := &cobra.Command{
		Use:   "subagent",
		Short: "Allocate a session key for a spawned subagent run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if agentID == "" {
				agentID = appConfig.DefaultAgentID()
			}
			key, err := session.BuildSubagentSessionKey(agentID)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), key)
			return err
		},
	}
	cmd.Flags().StringVar(&agentID, "agent", "", "parent agent id (default is the configured default agent)")
	return cmd
}
