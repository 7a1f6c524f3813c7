package cli

import (
	"github.com/harun/sessionkey/pkg/routing"
	"github.com/harun/sessionkey/pkg/session"
	"github.com/spf13/cobra"
)

func newRouteCmd() *cobra.Command {
	var in routing.InboundContext
	var kind string

	cmd := &cobra.Command{
		Use:   "route",
		Short: "Resolve an inbound message to an agent and its session keys",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			peerKind, err := session.ParsePeerKind(kind)
			if err != nil {
				return err
			}
			in.PeerKind = peerKind

			resolver, err := routing.NewResolver(appConfig)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), resolver.Resolve(in))
		},
	}
	cmd.Flags().StringVar(&in.Channel, "channel", "", "channel the message arrived on")
	cmd.Flags().StringVar(&in.AccountID, "account", "", "channel account id")
	cmd.Flags().StringVar(&kind, "kind", "dm", "peer kind (dm, group, channel)")
	cmd.Flags().StringVar(&in.PeerID, "peer", "", "peer id")
	cmd.Flags().StringVar(&in.ThreadID, "thread", "", "thread or topic id")
	return cmd
}
