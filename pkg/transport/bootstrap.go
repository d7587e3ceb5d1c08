package transport

import (
	"context"

	"github.com/vaultlink-protocol/vaultlink-go/pkg/protocol"
)

// bootstrapCommands prime the caller's vault model right after
// authentication, in this order.
var bootstrapCommands = []protocol.CommandName{
	protocol.CmdGetTree,
	protocol.CmdLoadTags,
	protocol.CmdLoadGraph,
}

// sender is the round-trip primitive both channel kinds share.
type sender func(ctx context.Context, cmd protocol.CommandName, payload map[string]any) (*protocol.Response, error)

// runBootstrap issues the bootstrap batch sequentially. Responses
// reach the caller through the message handler; the returned values
// are discarded here.
func runBootstrap(ctx context.Context, send sender) error {
	for _, cmd := range bootstrapCommands {
		if _, err := send(ctx, cmd, nil); err != nil {
			return err
		}
	}
	return nil
}
