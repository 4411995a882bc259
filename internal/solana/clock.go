package solana

import (
	"context"
	"errors"
	"fmt"
)

// maxSlotLookback bounds how many earlier slots ChainClock tries when the
// current slot has no block (skipped or not yet confirmed).
const maxSlotLookback = 8

// ErrNoBlockTime is returned when no recent slot has a block time.
var ErrNoBlockTime = errors.New("no block time for recent slots")

// ChainClock reads the cluster's notion of now: the block time of the most
// recent slot that produced a block.
type ChainClock struct {
	rpc RPCClient
}

// NewChainClock creates a clock backed by rpc.
func NewChainClock(rpc RPCClient) *ChainClock {
	return &ChainClock{rpc: rpc}
}

// Now returns the latest block time in Unix seconds.
func (c *ChainClock) Now(ctx context.Context) (int64, error) {
	slot, err := c.rpc.GetSlot(ctx)
	if err != nil {
		return 0, fmt.Errorf("get slot: %w", err)
	}

	var lastErr error
	for s := slot; s >= 0 && s > slot-maxSlotLookback; s-- {
		bt, err := c.rpc.GetBlockTime(ctx, s)
		if err != nil {
			var rpcErr *RPCError
			if !errors.As(err, &rpcErr) {
				return 0, fmt.Errorf("get block time of slot %d: %w", s, err)
			}
			// Skipped and unconfirmed slots are reported as RPC errors.
			lastErr = err
			continue
		}
		if bt != nil {
			return *bt, nil
		}
	}
	if lastErr != nil {
		return 0, fmt.Errorf("%w near slot %d: %v", ErrNoBlockTime, slot, lastErr)
	}
	return 0, fmt.Errorf("%w near slot %d", ErrNoBlockTime, slot)
}
