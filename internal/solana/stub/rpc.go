// Package stub provides an in-memory solana.RPCClient for tests and offline tools.
package stub

import (
	"bytes"
	"context"
	"sort"
	"sync"

	"solana-vesting/internal/solana"
)

// RPCClient implements solana.RPCClient for testing.
type RPCClient struct {
	mu         sync.RWMutex
	accounts   map[string]*solana.AccountInfo
	slot       int64
	blockTimes map[int64]int64
}

// NewRPCClient creates a new stub RPC client.
func NewRPCClient() *RPCClient {
	return &RPCClient{
		accounts:   make(map[string]*solana.AccountInfo),
		blockTimes: make(map[int64]int64),
	}
}

// SetAccount stores an account under pubkey.
func (c *RPCClient) SetAccount(pubkey string, info *solana.AccountInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := *info
	cp.Data = append([]byte(nil), info.Data...)
	c.accounts[pubkey] = &cp
}

// SetSlot sets the current slot and the block time produced at it.
func (c *RPCClient) SetSlot(slot, blockTime int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.slot = slot
	c.blockTimes[slot] = blockTime
}

// SkipSlot advances the current slot without producing a block.
func (c *RPCClient) SkipSlot(slot int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.slot = slot
	delete(c.blockTimes, slot)
}

// GetAccountInfo returns the stored account, or nil.
func (c *RPCClient) GetAccountInfo(_ context.Context, pubkey string) (*solana.AccountInfo, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	info, ok := c.accounts[pubkey]
	if !ok {
		return nil, nil
	}
	cp := *info
	return &cp, nil
}

// GetProgramAccounts returns stored accounts owned by program that match
// every filter, ordered by pubkey.
func (c *RPCClient) GetProgramAccounts(_ context.Context, program string, filters ...solana.AccountFilter) ([]solana.ProgramAccount, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []solana.ProgramAccount
	for pubkey, info := range c.accounts {
		if info.Owner != program || !matches(info.Data, filters) {
			continue
		}
		out = append(out, solana.ProgramAccount{Pubkey: pubkey, Account: *info})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Pubkey < out[j].Pubkey })
	return out, nil
}

func matches(data []byte, filters []solana.AccountFilter) bool {
	for _, f := range filters {
		if f.DataSize != nil && uint64(len(data)) != *f.DataSize {
			return false
		}
		if m := f.Memcmp; m != nil {
			end := m.Offset + uint64(len(m.Bytes))
			if end > uint64(len(data)) || !bytes.Equal(data[m.Offset:end], m.Bytes) {
				return false
			}
		}
	}
	return true
}

// GetSlot returns the current slot.
func (c *RPCClient) GetSlot(context.Context) (int64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.slot, nil
}

// GetBlockTime returns the block time registered for slot, or nil when the slot
// was skipped.
func (c *RPCClient) GetBlockTime(_ context.Context, slot int64) (*int64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	bt, ok := c.blockTimes[slot]
	if !ok {
		return nil, nil
	}
	return &bt, nil
}
