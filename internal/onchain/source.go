package onchain

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"solana-vesting/internal/domain"
	"solana-vesting/internal/pda"
)

// CompanySource reads the pools of a fixed set of companies from chain.
// It satisfies reporting.Source so reports can be built from deployed state.
type CompanySource struct {
	inspector *Inspector
	companies []string

	mu      sync.Mutex
	custody map[string]uint64 // pool address -> balance seen by ListPools
}

// NewCompanySource creates a source over companies.
func NewCompanySource(inspector *Inspector, companies []string) *CompanySource {
	return &CompanySource{
		inspector: inspector,
		companies: companies,
		custody:   make(map[string]uint64),
	}
}

// ListPools loads each company's pool. Companies without a pool are skipped.
func (s *CompanySource) ListPools(ctx context.Context) ([]*domain.VestingPool, error) {
	pools := make([]*domain.VestingPool, 0, len(s.companies))
	for _, company := range s.companies {
		state, err := s.inspector.Pool(ctx, company)
		if errors.Is(err, ErrAccountNotFound) {
			s.inspector.log.WithField("company", company).Warn("No on-chain pool for company")
			continue
		}
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		s.custody[state.Pool.Address] = state.CustodyBalance
		s.mu.Unlock()
		pools = append(pools, state.Pool)
	}
	return pools, nil
}

// ListSchedules lists the schedule accounts drawing from poolAddress.
func (s *CompanySource) ListSchedules(ctx context.Context, poolAddress string) ([]*domain.Schedule, error) {
	pool, err := pda.ParsePublicKey(poolAddress)
	if err != nil {
		return nil, fmt.Errorf("pool %q: %w", poolAddress, err)
	}
	return s.inspector.Schedules(ctx, pool)
}

// CustodyBalance returns the balance read alongside the pool by ListPools.
func (s *CompanySource) CustodyBalance(_ context.Context, poolAddress string) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	bal, ok := s.custody[poolAddress]
	if !ok {
		return 0, fmt.Errorf("pool %s: %w", poolAddress, ErrAccountNotFound)
	}
	return bal, nil
}
