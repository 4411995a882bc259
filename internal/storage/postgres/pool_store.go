package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"solana-vesting/internal/domain"
	"solana-vesting/internal/storage"
)

// PoolStore implements storage.PoolStore using PostgreSQL.
type PoolStore struct {
	db querier
}

// NewPoolStore creates a new PoolStore.
func NewPoolStore(pool *Pool) *PoolStore {
	return &PoolStore{db: pool}
}

// Compile-time interface check.
var _ storage.PoolStore = (*PoolStore)(nil)

const poolColumns = `address, company_name, owner, mint, decimals, custody_account, pool_bump, custody_bump, created_at`

// Insert adds a new pool. Returns ErrDuplicateKey if address or company name exists.
func (s *PoolStore) Insert(ctx context.Context, p *domain.VestingPool) error {
	if p == nil || p.Address == "" || p.CompanyName == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO vesting_pools (` + poolColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := s.db.Exec(ctx, query,
		p.Address,
		p.CompanyName,
		p.Owner,
		p.Mint,
		int16(p.Decimals),
		p.CustodyAccount,
		int16(p.PoolBump),
		int16(p.CustodyBump),
		p.CreatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert pool: %w", err)
	}
	return nil
}

// GetByAddress retrieves a pool by its derived address. Returns ErrNotFound if not exists.
func (s *PoolStore) GetByAddress(ctx context.Context, address string) (*domain.VestingPool, error) {
	query := `SELECT ` + poolColumns + ` FROM vesting_pools WHERE address = $1`

	p, err := scanPool(s.db.QueryRow(ctx, query, address))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get pool by address: %w", err)
	}
	return p, nil
}

// GetByCompany retrieves a pool by company name. Returns ErrNotFound if not exists.
func (s *PoolStore) GetByCompany(ctx context.Context, companyName string) (*domain.VestingPool, error) {
	query := `SELECT ` + poolColumns + ` FROM vesting_pools WHERE company_name = $1`

	p, err := scanPool(s.db.QueryRow(ctx, query, companyName))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get pool by company: %w", err)
	}
	return p, nil
}

// List retrieves all pools, ordered by company name ASC.
func (s *PoolStore) List(ctx context.Context) ([]*domain.VestingPool, error) {
	query := `SELECT ` + poolColumns + ` FROM vesting_pools ORDER BY company_name ASC`

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list pools: %w", err)
	}
	defer rows.Close()

	var pools []*domain.VestingPool
	for rows.Next() {
		p, err := scanPool(rows)
		if err != nil {
			return nil, fmt.Errorf("scan pool row: %w", err)
		}
		pools = append(pools, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pool rows: %w", err)
	}
	return pools, nil
}

// scanPool scans a single row into a VestingPool.
func scanPool(row pgx.Row) (*domain.VestingPool, error) {
	var p domain.VestingPool
	var decimals, poolBump, custodyBump int16

	err := row.Scan(
		&p.Address,
		&p.CompanyName,
		&p.Owner,
		&p.Mint,
		&decimals,
		&p.CustodyAccount,
		&poolBump,
		&custodyBump,
		&p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	p.Decimals = uint8(decimals)
	p.PoolBump = uint8(poolBump)
	p.CustodyBump = uint8(custodyBump)
	return &p, nil
}
