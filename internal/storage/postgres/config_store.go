package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"ton-buy-tracker/internal/domain"
	"ton-buy-tracker/internal/storage"
)

// ConfigStore is a PostgreSQL implementation of storage.ConfigStore backed by watched_configs.
// Pools are stored in one nullable column per exchange.
type ConfigStore struct {
	pool *Pool
}

// NewConfigStore creates a new PostgreSQL configuration store.
func NewConfigStore(pool *Pool) *ConfigStore {
	return &ConfigStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ConfigStore = (*ConfigStore)(nil)

const selectConfigs = `
	SELECT group_id, enabled, approved, token_symbol, jetton_address,
	       stonfi_pool, dedust_pool, min_buy_ton
	FROM watched_configs
`

// ListEnabled returns enabled configurations ordered by group id.
func (s *ConfigStore) ListEnabled(ctx context.Context) ([]*domain.WatchedConfig, error) {
	rows, err := s.pool.Query(ctx, selectConfigs+` WHERE enabled ORDER BY group_id`)
	if err != nil {
		return nil, fmt.Errorf("list enabled configs: %w", err)
	}
	defer rows.Close()
	return scanConfigs(rows)
}

// List returns all configurations ordered by group id.
func (s *ConfigStore) List(ctx context.Context) ([]*domain.WatchedConfig, error) {
	rows, err := s.pool.Query(ctx, selectConfigs+` ORDER BY group_id`)
	if err != nil {
		return nil, fmt.Errorf("list configs: %w", err)
	}
	defer rows.Close()
	return scanConfigs(rows)
}

// Get retrieves a configuration by group id. Returns ErrNotFound if not exists.
func (s *ConfigStore) Get(ctx context.Context, groupID int64) (*domain.WatchedConfig, error) {
	row := s.pool.QueryRow(ctx, selectConfigs+` WHERE group_id = $1`, groupID)
	c, err := scanConfig(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get config: %w", err)
	}
	return c, nil
}

// Upsert validates and stores a configuration.
func (s *ConfigStore) Upsert(ctx context.Context, c *domain.WatchedConfig) error {
	if err := c.Validate(); err != nil {
		return err
	}

	stonfi := poolColumn(c, domain.ExchangeSTONfi)
	dedust := poolColumn(c, domain.ExchangeDeDust)

	_, err := s.pool.Exec(ctx, `
		INSERT INTO watched_configs (
			group_id, enabled, approved, token_symbol, jetton_address,
			stonfi_pool, dedust_pool, min_buy_ton, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		ON CONFLICT (group_id) DO UPDATE
		SET enabled = EXCLUDED.enabled,
		    approved = EXCLUDED.approved,
		    token_symbol = EXCLUDED.token_symbol,
		    jetton_address = EXCLUDED.jetton_address,
		    stonfi_pool = EXCLUDED.stonfi_pool,
		    dedust_pool = EXCLUDED.dedust_pool,
		    min_buy_ton = EXCLUDED.min_buy_ton,
		    updated_at = NOW()
	`, c.GroupID, c.Enabled, c.Approved, c.TokenSymbol, c.JettonAddress, stonfi, dedust, c.MinBuyTON)
	if err != nil {
		return fmt.Errorf("upsert config: %w", err)
	}
	return nil
}

func poolColumn(c *domain.WatchedConfig, ex domain.Exchange) *string {
	if addr, ok := c.PoolAddress(ex); ok {
		return &addr
	}
	return nil
}

func scanConfig(row pgx.Row) (*domain.WatchedConfig, error) {
	var (
		c              domain.WatchedConfig
		stonfi, dedust *string
	)
	err := row.Scan(&c.GroupID, &c.Enabled, &c.Approved, &c.TokenSymbol, &c.JettonAddress,
		&stonfi, &dedust, &c.MinBuyTON)
	if err != nil {
		return nil, err
	}
	c.Pools = make(map[domain.Exchange]string)
	if stonfi != nil {
		c.SetPool(domain.ExchangeSTONfi, *stonfi)
	}
	if dedust != nil {
		c.SetPool(domain.ExchangeDeDust, *dedust)
	}
	return &c, nil
}

func scanConfigs(rows pgx.Rows) ([]*domain.WatchedConfig, error) {
	var result []*domain.WatchedConfig
	for rows.Next() {
		c, err := scanConfig(rows)
		if err != nil {
			return nil, fmt.Errorf("scan config: %w", err)
		}
		result = append(result, c)
	}
	return result, rows.Err()
}
