package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"ton-buy-tracker/internal/domain"
)

// Seed is the YAML document of watched configurations.
type Seed struct {
	Groups []SeedGroup `yaml:"groups"`
}

// SeedGroup is one watched configuration in a seed file.
type SeedGroup struct {
	GroupID       int64   `yaml:"group_id"`
	Enabled       *bool   `yaml:"enabled"`
	Approved      bool    `yaml:"approved"`
	TokenSymbol   string  `yaml:"token_symbol"`
	JettonAddress string  `yaml:"jetton_address"`
	StonfiPool    string  `yaml:"stonfi_pool"`
	DedustPool    string  `yaml:"dedust_pool"`
	MinBuyTON     string  `yaml:"min_buy_ton"` // plain or quoted number
}

// LoadSeed reads and validates a seed file.
func LoadSeed(path string) ([]*domain.WatchedConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}
	return ParseSeed(data)
}

// ParseSeed decodes a seed document. Every entry is validated; the first
// invalid one fails the whole seed.
func ParseSeed(data []byte) ([]*domain.WatchedConfig, error) {
	var seed Seed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("failed to parse seed: %w", err)
	}

	seen := make(map[int64]bool, len(seed.Groups))
	out := make([]*domain.WatchedConfig, 0, len(seed.Groups))
	for i, g := range seed.Groups {
		if seen[g.GroupID] {
			return nil, fmt.Errorf("seed entry %d: %w: duplicate group id %d", i, domain.ErrInvalidConfiguration, g.GroupID)
		}
		seen[g.GroupID] = true

		cfg, err := g.toDomain()
		if err == nil {
			err = cfg.Validate()
		}
		if err != nil {
			return nil, fmt.Errorf("seed entry %d (group %d): %w", i, g.GroupID, err)
		}
		out = append(out, cfg)
	}
	return out, nil
}

func (g SeedGroup) toDomain() (*domain.WatchedConfig, error) {
	cfg := &domain.WatchedConfig{
		GroupID:  g.GroupID,
		Enabled:  g.Enabled == nil || *g.Enabled,
		Approved: g.Approved,
	}
	if raw := strings.TrimSpace(g.MinBuyTON); raw != "" {
		v, err := domain.ParseMinBuy(raw)
		if err != nil {
			return nil, err
		}
		cfg.MinBuyTON = v
	}
	if s := strings.TrimSpace(g.TokenSymbol); s != "" {
		sym := domain.SafeSymbol(s)
		cfg.TokenSymbol = &sym
	}
	if a := strings.TrimSpace(g.JettonAddress); a != "" {
		cfg.JettonAddress = &a
	}
	cfg.SetPool(domain.ExchangeSTONfi, strings.TrimSpace(g.StonfiPool))
	cfg.SetPool(domain.ExchangeDeDust, strings.TrimSpace(g.DedustPool))
	return cfg, nil
}
