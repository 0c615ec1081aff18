package adminapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"ton-buy-tracker/internal/domain"
	"ton-buy-tracker/internal/marketdata"
	"ton-buy-tracker/internal/storage"
)

// ConfigBody is the JSON form of a watched configuration.
type ConfigBody struct {
	GroupID       int64   `json:"group_id"`
	Enabled       bool    `json:"enabled"`
	Approved      bool    `json:"approved"`
	TokenSymbol   *string `json:"token_symbol"`
	JettonAddress *string `json:"jetton_address"`
	StonfiPool    string  `json:"stonfi_pool,omitempty"`
	DedustPool    string  `json:"dedust_pool,omitempty"`
	MinBuyTON     float64 `json:"min_buy_ton"`
}

func toBody(c *domain.WatchedConfig) ConfigBody {
	b := ConfigBody{
		GroupID:       c.GroupID,
		Enabled:       c.Enabled,
		Approved:      c.Approved,
		TokenSymbol:   c.TokenSymbol,
		JettonAddress: c.JettonAddress,
		MinBuyTON:     c.MinBuyTON,
	}
	b.StonfiPool, _ = c.PoolAddress(domain.ExchangeSTONfi)
	b.DedustPool, _ = c.PoolAddress(domain.ExchangeDeDust)
	return b
}

func (b ConfigBody) toDomain(groupID int64) *domain.WatchedConfig {
	c := &domain.WatchedConfig{
		GroupID:   groupID,
		Enabled:   b.Enabled,
		Approved:  b.Approved,
		MinBuyTON: b.MinBuyTON,
	}
	if b.TokenSymbol != nil && strings.TrimSpace(*b.TokenSymbol) != "" {
		sym := domain.SafeSymbol(*b.TokenSymbol)
		c.TokenSymbol = &sym
	}
	if b.JettonAddress != nil && strings.TrimSpace(*b.JettonAddress) != "" {
		addr := strings.TrimSpace(*b.JettonAddress)
		c.JettonAddress = &addr
	}
	c.SetPool(domain.ExchangeSTONfi, strings.TrimSpace(b.StonfiPool))
	c.SetPool(domain.ExchangeDeDust, strings.TrimSpace(b.DedustPool))
	return c
}

// HandleConfigList returns all configurations.
func (c *Controller) HandleConfigList(w http.ResponseWriter, r *http.Request) {
	cfgs, err := c.Configs.List(r.Context())
	if err != nil {
		c.storageError(w, "list", err)
		return
	}
	out := make([]ConfigBody, 0, len(cfgs))
	for _, cfg := range cfgs {
		out = append(out, toBody(cfg))
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleConfigGet returns one configuration.
func (c *Controller) HandleConfigGet(w http.ResponseWriter, r *http.Request) {
	id, err := groupIDFromPath(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid group id")
		return
	}
	cfg, err := c.Configs.Get(r.Context(), id)
	if err != nil {
		c.storageError(w, "get", err)
		return
	}
	writeJSON(w, http.StatusOK, toBody(cfg))
}

// HandleConfigPut creates or replaces a configuration.
func (c *Controller) HandleConfigPut(w http.ResponseWriter, r *http.Request) {
	id, err := groupIDFromPath(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid group id")
		return
	}

	var body ConfigBody
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body: "+err.Error())
		return
	}

	cfg := body.toDomain(id)
	if err := c.Configs.Upsert(r.Context(), cfg); err != nil {
		c.storageError(w, "upsert", err)
		return
	}
	c.Logger.Info("config updated", zap.Int64("group_id", id), zap.Bool("enabled", cfg.Enabled))
	writeJSON(w, http.StatusOK, toBody(cfg))
}

type autofillRequest struct {
	JettonAddress string `json:"jetton_address"`
}

// HandleAutofill fills symbol and pool addresses from market data. The jetton
// comes from the body when given, else from the stored configuration.
func (c *Controller) HandleAutofill(w http.ResponseWriter, r *http.Request) {
	id, err := groupIDFromPath(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid group id")
		return
	}

	var req autofillRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid body: "+err.Error())
			return
		}
	}

	cfg, err := c.Configs.Get(r.Context(), id)
	switch {
	case errors.Is(err, storage.ErrNotFound) && req.JettonAddress != "":
		cfg = &domain.WatchedConfig{GroupID: id}
	case err != nil:
		c.storageError(w, "get", err)
		return
	}

	if j := strings.TrimSpace(req.JettonAddress); j != "" {
		if err := domain.ValidateAddress(j); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		cfg.JettonAddress = &j
	}
	if cfg.JettonAddress == nil || *cfg.JettonAddress == "" {
		writeError(w, http.StatusBadRequest, "jetton address is not set")
		return
	}

	m := c.Metrics.GetOrFetch(r.Context(), *cfg.JettonAddress, marketdata.SetupTTL)
	if m != nil {
		if m.Symbol != nil && strings.TrimSpace(*m.Symbol) != "" {
			sym := domain.SafeSymbol(*m.Symbol)
			cfg.TokenSymbol = &sym
		}
		for _, ex := range domain.Exchanges() {
			if pool, ok := m.Pool(ex); ok {
				cfg.SetPool(ex, pool)
			}
		}
	}

	if err := c.Configs.Upsert(r.Context(), cfg); err != nil {
		c.storageError(w, "upsert", err)
		return
	}
	c.Logger.Info("config autofilled", zap.Int64("group_id", id), zap.Int("pools", len(cfg.Pools)))
	writeJSON(w, http.StatusOK, toBody(cfg))
}
