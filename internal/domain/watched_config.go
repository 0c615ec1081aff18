package domain

// WatchedConfig is the per-group watch configuration.
// Corresponds to watched_configs table in PostgreSQL.
type WatchedConfig struct {
	GroupID       int64               // PK, Telegram chat id of the group
	Enabled       bool                // polling enabled
	Approved      bool                // owner approval flag
	TokenSymbol   *string             // display symbol (nullable)
	JettonAddress *string             // jetton master address (nullable)
	Pools         map[Exchange]string // pool address per exchange
	MinBuyTON     float64             // minimum buy size in TON
}

// PoolAddress returns the configured pool for an exchange, if any.
func (c *WatchedConfig) PoolAddress(ex Exchange) (string, bool) {
	if c == nil || c.Pools == nil {
		return "", false
	}
	addr, ok := c.Pools[ex]
	return addr, ok && addr != ""
}

// SetPool sets or clears (empty address) the pool for an exchange.
func (c *WatchedConfig) SetPool(ex Exchange, addr string) {
	if c.Pools == nil {
		c.Pools = make(map[Exchange]string)
	}
	if addr == "" {
		delete(c.Pools, ex)
		return
	}
	c.Pools[ex] = addr
}

// LeaderboardKey returns the key this configuration's buys are ranked under.
func (c *WatchedConfig) LeaderboardKey() string {
	return LeaderboardKey(c.TokenSymbol, c.JettonAddress)
}

// Clone returns a deep copy.
func (c *WatchedConfig) Clone() *WatchedConfig {
	if c == nil {
		return nil
	}
	out := *c
	out.TokenSymbol = cloneString(c.TokenSymbol)
	out.JettonAddress = cloneString(c.JettonAddress)
	out.Pools = make(map[Exchange]string, len(c.Pools))
	for k, v := range c.Pools {
		out.Pools[k] = v
	}
	return &out
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
