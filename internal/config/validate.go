package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
)

// Validate checks that the settings a command needs are present.
// Modes: "sync", "reclassify", "backfill", "migrate", "serve", "status".
func (c *Config) Validate(mode string) error {
	var problems []string
	need := func(ok bool, msg string) {
		if !ok {
			problems = append(problems, msg)
		}
	}

	switch mode {
	case "sync":
		need(c.Store.DatabaseURL != "", "store.database_url is required")
		need(c.Feed.Host != "", "feed.host is required")
		need(c.Feed.InventoryFile != "", "feed.inventory_file is required")
		need(c.Search.BaseURL != "", "search.base_url is required")
		need(c.Search.Index != "", "search.index is required")
		need(c.Search.BatchSize > 0 && c.Search.BatchSize <= 1000, "search.batch_size must be between 1 and 1000")
		need(c.Sync.Workers > 0, "sync.workers must be positive")
		need(c.Sync.StallThreshold > c.Sync.MonitorInterval, "sync.stall_threshold must exceed sync.monitor_interval")
		c.validatePricing(need)
		c.validateStateDriver(need)
	case "reclassify", "backfill", "migrate":
		need(c.Store.DatabaseURL != "", "store.database_url is required")
	case "status":
		c.validateStateDriver(need)
	case "serve":
		need(c.Server.Port > 0 && c.Server.Port < 65536, fmt.Sprintf("server.port %d is out of range", c.Server.Port))
		c.validateStateDriver(need)
	default:
		return eris.Errorf("config: unknown validation mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
}

func (c *Config) validatePricing(need func(bool, string)) {
	need(c.Pricing.Tier3Markup >= 1.02 && c.Pricing.Tier3Markup <= 1.15, "pricing.tier3_markup must be between 1.02 and 1.15")
	need(c.Pricing.MAPFallbackRatio > 0 && c.Pricing.MAPFallbackRatio <= 1, "pricing.map_fallback_ratio must be in (0, 1]")
}

func (c *Config) validateStateDriver(need func(bool, string)) {
	switch c.Sync.StateDriver {
	case "sqlite":
		need(c.Sync.StatePath != "", "sync.state_path is required for the sqlite state driver")
	case "postgres":
		need(c.Store.DatabaseURL != "", "store.database_url is required for the postgres state driver")
	default:
		need(false, fmt.Sprintf("sync.state_driver %q is not supported", c.Sync.StateDriver))
	}
}
