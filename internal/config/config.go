package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"TroveDesk/internal/collector"
	"TroveDesk/internal/loanview"
	"TroveDesk/internal/whitelabel"

	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Service struct {
		Name string `yaml:"name"`
		Env  string `yaml:"env"`
	} `yaml:"service"`
	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
	Server struct {
		ListenAddress string `yaml:"listen_address"`
		// RateLimitRPS defaults to 10 when unset. RateLimitDisabled turns
		// the per-client limiter off and forces RateLimitRPS to 0.
		RateLimitRPS      float64       `yaml:"rate_limit_rps"`
		RateLimitBurst    int           `yaml:"rate_limit_burst"`
		RateLimitDisabled bool          `yaml:"rate_limit_disabled"`
		ShutdownTimeout   time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Subgraph struct {
		URL     string        `yaml:"url"`
		Timeout time.Duration `yaml:"timeout"`
	} `yaml:"subgraph"`
	Chain struct {
		ChainID          int            `yaml:"chain_id"`
		RPCURL           string         `yaml:"rpc_url"`
		OwnerIndexScan   int            `yaml:"owner_index_scan"`
		PageSize         int            `yaml:"page_size"`
		CollSurplusPools map[int]string `yaml:"coll_surplus_pools"`
	} `yaml:"chain"`
	Prices struct {
		CoinGeckoURL  string        `yaml:"coingecko_url"`
		PartialPolicy string        `yaml:"partial_policy"`
		TTL           time.Duration `yaml:"ttl"`
	} `yaml:"prices"`
	Schedule struct {
		PriceCron   string `yaml:"price_cron"`
		IndexerCron string `yaml:"indexer_cron"`
	} `yaml:"schedule"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Loan struct {
		Explorers []loanview.Explorer `yaml:"explorers"`
	} `yaml:"loan"`
	Proxy string `yaml:"proxy"`
}

// Load reads config from a YAML file, then applies environment variable
// overrides and defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if len(data) > 0 {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("SUBGRAPH_URL"); v != "" {
		c.Subgraph.URL = v
	}
	if v := os.Getenv("RPC_URL"); v != "" {
		c.Chain.RPCURL = v
	}
	if v := os.Getenv("COINGECKO_URL"); v != "" {
		c.Prices.CoinGeckoURL = v
	}
	if v := os.Getenv("PRICE_PARTIAL_POLICY"); v != "" {
		c.Prices.PartialPolicy = v
	}
	if v := os.Getenv("LISTEN_ADDRESS"); v != "" {
		c.Server.ListenAddress = v
	}
	if os.Getenv("RATE_LIMIT_DISABLED") == "true" {
		c.Server.RateLimitDisabled = true
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		c.Database.SQLitePath = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		c.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		c.Telegram.ChatID = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		c.Proxy = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	for i, name := range []string{"TROVE_EXPLORER_0", "TROVE_EXPLORER_1"} {
		if v := os.Getenv(name); v != "" {
			if e, ok := parseExplorer(v); ok {
				c.setExplorer(i, e)
			}
		}
	}
}

// parseExplorer reads "name|url".
func parseExplorer(v string) (loanview.Explorer, bool) {
	name, url, ok := strings.Cut(v, "|")
	if !ok || strings.TrimSpace(url) == "" {
		return loanview.Explorer{}, false
	}
	return loanview.Explorer{Name: strings.TrimSpace(name), URL: strings.TrimSpace(url)}, true
}

func (c *Config) setExplorer(i int, e loanview.Explorer) {
	for len(c.Loan.Explorers) <= i {
		c.Loan.Explorers = append(c.Loan.Explorers, loanview.Explorer{})
	}
	c.Loan.Explorers[i] = e
}

func (c *Config) applyDefaults() {
	if c.Service.Name == "" {
		c.Service.Name = "trovedesk"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Server.ListenAddress == "" {
		c.Server.ListenAddress = ":8080"
	}
	if c.Server.RateLimitDisabled {
		c.Server.RateLimitRPS = 0
	} else if c.Server.RateLimitRPS == 0 {
		c.Server.RateLimitRPS = 10
	}
	if c.Server.RateLimitBurst == 0 {
		c.Server.RateLimitBurst = 20
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 5 * time.Second
	}
	if c.Subgraph.Timeout == 0 {
		c.Subgraph.Timeout = 10 * time.Second
	}
	if c.Chain.ChainID == 0 {
		c.Chain.ChainID = whitelabel.GnosisChainID
	}
	if c.Chain.OwnerIndexScan == 0 {
		c.Chain.OwnerIndexScan = 10
	}
	if c.Chain.PageSize == 0 {
		c.Chain.PageSize = 1000
	}
	if c.Prices.CoinGeckoURL == "" {
		c.Prices.CoinGeckoURL = collector.DefaultCoinGeckoURL
	}
	if c.Prices.PartialPolicy == "" {
		c.Prices.PartialPolicy = string(collector.PolicyZeroFill)
	}
	if c.Prices.TTL == 0 {
		c.Prices.TTL = collector.DefaultTTL
	}
	if c.Schedule.PriceCron == "" {
		c.Schedule.PriceCron = "0 */5 * * * *"
	}
	if c.Schedule.IndexerCron == "" {
		c.Schedule.IndexerCron = "30 * * * * *"
	}
	if c.Database.SQLitePath == "" {
		c.Database.SQLitePath = "data/trovedesk.db"
	}
}

// Validate checks that all required fields are set and consistent.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Subgraph.URL) == "" {
		return fmt.Errorf("subgraph.url is required")
	}
	if c.Subgraph.Timeout < 0 {
		return fmt.Errorf("subgraph.timeout must not be negative")
	}
	if _, err := collector.ParsePartialPolicy(c.Prices.PartialPolicy); err != nil {
		return fmt.Errorf("prices.partial_policy: %w", err)
	}
	if c.Prices.TTL < 0 {
		return fmt.Errorf("prices.ttl must not be negative")
	}
	if c.Server.RateLimitRPS < 0 || c.Server.RateLimitBurst < 0 {
		return fmt.Errorf("server rate limits must not be negative")
	}
	if _, err := whitelabel.Default.Branches(c.Chain.ChainID); err != nil {
		return fmt.Errorf("chain.chain_id: %w", err)
	}
	if c.Chain.OwnerIndexScan < 0 {
		return fmt.Errorf("chain.owner_index_scan must not be negative")
	}
	for branch, addr := range c.Chain.CollSurplusPools {
		if _, ok := whitelabel.Default.CollateralByBranch(branch); !ok {
			return fmt.Errorf("chain.coll_surplus_pools: unknown branch %d", branch)
		}
		if !common.IsHexAddress(addr) {
			return fmt.Errorf("chain.coll_surplus_pools[%d]: invalid address %q", branch, addr)
		}
	}
	if (c.Telegram.BotToken == "") != (c.Telegram.ChatID == "") {
		return fmt.Errorf("telegram.bot_token and telegram.chat_id must be set together")
	}
	return nil
}

// TelegramEnabled reports whether the notifier should run.
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != ""
}

// WhiteLabel returns the deployment table with configured overrides applied.
func (c *Config) WhiteLabel() whitelabel.Config {
	if len(c.Chain.CollSurplusPools) == 0 {
		return whitelabel.Default
	}
	pools := make(map[int]common.Address, len(c.Chain.CollSurplusPools))
	for branch, addr := range c.Chain.CollSurplusPools {
		pools[branch] = common.HexToAddress(addr)
	}
	return whitelabel.Default.WithCollSurplusPools(c.Chain.ChainID, pools)
}
