package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"TroveDesk/internal/loanview"
	"TroveDesk/internal/whitelabel"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.ListenAddress)
	assert.Equal(t, 10*time.Second, cfg.Subgraph.Timeout)
	assert.Equal(t, "zero_fill", cfg.Prices.PartialPolicy)
	assert.Equal(t, 5*time.Minute, cfg.Prices.TTL)
	assert.Equal(t, "0 */5 * * * *", cfg.Schedule.PriceCron)
	assert.Equal(t, "30 * * * * *", cfg.Schedule.IndexerCron)
	assert.Equal(t, whitelabel.GnosisChainID, cfg.Chain.ChainID)
	assert.False(t, cfg.TelegramEnabled())

	assert.ErrorContains(t, cfg.Validate(), "subgraph.url")
}

func TestLoadYAMLAndEnv(t *testing.T) {
	path := writeConfig(t, `
subgraph:
  url: https://indexer.example/graphql
  timeout: 3s
prices:
  partial_policy: strict
chain:
  coll_surplus_pools:
    1: "0x1111111111111111111111111111111111111111"
loan:
  explorers:
    - name: Explorer
      url: https://explorer.example/{branch}/{troveId}
`)
	t.Setenv("SUBGRAPH_URL", "https://override.example/graphql")
	t.Setenv("LISTEN_ADDRESS", ":9999")
	t.Setenv("TROVE_EXPLORER_1", "Second|https://second.example/{troveId}")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "https://override.example/graphql", cfg.Subgraph.URL)
	assert.Equal(t, 3*time.Second, cfg.Subgraph.Timeout)
	assert.Equal(t, ":9999", cfg.Server.ListenAddress)
	assert.Equal(t, "strict", cfg.Prices.PartialPolicy)
	assert.Equal(t, []loanview.Explorer{
		{Name: "Explorer", URL: "https://explorer.example/{branch}/{troveId}"},
		{Name: "Second", URL: "https://second.example/{troveId}"},
	}, cfg.Loan.Explorers)

	wl := cfg.WhiteLabel()
	assert.Equal(t, common.HexToAddress("0x1111111111111111111111111111111111111111"),
		wl.Collaterals[1].Deployments[whitelabel.GnosisChainID].CollSurplusPool)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg, err := Load("")
		require.NoError(t, err)
		cfg.Subgraph.URL = "https://indexer.example"
		return cfg
	}

	cfg := base()
	require.NoError(t, cfg.Validate())

	cfg = base()
	cfg.Prices.PartialPolicy = "lenient"
	assert.ErrorContains(t, cfg.Validate(), "partial_policy")

	cfg = base()
	cfg.Telegram.BotToken = "token"
	assert.ErrorContains(t, cfg.Validate(), "telegram")

	cfg = base()
	cfg.Chain.ChainID = 1
	assert.ErrorContains(t, cfg.Validate(), "chain_id")

	cfg = base()
	cfg.Chain.CollSurplusPools = map[int]string{0: "not-an-address"}
	assert.ErrorContains(t, cfg.Validate(), "coll_surplus_pools")
}

func TestRateLimitCanBeDisabled(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
server:
  rate_limit_rps: 0
`))
	require.NoError(t, err)
	assert.Equal(t, 10.0, cfg.Server.RateLimitRPS)

	cfg, err = Load(writeConfig(t, `
server:
  rate_limit_rps: 25
  rate_limit_disabled: true
`))
	require.NoError(t, err)
	assert.True(t, cfg.Server.RateLimitDisabled)
	assert.Zero(t, cfg.Server.RateLimitRPS)

	t.Setenv("RATE_LIMIT_DISABLED", "true")
	cfg, err = Load("")
	require.NoError(t, err)
	assert.Zero(t, cfg.Server.RateLimitRPS)
}

func TestParseInvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "subgraph: [unterminated"))
	assert.Error(t, err)
}
