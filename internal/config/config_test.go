// File: internal/config/config_test.go
package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	assert.Equal(t, "info", cfg.Logger().Level)
	assert.Equal(t, "console", cfg.Logger().Format)
	assert.Equal(t, "formloop", cfg.Logger().ServiceName)

	assert.True(t, cfg.Browser().Headless)
	assert.Equal(t, 30*time.Second, cfg.Browser().StartupTimeout)
	assert.Equal(t, 1920, cfg.Browser().Viewport["width"])
	assert.Equal(t, 1080, cfg.Browser().Viewport["height"])

	assert.Equal(t, 10, cfg.Run().BatchSize)
	assert.Equal(t, 13, cfg.Run().Columns)
	assert.Equal(t, 10*time.Second, cfg.Run().ActionTimeout)
	assert.Equal(t, 250*time.Millisecond, cfg.Run().PollInterval)
	assert.Equal(t, 2*time.Second, cfg.Run().BatchPause)
	assert.Equal(t, 5, cfg.Run().MaxNavHops)
	assert.Equal(t, "actions", cfg.Run().ActionsDir)

	assert.Equal(t, "https://www.toto-dream.com/toto/index.html", cfg.Site().StartURL)
	assert.Equal(t, "select_round", cfg.Site().Navigation["round_select"])
	assert.Equal(t, "return_to_form", cfg.Site().Navigation["cart"])
	assert.Equal(t, "submit_form", cfg.Site().Submit)
	assert.Equal(t, "next_batch", cfg.Site().NextBatch)

	assert.Equal(t, time.Second, cfg.Recorder().WaitAfter)
	assert.Equal(t, 3, cfg.Recorder().Retries)

	require.NoError(t, cfg.Validate(), "defaults must pass validation")
}

func TestNewConfigFromViper_Overrides(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.Set("run.batch_size", 4)
	v.Set("run.batch_pause", "500ms")
	v.Set("browser.headless", false)
	v.Set("site.navigation", map[string]string{"login": "do_login"})

	cfg, err := NewConfigFromViper(v)
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.Run().BatchSize)
	assert.Equal(t, 500*time.Millisecond, cfg.Run().BatchPause)
	assert.False(t, cfg.Browser().Headless)
	assert.Equal(t, "do_login", cfg.Site().Navigation["login"])
	// Untouched sections keep their defaults.
	assert.Equal(t, 13, cfg.Run().Columns)
}

func TestNewConfigFromViper_RejectsInvalid(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.Set("run.batch_size", 0)

	cfg, err := NewConfigFromViper(v)
	assert.Error(t, err)
	assert.Nil(t, cfg)
}

func TestValidate(t *testing.T) {
	mutate := func(fn func(*Config)) *Config {
		cfg := NewDefaultConfig()
		fn(cfg)
		return cfg
	}

	testCases := []struct {
		name    string
		cfg     *Config
		wantErr string
	}{
		{
			name:    "zero batch size",
			cfg:     mutate(func(c *Config) { c.RunCfg.BatchSize = 0 }),
			wantErr: "run.batch_size",
		},
		{
			name:    "negative columns",
			cfg:     mutate(func(c *Config) { c.RunCfg.Columns = -1 }),
			wantErr: "run.columns",
		},
		{
			name:    "zero action timeout",
			cfg:     mutate(func(c *Config) { c.RunCfg.ActionTimeout = 0 }),
			wantErr: "run.action_timeout",
		},
		{
			name:    "zero poll interval",
			cfg:     mutate(func(c *Config) { c.RunCfg.PollInterval = 0 }),
			wantErr: "run.poll_interval",
		},
		{
			name:    "zero nav hops",
			cfg:     mutate(func(c *Config) { c.RunCfg.MaxNavHops = 0 }),
			wantErr: "run.max_nav_hops",
		},
		{
			name:    "negative retries",
			cfg:     mutate(func(c *Config) { c.RunCfg.Retries = -1 }),
			wantErr: "run.retries",
		},
		{
			name:    "missing start url",
			cfg:     mutate(func(c *Config) { c.SiteCfg.StartURL = "" }),
			wantErr: "site.start_url",
		},
		{
			name:    "missing submit sequence",
			cfg:     mutate(func(c *Config) { c.SiteCfg.Submit = "" }),
			wantErr: "site.submit",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}

	t.Run("valid config passes", func(t *testing.T) {
		assert.NoError(t, NewDefaultConfig().Validate())
	})
}

func TestSettersMutateConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	rc := cfg.Run()
	rc.InputFile = "rows.csv"
	rc.DryRun = true
	cfg.SetRunConfig(rc)
	assert.Equal(t, "rows.csv", cfg.Run().InputFile)
	assert.True(t, cfg.Run().DryRun)

	cfg.SetBrowserHeadless(false)
	assert.False(t, cfg.Browser().Headless)

	cfg.SetBrowserIgnoreTLSErrors(true)
	assert.True(t, cfg.Browser().IgnoreTLSErrors)
}
