// File: internal/config/config_test.go
package config

import (
	"bytes"
	"testing"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/inview/pkg/inview"
)

// -- Constructor and Defaults Tests --

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	// Verify a few key defaults to ensure the mechanism works.
	assert.Equal(t, "info", cfg.Logger().Level)
	assert.Equal(t, "inview", cfg.Logger().ServiceName)
	assert.True(t, cfg.Browser().Headless)
	assert.Equal(t, 60*time.Second, cfg.Browser().NavigationTimeout)
	assert.Equal(t, 250*time.Millisecond, cfg.Browser().PostLoadWait)
	assert.Equal(t, 15.0, cfg.Static().ScrollbarWidth)
	assert.Equal(t, 1280, cfg.Static().ViewportWidth)
	assert.Equal(t, "both", cfg.Query().Direction)
	assert.Equal(t, 4, cfg.Runner().Concurrency)
	assert.Equal(t, 2*time.Minute, cfg.Runner().JobTimeout)

	assert.NoError(t, cfg.Validate(), "defaults must be valid")
}

// -- Validation Logic Tests --

func TestConfigValidation(t *testing.T) {
	t.Run("Core Validation", func(t *testing.T) {
		cfg := NewDefaultConfig()

		cfgInvalidRunner := *cfg
		cfgInvalidRunner.RunnerCfg.Concurrency = 0
		err := cfgInvalidRunner.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "runner.concurrency must be a positive integer")

		cfgInvalidBurst := *cfg
		cfgInvalidBurst.RunnerCfg.Burst = 0
		err = cfgInvalidBurst.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "runner.burst")

		cfgUnlimited := *cfg
		cfgUnlimited.RunnerCfg.LoadsPerSecond = 0
		cfgUnlimited.RunnerCfg.Burst = 0
		assert.NoError(t, cfgUnlimited.Validate(), "burst is irrelevant without a rate limit")

		cfgInvalidBrowser := *cfg
		cfgInvalidBrowser.BrowserCfg.ViewportHeight = -1
		err = cfgInvalidBrowser.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "browser viewport must be positive")
	})

	t.Run("Static Validation", func(t *testing.T) {
		valid := StaticConfig{ViewportWidth: 800, ViewportHeight: 600, ScrollbarWidth: 0}
		assert.NoError(t, valid.Validate(), "overlay scrollbars are allowed")

		negative := valid
		negative.ScrollbarWidth = -1
		err := negative.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "scrollbar_width must not be negative")

		empty := valid
		empty.ViewportWidth = 0
		assert.Error(t, empty.Validate())
	})

	t.Run("Query Validation", func(t *testing.T) {
		cfg := NewDefaultConfig()
		cfg.SetQuery(QueryConfig{Direction: "diagonal"})
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "query configuration invalid")

		var argErr *inview.InvalidArgumentError
		assert.ErrorAs(t, err, &argErr)
	})
}

func TestQueryConfig_Options(t *testing.T) {
	opts, err := QueryConfig{Partially: true, Direction: "vertical", Box: "content-box", Tolerance: "5%"}.Options()
	require.NoError(t, err)
	assert.Equal(t, &inview.Options{
		Partially: true,
		Direction: inview.Vertical,
		Box:       inview.ContentBox,
		Tolerance: inview.Pct(5),
	}, opts)

	opts, err = QueryConfig{}.Options()
	require.NoError(t, err)
	assert.Equal(t, inview.Tolerance{}, opts.Tolerance)

	_, err = QueryConfig{Tolerance: "lots"}.Options()
	assert.Error(t, err)
}

// -- Factory Function Tests --

func TestNewConfigFromViper(t *testing.T) {
	t.Run("Successful Load from YAML", func(t *testing.T) {
		yamlBytes := []byte(`
static:
  viewport_width: 640
  body_scroll_reports_document: true
runner:
  concurrency: 2
query:
  tolerance: 12px
`)
		v := viper.New()
		SetDefaults(v)
		v.SetConfigType("yaml")
		require.NoError(t, v.ReadConfig(bytes.NewBuffer(yamlBytes)))

		cfg, err := NewConfigFromViper(v)
		require.NoError(t, err)

		assert.Equal(t, 640, cfg.Static().ViewportWidth)
		assert.Equal(t, 800, cfg.Static().ViewportHeight, "unset keys keep their default")
		assert.True(t, cfg.Static().BodyScrollReportsDocument)
		assert.Equal(t, 2, cfg.Runner().Concurrency)
		assert.Equal(t, "12px", cfg.Query().Tolerance)
		assert.Equal(t, "info", cfg.Logger().Level)
	})

	t.Run("Validation Failure", func(t *testing.T) {
		v := viper.New()
		SetDefaults(v)
		v.Set("runner.concurrency", 0)

		cfg, err := NewConfigFromViper(v)
		assert.Error(t, err)
		assert.Nil(t, cfg)
		assert.Contains(t, err.Error(), "invalid configuration")
		assert.Contains(t, err.Error(), "runner.concurrency must be a positive integer")
	})

	t.Run("Environment Variable Binding", func(t *testing.T) {
		v := viper.New()
		SetDefaults(v)
		v.SetConfigType("yaml")
		require.NoError(t, v.ReadConfig(bytes.NewBufferString("runner:\n  concurrency: 3\n")))

		t.Setenv("INVIEW_RUNNER_CONCURRENCY", "9")
		t.Setenv("INVIEW_BROWSER_HEADLESS", "false")
		BindEnv(v)

		cfg, err := NewConfigFromViper(v)
		require.NoError(t, err)
		assert.Equal(t, 9, cfg.Runner().Concurrency, "the environment overrides the config file")
		assert.False(t, cfg.Browser().Headless)
	})

	t.Run("Home Directory Expansion", func(t *testing.T) {
		v := viper.New()
		SetDefaults(v)
		v.Set("logger.log_file", "~/inview.log")

		cfg, err := NewConfigFromViper(v)
		require.NoError(t, err)

		want, err := homedir.Expand("~/inview.log")
		require.NoError(t, err)
		assert.Equal(t, want, cfg.Logger().LogFile)
		assert.NotContains(t, cfg.Logger().LogFile, "~")
	})
}

// -- Struct and Mapping Tests --

func TestConfigStructureMapping(t *testing.T) {
	yamlInput := `
logger:
  level: debug
  log_file: /var/log/app.log
  colors:
    info: green
browser:
  args: ["--disable-gpu", "--mute-audio"]
  navigation_timeout: 5s
`
	v := viper.New()
	SetDefaults(v)
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(bytes.NewBufferString(yamlInput)))

	var cfg Config
	require.NoError(t, v.Unmarshal(&cfg))

	assert.Equal(t, "debug", cfg.Logger().Level)
	assert.Equal(t, "/var/log/app.log", cfg.Logger().LogFile)
	assert.Equal(t, "green", cfg.Logger().Colors.Info)
	assert.Equal(t, 5*time.Second, cfg.Browser().NavigationTimeout)
	assert.Equal(t, []string{"--disable-gpu", "--mute-audio"}, cfg.Browser().Args)
}

func TestSetters(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.SetBrowserHeadless(false)
	cfg.SetBrowserUserAgent("probe/1.0")
	cfg.SetRunnerConcurrency(11)

	assert.False(t, cfg.Browser().Headless)
	assert.Equal(t, "probe/1.0", cfg.Browser().UserAgent)
	assert.Equal(t, 11, cfg.Runner().Concurrency)
}
