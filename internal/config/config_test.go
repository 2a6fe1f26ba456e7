package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every variable Load reads so the host environment does not
// leak into tests.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"XBOTS_ADDR", "CRON_SECRET", "XBOTS_DB", "LOG_LEVEL", "LOG_FORMAT", "XBOTS_EVENTS",
		"LLM_PROVIDER", "LLM_MODEL", "GROQ_API_KEY", "ANTHROPIC_API_KEY", "GEMINI_API_KEY",
		"OPENWEATHERMAP_API_KEY", "X_APP_KEY", "X_APP_SECRET", "X_ACCESS_TOKEN", "X_ACCESS_SECRET",
		"X_CREDENTIALS_FORTUNE", "X_CREDENTIALS_NANAL", "X_CREDENTIALS_WEATHERFAIRY",
	} {
		t.Setenv(k, "")
	}
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
	require.NoError(t, cfg.Validate())
}

func TestDefaultConfig_Jobs(t *testing.T) {
	cfg := DefaultConfig()
	midnight, ok := cfg.Job("midnight")
	require.True(t, ok)
	assert.Equal(t, "00:00", midnight.At)
	assert.Equal(t, []string{BotWeatherFairy, BotNanal}, midnight.Bots)

	morning, ok := cfg.Job("morning")
	require.True(t, ok)
	assert.Equal(t, []string{BotFortune}, morning.Bots)

	_, ok = cfg.Job("noon")
	assert.False(t, ok)
}

func TestLoad_YAMLOverridesDefaults(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "xbots.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  addr: ":9090"
llm:
  provider: anthropic
  timeout: 15s
weather:
  cities:
    - name: 대구
      query: Daegu
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, "anthropic", cfg.LLM.Provider)
	assert.Equal(t, 15*time.Second, cfg.GetLLMTimeout())
	assert.Equal(t, []City{{Name: "대구", Query: "Daegu"}}, cfg.Weather.Cities)
	// Untouched sections keep their defaults.
	assert.Equal(t, "xbots.db", cfg.Database.Path)
}

func TestLoad_BadYAML(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "xbots.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [oops"), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("XBOTS_ADDR", ":7000")
	t.Setenv("CRON_SECRET", "s3cret")
	t.Setenv("XBOTS_DB", "/tmp/x.db")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("OPENWEATHERMAP_API_KEY", "owm")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":7000", cfg.Server.Addr)
	assert.Equal(t, "s3cret", cfg.Server.CronSecret)
	assert.Equal(t, "/tmp/x.db", cfg.Database.Path)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "owm", cfg.Weather.APIKey)
}

func TestEnvOverrides_ProviderKeys(t *testing.T) {
	t.Run("groq key with default provider", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("GROQ_API_KEY", "gsk")
		t.Setenv("GEMINI_API_KEY", "gem")
		cfg, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, "groq", cfg.LLM.Provider)
		assert.Equal(t, "gsk", cfg.LLM.APIKey)
	})

	t.Run("explicit provider picks its own key", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("LLM_PROVIDER", "Gemini")
		t.Setenv("GROQ_API_KEY", "gsk")
		t.Setenv("GEMINI_API_KEY", "gem")
		cfg, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, "gemini", cfg.LLM.Provider)
		assert.Equal(t, "gem", cfg.LLM.APIKey)
		assert.Equal(t, "", cfg.ModelFor(BotFortune))
	})

	t.Run("only anthropic key switches provider", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("ANTHROPIC_API_KEY", "ant")
		cfg, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, "anthropic", cfg.LLM.Provider)
		assert.Equal(t, "ant", cfg.LLM.APIKey)
	})
}

func TestEnvOverrides_Credentials(t *testing.T) {
	clearEnv(t)
	t.Setenv("X_APP_KEY", "k")
	t.Setenv("X_APP_SECRET", "s")
	t.Setenv("X_ACCESS_TOKEN", "t")
	t.Setenv("X_ACCESS_SECRET", "ts")
	t.Setenv("X_CREDENTIALS_NANAL", "a;b;c;d")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "a;b;c;d", cfg.Credentials(BotNanal))
	assert.Equal(t, "k;s;t;ts", cfg.Credentials(BotFortune))
	assert.Equal(t, "k;s;t;ts", cfg.Credentials(BotWeatherFairy))
}

func TestModelFor(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "openai/gpt-oss-120b", cfg.ModelFor(BotNanal))

	cfg.LLM.Models[BotFortune] = "meta-llama/llama-4-scout-17b-16e-instruct"
	assert.Equal(t, "meta-llama/llama-4-scout-17b-16e-instruct", cfg.ModelFor(BotFortune))
	assert.Equal(t, "openai/gpt-oss-120b", cfg.ModelFor(BotNanal))
}

func TestGetPostingInterval_FallsBack(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 1500*time.Millisecond, cfg.GetPostingInterval())
	cfg.Posting.Interval = "bogus"
	assert.Equal(t, 1500*time.Millisecond, cfg.GetPostingInterval())
	cfg.Posting.Interval = "0s"
	assert.Equal(t, time.Duration(0), cfg.GetPostingInterval())
}

func TestValidate_CollectsErrors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LLM.Provider = "openai"
	cfg.Posting.Interval = "soon"
	cfg.Schedule.Jobs = append(cfg.Schedule.Jobs,
		JobConfig{Name: "midnight", At: "24:30", Bots: []string{"horoscope"}})

	err := cfg.Validate()
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "invalid LLM provider")
	assert.Contains(t, msg, "posting.interval")
	assert.Contains(t, msg, `"midnight" defined twice`)
	assert.Contains(t, msg, `invalid time "24:30"`)
	assert.Contains(t, msg, `unknown bot "horoscope"`)
}

func TestParseClock(t *testing.T) {
	h, m, err := ParseClock("08:05")
	require.NoError(t, err)
	assert.Equal(t, 8, h)
	assert.Equal(t, 5, m)

	_, _, err = ParseClock("8am")
	assert.Error(t, err)
}

func TestSave_RoundTrip(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "sub", "xbots.yaml")
	cfg := DefaultConfig()
	cfg.Server.Addr = ":1234"
	require.NoError(t, cfg.Save(path))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":1234", got.Server.Addr)
	assert.Equal(t, cfg.Schedule, got.Schedule)
}
