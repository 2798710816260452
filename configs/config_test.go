package configs

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
crawler:
  threshold: 5
  fetch_timeout: 2s
search:
  title_boost: 2
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Crawler.Threshold)
	assert.Equal(t, 2*time.Second, cfg.Crawler.FetchTimeout)
	assert.Equal(t, 2.0, cfg.Search.TitleBoost)
	assert.Equal(t, 4, cfg.Crawler.Workers, "untouched keys keep defaults")
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestLoadShippedConfig(t *testing.T) {
	cfg, err := Load("config.yaml")
	require.NoError(t, err)
	assert.True(t, cfg.Crawler.RespectRobots)
	assert.Equal(t, "index/badger", cfg.Storage.Path)
}

func TestLoadRejectsBrokenFiles(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("crawler: ["), 0o644))
	_, err = Load(path)
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(path, []byte("crawler:\n  workers: 0\n"), 0o644))
	_, err = Load(path)
	assert.EqualError(t, err, "field Crawler.Workers less than min")
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"SPYGLASS_DB_PATH":   "/tmp/db",
		"SPYGLASS_HTTP_PORT": "9000",
		"SPYGLASS_THRESHOLD": "12",
		"SPYGLASS_WORKERS":   "",
		"SPYGLASS_RATE":      "0",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}
	cfg := DefaultConfig()
	require.NoError(t, cfg.applyEnv(lookup))
	assert.Equal(t, "/tmp/db", cfg.Storage.Path)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, 12, cfg.Crawler.Threshold)
	assert.Equal(t, 4, cfg.Crawler.Workers)
	assert.Equal(t, 0, cfg.Crawler.Rate)

	env["SPYGLASS_WORKERS"] = "many"
	assert.Error(t, DefaultConfig().applyEnv(lookup))
}

func TestLoadUsesEnvironment(t *testing.T) {
	t.Setenv("SPYGLASS_THRESHOLD", "3")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Crawler.Threshold)
}

func TestStorageNeedsPathOrMemory(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Storage.Path = ""
	assert.Error(t, cfg.Validate())
	cfg.Storage.InMemory = true
	assert.NoError(t, cfg.Validate())
}

func TestValidator(t *testing.T) {
	type inner struct {
		Name string `check:"required,len=2:4"`
	}
	type sample struct {
		Count int     `check:"min=1,max=3"`
		Ratio float64 `check:"max=0.5"`
		Inner inner
	}
	v := New("check")

	assert.NoError(t, v.Validate(sample{Count: 2, Ratio: 0.5, Inner: inner{Name: "abc"}}))
	assert.EqualError(t, v.Validate(sample{Count: 0, Inner: inner{Name: "abc"}}), "field Count less than min")
	assert.EqualError(t, v.Validate(sample{Count: 4, Inner: inner{Name: "abc"}}), "field Count greater than max")
	assert.EqualError(t, v.Validate(sample{Count: 1, Ratio: 0.6, Inner: inner{Name: "abc"}}), "field Ratio greater than max")
	assert.EqualError(t, v.Validate(sample{Count: 1}), "required field is empty: Inner.Name")
	assert.EqualError(t, v.Validate(sample{Count: 1, Inner: inner{Name: "abcdef"}}), "field Inner.Name length not in range")
	assert.NoError(t, v.Validate(&sample{Count: 1, Inner: inner{Name: "ab"}}))

	type unknown struct {
		X int `check:"between=1"`
	}
	assert.EqualError(t, v.Validate(unknown{}), "unknown tag: between in field: X")
}
