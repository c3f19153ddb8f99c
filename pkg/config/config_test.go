package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.Crawl.PageSize != 30 {
		t.Errorf("Expected default page size to be 30, got %d", config.Crawl.PageSize)
	}

	if config.Crawl.FavoriteThreshold != -1 {
		t.Errorf("Expected default favorite threshold to be -1, got %d", config.Crawl.FavoriteThreshold)
	}

	if config.Crawl.QueueDepth != 0 {
		t.Errorf("Expected default queue depth to be 0, got %d", config.Crawl.QueueDepth)
	}

	if config.Plurk.BaseURL != "https://www.plurk.com" {
		t.Errorf("Expected default base URL, got %s", config.Plurk.BaseURL)
	}

	assert.NoError(t, config.Validate())
	assert.False(t, config.Plurk.HasCredentials())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("CONSUMER_KEY", "ck")
	t.Setenv("CONSUMER_SECRET", "cs")
	t.Setenv("ACCESS_TOKEN", "at")
	t.Setenv("ACCESS_TOKEN_SECRET", "ats")
	t.Setenv("PLURKBACKUP_OUTPUT_DIR", "/tmp/plurk-archive")
	t.Setenv("PLURKBACKUP_WORKERS", "5")
	t.Setenv("PLURKBACKUP_FAVORITE_THRESHOLD", "10")
	t.Setenv("PLURKBACKUP_DOWNLOAD_TIMEOUT", "15s")
	t.Setenv("PLURKBACKUP_LOG_LEVEL", "debug")
	t.Setenv("NO_COLOR", "yes")

	config := DefaultConfig()
	require.NoError(t, config.LoadFromEnv())

	assert.Equal(t, "ck", config.Plurk.ConsumerKey)
	assert.Equal(t, "cs", config.Plurk.ConsumerSecret)
	assert.Equal(t, "at", config.Plurk.AccessToken)
	assert.Equal(t, "ats", config.Plurk.AccessTokenSecret)
	assert.True(t, config.Plurk.HasCredentials())
	assert.Equal(t, "/tmp/plurk-archive", config.Output.BaseDirectory)
	assert.Equal(t, 5, config.Crawl.Workers)
	assert.Equal(t, 10, config.Crawl.FavoriteThreshold)
	assert.Equal(t, 15*time.Second, config.Download.Timeout)
	assert.Equal(t, "debug", config.Logging.Level)
	assert.True(t, config.UI.NoColor)

	// untouched values keep their defaults
	assert.Equal(t, 30, config.Crawl.PageSize)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{
			name:   "defaults are valid",
			modify: func(c *Config) {},
		},
		{
			name:    "zero workers",
			modify:  func(c *Config) { c.Crawl.Workers = 0 },
			wantErr: "Crawl.Workers",
		},
		{
			name:    "threshold below -1",
			modify:  func(c *Config) { c.Crawl.FavoriteThreshold = -2 },
			wantErr: "Crawl.FavoriteThreshold",
		},
		{
			name:   "unbuffered queue",
			modify: func(c *Config) { c.Crawl.QueueDepth = 0 },
		},
		{
			name:    "negative queue depth",
			modify:  func(c *Config) { c.Crawl.QueueDepth = -1 },
			wantErr: "Crawl.QueueDepth",
		},
		{
			name:    "bad log level",
			modify:  func(c *Config) { c.Logging.Level = "verbose" },
			wantErr: "Logging.Level",
		},
		{
			name:    "base url is not a url",
			modify:  func(c *Config) { c.Plurk.BaseURL = "plurk" },
			wantErr: "Plurk.BaseURL",
		},
		{
			name:    "max backoff below initial",
			modify:  func(c *Config) { c.Retry.MaxBackoff = 10 * time.Millisecond },
			wantErr: "Retry.MaxBackoff",
		},
		{
			name:    "missing output directory",
			modify:  func(c *Config) { c.Output.BaseDirectory = "" },
			wantErr: "Output.BaseDirectory",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.modify(config)
			err := config.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateJoinsAllErrors(t *testing.T) {
	config := DefaultConfig()
	config.Crawl.Workers = 0
	config.Download.ConcurrentDownloads = 0

	err := config.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Crawl.Workers")
	assert.Contains(t, err.Error(), "Download.ConcurrentDownloads")
	assert.Len(t, strings.Split(err.Error(), "\n"), 2)
}

func TestMergeCommandLineFlags(t *testing.T) {
	config := DefaultConfig()
	config.MergeCommandLineFlags(map[string]interface{}{
		"output":     "/archive",
		"workers":    7,
		"concurrent": 3,
		"threshold":  25,
		"page-size":  10,
		"log-level":  "warn",
		"no-color":   true,
	})

	assert.Equal(t, "/archive", config.Output.BaseDirectory)
	assert.Equal(t, 7, config.Crawl.Workers)
	assert.Equal(t, 3, config.Download.ConcurrentDownloads)
	assert.Equal(t, 25, config.Crawl.FavoriteThreshold)
	assert.Equal(t, 10, config.Crawl.PageSize)
	assert.Equal(t, "warn", config.Logging.Level)
	assert.True(t, config.UI.NoColor)

	// absent keys change nothing
	before := *config
	config.MergeCommandLineFlags(map[string]interface{}{})
	assert.Equal(t, before, *config)
}

func TestSaveAndLoadFromFile(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "nested", "config.yaml")

	original := DefaultConfig()
	original.Plurk.ConsumerKey = "file-key"
	original.Crawl.FavoriteThreshold = 3
	original.Download.Timeout = 45 * time.Second
	require.NoError(t, original.Save(configPath))

	info, err := os.Stat(configPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded := DefaultConfig()
	require.NoError(t, loaded.LoadFromFile(configPath))
	assert.Equal(t, "file-key", loaded.Plurk.ConsumerKey)
	assert.Equal(t, 3, loaded.Crawl.FavoriteThreshold)
	assert.Equal(t, 45*time.Second, loaded.Download.Timeout)
}

func TestLoadFromFileRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("crawl: [unclosed"), 0644))

	err := DefaultConfig().LoadFromFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config file")
}

func TestLoadPrecedence(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "config.yaml")
	yamlContent := `
crawl:
  workers: 2
  page_size: 20
output:
  base_directory: /from-file
`
	require.NoError(t, os.WriteFile(configPath, []byte(yamlContent), 0644))
	t.Setenv("PLURKBACKUP_WORKERS", "4")

	config, err := Load(configPath, filepath.Join(tempDir, "missing.env"), map[string]interface{}{"output": "/from-flag"})
	require.NoError(t, err)

	assert.Equal(t, 20, config.Crawl.PageSize, "file beats default")
	assert.Equal(t, 4, config.Crawl.Workers, "env beats file")
	assert.Equal(t, "/from-flag", config.Output.BaseDirectory, "flag beats file")
}

func TestLoadReadsGivenEnvFile(t *testing.T) {
	tempDir := t.TempDir()
	envPath := filepath.Join(tempDir, "alt.env")
	require.NoError(t, os.WriteFile(envPath, []byte("PLURKBACKUP_PAGE_SIZE=17\nPLURKBACKUP_FAVORITE_THRESHOLD=4\n"), 0600))

	// godotenv sets the process environment; restore it afterwards
	for _, key := range []string{"PLURKBACKUP_PAGE_SIZE", "PLURKBACKUP_FAVORITE_THRESHOLD"} {
		_, had := os.LookupEnv(key)
		require.False(t, had, "%s must not be set for this test", key)
		t.Cleanup(func() { os.Unsetenv(key) })
	}

	configPath := filepath.Join(tempDir, "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("crawl:\n  workers: 2\n"), 0644))

	config, err := Load(configPath, envPath, nil)
	require.NoError(t, err)
	assert.Equal(t, 17, config.Crawl.PageSize)
	assert.Equal(t, 4, config.Crawl.FavoriteThreshold)
}

func TestPermissionModes(t *testing.T) {
	out := OutputConfig{DirPermissions: "0700", FilePermissions: "bogus"}
	assert.Equal(t, os.FileMode(0700), out.DirMode())
	assert.Equal(t, os.FileMode(0644), out.FileMode())
}
