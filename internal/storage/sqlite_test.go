package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dhiksjf/serverstat-hub/internal/models"
)

func testRepo(t *testing.T) *Repository {
	t.Helper()

	repo, err := New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	return repo
}

func testConfig() models.WidgetConfig {
	cfg := models.WidgetConfig{
		ConfigID:   uuid.NewString(),
		ServerHost: "203.0.113.10",
		ServerPort: 27015,
		CreatedAt:  time.Now().UTC(),
	}
	cfg.ApplyDefaults()
	return cfg
}

func TestSaveAndGetConfig(t *testing.T) {
	repo := testRepo(t)

	cfg := testConfig()
	cfg.Theme = "terminal"
	cfg.EnabledFields["player_list"] = true
	require.NoError(t, repo.SaveConfig(cfg))

	got, err := repo.GetConfig(cfg.ConfigID)
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, cfg.ConfigID, got.ConfigID)
	assert.Equal(t, "203.0.113.10", got.ServerHost)
	assert.Equal(t, 27015, got.ServerPort)
	assert.Equal(t, "terminal", got.Theme)
	assert.Equal(t, cfg.EnabledFields, got.EnabledFields)
	assert.Equal(t, models.DefaultAccentColor, got.AccentColor)
	assert.True(t, got.DarkMode == cfg.DarkMode)
}

func TestGetConfigMissing(t *testing.T) {
	repo := testRepo(t)

	got, err := repo.GetConfig("no-such-id")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSaveConfigDuplicateID(t *testing.T) {
	repo := testRepo(t)

	cfg := testConfig()
	require.NoError(t, repo.SaveConfig(cfg))
	assert.Error(t, repo.SaveConfig(cfg))
}

func TestDeleteConfig(t *testing.T) {
	repo := testRepo(t)

	cfg := testConfig()
	require.NoError(t, repo.SaveConfig(cfg))

	existed, err := repo.DeleteConfig(cfg.ConfigID)
	require.NoError(t, err)
	assert.True(t, existed)

	got, err := repo.GetConfig(cfg.ConfigID)
	require.NoError(t, err)
	assert.Nil(t, got)

	existed, err = repo.DeleteConfig(cfg.ConfigID)
	require.NoError(t, err)
	assert.False(t, existed)
}

func TestListAndCountConfigs(t *testing.T) {
	repo := testRepo(t)

	for i := 0; i < 3; i++ {
		cfg := testConfig()
		cfg.CreatedAt = time.Now().UTC().Add(time.Duration(i) * time.Minute)
		require.NoError(t, repo.SaveConfig(cfg))
	}

	count, err := repo.CountConfigs()
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	all, err := repo.ListConfigs(0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	limited, err := repo.ListConfigs(2)
	require.NoError(t, err)
	require.Len(t, limited, 2)
	// Newest first
	assert.True(t, !limited[0].CreatedAt.Before(limited[1].CreatedAt))
}
