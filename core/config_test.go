package core_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kyleyee20/aevum/core"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("ENV", "")

	conf, err := core.LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "DEV", conf.Env)
	assert.False(t, conf.TestMode)
	assert.Equal(t, "bolt", conf.Database.Engine)
	assert.Equal(t, time.Second, conf.Poller.Interval)
	assert.True(t, conf.Poller.AutoPrune)
	assert.Equal(t, 30, conf.MaxCompletedAge)
	assert.Equal(t, 10*time.Second, conf.Oracle.Timeout)
	assert.Equal(t, "ucsd", conf.Vocab.Institution)
	assert.Equal(t, "primary", conf.Calendar.ID)
	assert.Equal(t, "fuzzy", conf.Calendar.Matcher)
}

func TestLoadConfig_EnvAndDotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "config"), 0o755))
	dotEnv := "TEST_DBENGINE=sqlite\nTEST_ORACLEURL=http://oracle.local/score\nTEST_COMPLETEDMAXAGEDAYS=0\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config", ".env.test"), []byte(dotEnv), 0o600))

	t.Setenv("ENV", "test")
	t.Setenv("TEST_POLLERINTERVAL", "5s")
	t.Setenv("TEST_VOCABINSTITUTION", "  UCLA ")
	t.Setenv("TEST_CALENDARMATCHER", "Similarity")
	t.Setenv("TEST_DBENGINE", "Postgres") // the environment wins over .env
	t.Cleanup(func() {
		_ = os.Unsetenv("TEST_ORACLEURL")
		_ = os.Unsetenv("TEST_COMPLETEDMAXAGEDAYS")
	})

	conf, err := core.LoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, "TEST", conf.Env)
	assert.True(t, conf.TestMode)
	assert.Equal(t, "postgres", conf.Database.Engine)
	assert.Equal(t, "http://oracle.local/score", conf.Oracle.URL)
	assert.Equal(t, 5*time.Second, conf.Poller.Interval)
	assert.Equal(t, "ucla", conf.Vocab.Institution)
	assert.Equal(t, "similarity", conf.Calendar.Matcher)
	assert.Equal(t, 30, conf.MaxCompletedAge)
}
