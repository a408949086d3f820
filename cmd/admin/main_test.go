package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"cleanclip/service"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errNoDB = errors.New("database should not be opened")

func noDB() (*backend, error) {
	return nil, errNoDB
}

func TestRun_Usage(t *testing.T) {
	var out bytes.Buffer
	assert.ErrorIs(t, run(context.Background(), nil, &out, noDB), errUsage)
	assert.ErrorIs(t, run(context.Background(), []string{"explode"}, &out, noDB), errUsage)
	assert.ErrorIs(t, run(context.Background(), []string{"activate"}, &out, noDB), errUsage)
}

func TestRun_ActivateInvalidID(t *testing.T) {
	var out bytes.Buffer
	err := run(context.Background(), []string{"deactivate", "abc"}, &out, noDB)
	require.Error(t, err)
	assert.NotErrorIs(t, err, errNoDB)
}

func TestRun_LoadDryRun(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "airbnb.json"), []byte(`[
		{"service_type": "airbnb", "script": "Checkout to check-in in 2 hours", "caption": "Turnover pros"},
		{"service_type": "airbnb", "category": "urgency", "script": "Same-day slots left", "caption": "Book today"}
	]`), 0o644))

	var out bytes.Buffer
	err := run(context.Background(), []string{"load", "-dry-run", "-dir", dir}, &out, noDB)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Total templates to load: 2")
	assert.Contains(t, out.String(), "airbnb: 2")
	assert.Contains(t, out.String(), "[DRY RUN]")
}

func TestRun_LoadInvalidFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "move_out.json"), []byte(`[{"service_type": "move_out", "script": "", "caption": "x"}]`), 0o644))

	var out bytes.Buffer
	err := run(context.Background(), []string{"load", "-service", "move_out", "-dir", dir}, &out, noDB)
	require.Error(t, err)
	assert.NotErrorIs(t, err, errNoDB)
}

func TestNewBackend_PoolInvalidation(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	defer rdb.Close()

	b := newBackend(nil, rdb)
	require.NotNil(t, b.pools)
	assert.IsType(t, &service.RedisPoolCache{}, b.pools)

	assert.Nil(t, newBackend(nil, nil).pools)
}
