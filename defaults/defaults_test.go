package defaults

import (
	"testing"

	"github.com/sahib/config"
	"github.com/stretchr/testify/require"
)

func TestFetchDelayValidation(t *testing.T) {
	cfg, err := config.Open(nil, Defaults, config.StrictnessPanic)
	require.Nil(t, err)

	// Zero would silently turn into the built-in default delay;
	// the validator has to reject it.
	require.NotNil(t, cfg.Set("fetch.delay", int64(0)))
	require.NotNil(t, cfg.Set("fetch.delay", int64(3601)))
	require.Nil(t, cfg.Set("fetch.delay", int64(1)))
}

func TestPermissionsValidation(t *testing.T) {
	cfg, err := config.Open(nil, Defaults, config.StrictnessPanic)
	require.Nil(t, err)

	require.NotNil(t, cfg.Set("cache.permissions", "rwxrwxrwx"))
	require.NotNil(t, cfg.Set("cache.permissions", "999"))
	require.Nil(t, cfg.Set("cache.permissions", "0755"))
}
