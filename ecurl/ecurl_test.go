package ecurl

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/observingclouds/ecgofs/ecfs"
)

func TestParse(t *testing.T) {
	tcs := []struct {
		raw    string
		scheme string
		path   string
	}{
		{"ec:///arch/bb1203/data.nc", "ec", "/arch/bb1203/data.nc"},
		{"ec:////arch/bb1203/data.nc", "ec", "/arch/bb1203/data.nc"},
		{"ec://arch/bb1203/data.nc", "ec", "/arch/bb1203/data.nc"},
		{"ec:/arch/data.nc", "ec", "/arch/data.nc"},
		{"ec:arch/data.nc", "ec", "/arch/data.nc"},
		{"ectmp:///x/y", "ectmp", "/x/y"},
		{"/plain/path", "ec", "/plain/path"},
		{"plain/path", "ec", "/plain/path"},
	}

	for _, tc := range tcs {
		t.Run(tc.raw, func(t *testing.T) {
			u, err := Parse(tc.raw)
			require.Nil(t, err)
			require.Equal(t, tc.scheme, u.Scheme)
			require.Equal(t, tc.path, u.Path)
		})
	}
}

func TestParseBadScheme(t *testing.T) {
	_, err := Parse("ftp://example.org/x")
	require.Equal(t, ecfs.ErrNoSuchScheme, err)
}

func TestString(t *testing.T) {
	u, err := Parse("ec://arch/x")
	require.Nil(t, err)
	require.Equal(t, "ec:///arch/x", u.String())
}

func TestOpenUsesRegistry(t *testing.T) {
	ecfs.WithMockFS(t, func(mockFS *ecfs.FS, archiveDir string) {
		var gotPath string
		Register("ec", func(u *URL) (*ecfs.FS, error) {
			gotPath = u.Path
			return mockFS, nil
		})

		fs, u, err := Open("ec:///arch/data.nc")
		require.Nil(t, err)
		require.True(t, fs == mockFS)
		require.Equal(t, "/arch/data.nc", u.Path)
		require.Equal(t, "/arch/data.nc", gotPath)
	})
}

func TestOpenUnregisteredScheme(t *testing.T) {
	_, _, err := Open("ectmp:///x")
	require.Equal(t, ecfs.ErrNoSuchScheme, err)
}
