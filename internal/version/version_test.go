package version

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGetCurrentVersion(t *testing.T) {
	require.Equal(t, DevVersion, GetCurrentVersion("dev"))
	require.Equal(t, DevVersion, GetCurrentVersion("demo"))
	require.Equal(t, Version, GetCurrentVersion("prod"))
}

func TestGetMinorVersion(t *testing.T) {
	require.Equal(t, "0.3", GetMinorVersion("0.3.1"))
	require.Equal(t, "1.0", GetMinorVersion("1.0.0-beta"))
	require.Equal(t, "", GetMinorVersion("1"))
}

func TestIsVersionGreaterOrEqualThan(t *testing.T) {
	require.True(t, IsVersionGreaterOrEqualThan("0.3.1", "0.3.0"))
	require.True(t, IsVersionGreaterOrEqualThan("0.3.0", "0.3.0"))
	require.False(t, IsVersionGreaterOrEqualThan("0.2.9", "0.3.0"))
}

func TestString(t *testing.T) {
	require.Equal(t, Version, String())

	origCommit := GitCommit
	defer func() { GitCommit = origCommit }()
	GitCommit = "0123456789abcdef"
	require.Equal(t, Version+"-0123456", String())
}
