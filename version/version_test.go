package version

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildInfo(t *testing.T) {
	info := NewBuildInfo()
	require.Equal(t, Release, info.Release)
	require.Equal(t, runtime.Version(), info.GoVersion)
	require.Contains(t, info.String(), "dwhetl "+Release)
	require.Contains(t, info.String(), "Git Ref: "+GitRef)
}
