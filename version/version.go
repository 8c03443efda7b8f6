// Package version reports what was built. The variables are overridden at link
// time, e.g. -ldflags "-X github.com/sparkify/dwhetl/version.Release=v0.2.0".
package version

import (
	"fmt"
	"runtime"
)

var (
	Release = "v0.1.0"
	GitHash = "Unknown"
	GitRef  = "Unknown"
)

type BuildInfo struct {
	Release   string `json:"release"`
	GitHash   string `json:"gitHash"`
	GitRef    string `json:"gitRef"`
	GoVersion string `json:"goVersion"`
	Platform  string `json:"platform"`
}

func NewBuildInfo() BuildInfo {
	return BuildInfo{
		Release:   Release,
		GitHash:   GitHash,
		GitRef:    GitRef,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}

func (b BuildInfo) String() string {
	return fmt.Sprintf("dwhetl %s\nGit Ref: %s\nGit Hash: %s\nGo Version: %s\nPlatform: %s",
		b.Release, b.GitRef, b.GitHash, b.GoVersion, b.Platform)
}
