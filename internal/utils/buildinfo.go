// Package utils provides shared helpers: logging, version retrieval, and constants.
package utils

import (
	"runtime/debug"
)

const (
	unknownVersion = "unknown"
)

// GetApplicationVersion determines the application version from Go build info.
// The binary usually runs inside the user's repository, so asking git for a
// version would describe the wrong project; build info is the only trusted source.
func GetApplicationVersion() string {
	buildInfo, buildInfoAvailable := debug.ReadBuildInfo()
	if buildInfoAvailable && buildInfo.Main.Version != "" && buildInfo.Main.Version != "(devel)" {
		return buildInfo.Main.Version
	}
	return unknownVersion
}
