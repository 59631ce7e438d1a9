package utils

import (
	"runtime/debug"
)

const (
	unknownVersion         = "unknown"
	developmentVersion     = "(devel)"
	revisionSettingKey     = "vcs.revision"
	modifiedSettingKey     = "vcs.modified"
	shortRevisionLength    = 12
	modifiedRevisionSuffix = "-dirty"
)

// GetApplicationVersion reports the module version recorded in the binary's build
// information. Development builds fall back to the VCS revision stamped by the Go
// toolchain, and finally to "unknown".
func GetApplicationVersion() string {
	buildInfo, buildInfoAvailable := debug.ReadBuildInfo()
	if !buildInfoAvailable {
		return unknownVersion
	}
	if buildInfo.Main.Version != "" && buildInfo.Main.Version != developmentVersion {
		return buildInfo.Main.Version
	}

	revision := ""
	modified := false
	for _, setting := range buildInfo.Settings {
		switch setting.Key {
		case revisionSettingKey:
			revision = setting.Value
		case modifiedSettingKey:
			modified = setting.Value == "true"
		}
	}
	if revision == "" {
		return unknownVersion
	}
	if len(revision) > shortRevisionLength {
		revision = revision[:shortRevisionLength]
	}
	if modified {
		revision += modifiedRevisionSuffix
	}
	return revision
}
