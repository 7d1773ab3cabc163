package project

import (
	"fmt"

	"golang.org/x/mod/semver"
)

// CheckToolVersion reports whether recordedVersion (the tool_version
// stamped on a prior Run) is compatible with the running engine: it
// must not be newer than ToolVersion. A project built by a newer tool
// than the one currently running is rejected rather than silently
// misread.
func CheckToolVersion(recordedVersion string) error {
	if recordedVersion == "" {
		return nil
	}
	if !semver.IsValid(recordedVersion) || !semver.IsValid(ToolVersion) {
		return nil // unparsable versions are not compared
	}
	if semver.Compare(recordedVersion, ToolVersion) > 0 {
		return fmt.Errorf("project was built with a newer tool version (%s > %s); upgrade before continuing",
			recordedVersion, ToolVersion)
	}
	return nil
}
