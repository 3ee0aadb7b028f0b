package version

import "fmt"

// populated via ldflags by goreleaser
//
//nolint:gochecknoglobals // build metadata
var (
	Version   = "dev"
	Commit    = "none"
	Date      = "unknown"
	BuiltBy   = "unknown"
	GoVersion = "unknown"
)

//nolint:gochecknoglobals // build metadata
var FullVersion = fmt.Sprintf("%s (%s at %s by %s)", Version, Commit, Date, BuiltBy)
