package version

// These are filled in at build time with -ldflags.
var (
	Version   = "development"
	GitCommit = "unknown"
	BuildTime = "unknown"
)
