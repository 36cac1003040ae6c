package version

var (
	// Version is the release of the binary.
	// This is set during build using -ldflags.
	Version = "dev"

	// GitCommit is the git commit hash the binary was built from.
	// This is set during build using -ldflags.
	GitCommit = "none"

	// BuildTime is the time when the binary was built.
	// This is set during build using -ldflags.
	BuildTime = "unknown"
)
