package version

// Set at build time with
// -ldflags "-X github.com/servokit/servod/pkg/version.Version=... -X github.com/servokit/servod/pkg/version.GitCommit=..."
var (
	Version   = "v0.0.0-dev"
	GitCommit = "unknown"
)
