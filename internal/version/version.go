package version

// Version is overridden at build time via
// -ldflags "-X github.com/egta-tools/egta-cli/internal/version.Version=v1.2.3".
var Version = "dev"
