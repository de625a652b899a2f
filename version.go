package dialogmanager

// Version is the release of the module. Overridden at build time with
// -ldflags "-X github.com/zxsted/dialogmanager.Version=...".
var Version = "0.1.0-dev"
