package config

// Version is the archon release stamped into new inventory files.
// Overridden at link time with -ldflags "-X archon/internal/config.Version=...".
var Version = "0.3.0"
