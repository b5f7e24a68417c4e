package cli

// Version is set at build time.
var Version = "0.1.0"
