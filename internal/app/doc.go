// Package app contains the core application logic. It defines the main App
// struct, its configuration, and the compile lifecycle: load suite files,
// build the suites, then emit, check, deploy and replace them. It is
// decoupled from any specific entrypoint like a CLI.
package app
