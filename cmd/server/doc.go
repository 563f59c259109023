// Command server runs the termhost terminal session server.
//
// Configuration comes from defaults, an optional TOML or YAML file
// (-config or CONFIG_FILE), environment variables, and finally flags.
//
// Usage:
//
//	server -config termhost.toml -port 8000 -dev
package main
