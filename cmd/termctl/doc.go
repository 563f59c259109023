// Command termctl is a command-line client for a termhost server.
//
// Usage:
//
//	termctl create -name build
//	termctl wait -name build -timeout 3s make test
//	termctl buffer -lines 50 -name build
//	termctl attach <id>
package main
