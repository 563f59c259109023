// Package types defines the tool-call contract shared by the service
// registry, its providers and the HTTP layer.
//
//   - Service, Tool, Parameter: what a provider exposes
//   - Context: who is calling
//   - Result: what a tool call returns
//   - ExecuteRequest: the POST /services/execute body
package types
