// Package service provides the tool registry agents call into.
//
// Providers expose a Service definition with tools named "<service>.<tool>";
// Execute routes a call to the provider that owns the service prefix.
// Discover ranks services against a free-text intent by keyword, capability
// and category matches.
//
//	registry := service.NewRegistry(logger).WithMetrics(metrics)
//	registry.Register(shell.NewProvider(mgr))
//	result, err := registry.Execute(ctx, "terminal.exec_wait", params, nil)
package service
