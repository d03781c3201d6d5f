/*
Package observability turns transition lifecycle events into logs and metrics.

Both LogHooks and Metrics.Hooks return a domain.LifecycleHooks that can be
handed to a transition.Service; combine them with domain.CombineHooks:

	metrics := observability.NewMetrics(prometheus.DefaultRegisterer)
	hooks := domain.CombineHooks(observability.LogHooks(logger), metrics.Hooks())
*/
package observability
