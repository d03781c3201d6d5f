/*
Package domain contains the shared value types of the Arbor transition engine.

It is kept pure and free of I/O, following the same Hexagonal Architecture principles
as the rest of the module: packages such as resolve, transition and router depend on
domain, never the other way around.

# Key Entities

  - Policy: the eagerness tier (JIT, LAZY, EAGER) of a resolvable dependency.
  - LifecycleHooks: observability callbacks fired by the transition service.
  - TransitionEvent / HookEvent / ResolveEvent: the payloads of those callbacks.
  - Sentinel errors shared across packages.
*/
package domain
