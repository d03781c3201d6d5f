/*
Package ports defines the driven ports (interfaces) of the router.

These interfaces decouple the transition engine from external implementations,
allowing a router to persist its location in various storage backends.

# Key Interfaces

  - LocationStore: Responsible for persisting and loading router locations.
  - DistributedLocker: Provides distributed locking for concurrent writes to a location key.
*/
package ports
