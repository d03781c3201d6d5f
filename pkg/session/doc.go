/*
Package session coordinates reads and writes of persisted router locations.

A Manager wraps a ports.LocationStore with per-key locking so that concurrent
transitions on the same router never interleave their writes. With a
ports.DistributedLocker configured, the same guarantee holds across processes.
*/
package session
