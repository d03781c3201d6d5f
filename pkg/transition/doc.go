/*
Package transition runs one move through the state tree.

A Transition computes which states are exited, retained and entered, binds a
resolve context to its target path, and runs the hook pipeline:

	onBefore (synchronous)
	onStart
	eager resolves
	onExit, from the leaf up
	onRetain
	lazy resolves and onEnter, for each entered state
	onFinish

Each hook result is a control signal. nil or any other value proceeds, false
aborts, a *state.TargetState redirects, and a promise.Awaitable is waited for
and interpreted in turn. The outcome promise settles exactly once; onSuccess or
onError hooks run afterwards and cannot change it.

Transitions are cancelled cooperatively: when the accessor given with
WithCurrent reports another transition, the next hook boundary rejects with
RejectSuperseded.
*/
package transition
