// Package supervise spawns the workflow executable inside a prepared
// workspace, blocks until it exits, and forwards cancellation to the
// child through the same privilege-elevation path used to launch it.
//
// A Handle tracks exactly one execution through the state machine
// NotStarted -> Running -> {Completed, Killed, SpawnFailed}; there are
// no other transitions and a terminal handle is never reused.
package supervise
