// Package daemonize detaches the run pipeline into a background process
// that survives the launching terminal.
//
// Go cannot fork, so the classic double-fork is expressed as a re-exec:
// the parent relaunches its own binary in a new session with stdio bound
// to the null device and returns immediately; the re-executed child
// applies the umask, claims the pidfile exclusively, and runs the
// pipeline. A pre-existing pidfile means another instance is running and
// refuses the launch before any detach happens.
package daemonize
