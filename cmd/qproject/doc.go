// Command qproject manages per-job workflow workspaces: it prepares the
// directory tree, installs and runs workflow executables, and delivers
// results into the dropbox.
package main
