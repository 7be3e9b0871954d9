// Package securecopy delivers workflow output trees into a shared drop
// location, proving on the way that every entry is owned by the identity
// that was supposed to produce it.
//
// The producer may run as a different, less trusted user, so nothing
// from its tree is exposed until the owner of each directory and file
// has been read from an already-open handle. Traversal descends with
// directory-relative opens and never re-resolves a path from the root,
// which closes the check-then-use window a concurrent rename or symlink
// swap would otherwise exploit.
package securecopy
