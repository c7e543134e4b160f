// Package cli provides the interactive blockpass command-line client.
//
// It drives UserService and VaultService from a simple REPL: register and
// log in, then add, list, show, edit and delete vault items. Login and master
// passwords are read without echo and wiped after use; the session token is
// kept in memory only and re-validated before every vault command.
//
// The REPL is started via App.Run(ctx), which blocks until the user exits or
// input ends.
package cli
