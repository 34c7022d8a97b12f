// Package app loads configuration and wires application dependencies for
// the CLIs.
//
// Config is read from a JSON-with-comments file and then overridden from the
// environment. Wire turns it into a logger, a session store and a cipher,
// exposed via App for commands to build or restore sessions. WireHub does the
// same for the development bridge.
package app
