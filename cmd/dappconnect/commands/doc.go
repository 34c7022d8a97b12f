// Package commands defines the dappconnect CLI and wires dependencies for
// subcommands.
//
// Commands
//
//   - connect      Propose a session, print the pairing URI and wait for the wallet
//   - request      Send a JSON-RPC request over a stored session
//   - disconnect   End a stored session and notify the wallet
//   - sessions     List stored sessions
//   - parse-uri    Decode a pairing URI
//
// # Implementation
//
// The root command loads the JSONC config, applies environment overrides and
// builds the app context (logger, session store, cipher) before any
// subcommand runs. Connected sessions are persisted, so request and
// disconnect restore them by client id in a later invocation.
package commands
