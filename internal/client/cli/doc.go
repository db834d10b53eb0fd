// Package cli provides the interactive SuiteWaste command-line client.
//
// It wires configuration, the local store, the sync engine and the
// offline-first transport, then runs a REPL. Sign-in is checked against the
// local database, so the client starts and works without the server; writes
// made while offline are queued and sent when the connection comes back.
//
// The cobra root command (NewRootCommand) starts the REPL. The sync, pull,
// status and clear subcommands run one action and exit.
package cli
