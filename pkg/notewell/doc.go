// Package notewell implements the sync server for a local-first note-taking
// application with AI assistance.
//
// Devices keep their working set in a local note store and exchange it with
// this server through a timestamp-cursor pull/push protocol; conflicts are
// resolved last-writer-wins on the millisecond updatedAt clock. The server
// also hosts the AI endpoints (classification, rewriting, merge suggestion,
// memory extraction, search) backed by Gemini, and a per-device memory store
// deduplicated by content fingerprint.
//
// # Storage
//
// Three backends implement the same store interface: an in-memory store for
// development and tests (-memory), PostgreSQL through GORM (-postgres), and
// SurrealDB over the CBOR WebSocket protocol (the default). See
// [github.com/notewell/notewell/pkg/store].
//
// # Commands
//
//	notewell run      start the HTTP server (default)
//	notewell migrate  provision the schema and exit
//
// Configuration comes from flags or the environment (a .env file is loaded
// when present); see Parse for the full set.
package notewell
