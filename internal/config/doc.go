// Package config loads, normalizes, and validates filemanager configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment overrides such as
// FILEMANAGER_STATE_DIR and FILEMANAGER_PORT so test runs never share state
// files with a production install. The Config type is resolved once at process
// start and threaded through constructors; nothing below cmd/ reads the
// environment directly.
package config
