// Package logging sets up structured slog logging for orderdesk.
//
// Logs are JSON lines written to a size-rotated file under
// ~/.orderdesk/logs/ and optionally mirrored to stderr. Without --debug the
// CLI logs warnings and errors only.
package logging
