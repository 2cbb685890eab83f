// Package logging assembles the structured slog loggers used by the resident
// daemon.
//
// Logs never go to standard output: stdout carries protocol responses, so
// every handler here writes to the inherited standard error stream and,
// optionally, to a size-rotated log file. The console handler renders compact
// single-line records for terminals; the JSON handler is used for files and
// for non-interactive stderr. Helpers mirror slog's attribute constructors and
// pin the standard field keys so every component emits the same shape.
//
// Handlers capture the writer they are built with. A capture session that
// swaps os.Stderr later does not redirect daemon diagnostics into operation
// output.
package logging
