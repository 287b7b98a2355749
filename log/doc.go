// Package log provides a concurrency-safe simplified logging interface
// based on [log/slog].
//
// The package offers configurable levels (including Trace, below Debug),
// output formats, and an ANSI-colorized text mode, all applied at logger
// creation time using functional options:
//
//	logger := log.Make(os.Stderr,
//		log.WithLevel(log.LevelTrace),
//		log.WithFormat(log.FormatText),
//		log.WithPretty(true))
//
// The zero value Logger is valid and discards every message, so library
// code can log unconditionally without a nil check.
package log
