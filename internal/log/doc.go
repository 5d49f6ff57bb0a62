// Package log provides slog loggers that mask credentials.
//
// The crawler may be configured with a site cookie, custom headers and a
// SOCKS5 proxy with a password. Redact is installed as the ReplaceAttr
// function of both loggers and masks:
//   - attributes whose key names a credential (cookie, authorization, token)
//   - header values such as "Bearer ..." and cookies carrying a session pair
//   - the password part of "user:password@host" addresses
//
// Masking also applies in verbose mode so that logs can be attached to bug
// reports.
//
// # Usage
//
//	logger := log.NewSecureLogger(os.Stderr, verbose)
//	logger.Debug("site cookie", "cookie", cfg.Cookie) // masked
//	slog.SetDefault(logger)
package log
