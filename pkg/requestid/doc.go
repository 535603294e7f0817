// Package requestid tags every request with a correlation id.
//
// A client-supplied X-Request-ID is reused when it is short and made of
// [A-Za-z0-9_-]; otherwise a fresh UUIDv7 is generated. The id is echoed in the
// response header and exposed to slog through LogExtractor.
package requestid
