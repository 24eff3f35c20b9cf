package registry

import "time"

// WithTimeouts overrides the fetch and report timeouts.
func WithTimeouts(fetch, report time.Duration) Options {
	return func(o *options) {
		o.fetchTimeout = fetch
		o.reportTimeout = report
	}
}

// DecodeMetadata exposes the registry response decoder.
var DecodeMetadata = decodeMetadata
