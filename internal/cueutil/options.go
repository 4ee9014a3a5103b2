// SPDX-License-Identifier: MPL-2.0

package cueutil

// DefaultMaxFileSize caps the size of a CUE document (1MB). Config and request
// files are a few hundred bytes.
const DefaultMaxFileSize int64 = 1 << 20

type (
	decodeOptions struct {
		maxFileSize int64
		concrete    bool
		filename    string
	}

	// Option configures decoding.
	Option func(*decodeOptions)
)

func defaultOptions() decodeOptions {
	return decodeOptions{
		maxFileSize: DefaultMaxFileSize,
		concrete:    true,
	}
}

// WithMaxFileSize overrides DefaultMaxFileSize.
func WithMaxFileSize(size int64) Option {
	return func(o *decodeOptions) {
		o.maxFileSize = size
	}
}

// WithConcrete controls whether every value must be concrete after
// unification. Config files leave optional fields open, so they pass false.
func WithConcrete(concrete bool) Option {
	return func(o *decodeOptions) {
		o.concrete = concrete
	}
}

// WithFilename names the document in error messages.
func WithFilename(name string) Option {
	return func(o *decodeOptions) {
		o.filename = name
	}
}
