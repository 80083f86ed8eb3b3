package tar

import (
	"github.com/jmgilman/go/archive/internal/logging"
)

const (
	// DefaultMaxChainedHeaders bounds how many extension headers may
	// precede one entry.
	DefaultMaxChainedHeaders = 8

	// DefaultMaxExtendedHeaderSize bounds the payload of a single PAX or
	// GNU long-name entry.
	DefaultMaxExtendedHeaderSize = 1 << 20
)

// Fallback selects how a Writer stores a USTAR header whose fields do not
// fit the fixed layout.
type Fallback int

const (
	// FallbackPAX moves oversized fields into a PAX extended header.
	FallbackPAX Fallback = iota

	// FallbackGNU stores long paths in GNU long-name entries. Fields that
	// only PAX can carry still go to a PAX extended header.
	FallbackGNU

	// FallbackNone refuses entries that do not fit plain USTAR.
	FallbackNone
)

// String returns the fallback name.
func (f Fallback) String() string {
	switch f {
	case FallbackPAX:
		return "pax"
	case FallbackGNU:
		return "gnu"
	default:
		return "none"
	}
}

// ParseFallback maps a fallback name back to its value.
func ParseFallback(s string) (Fallback, bool) {
	switch s {
	case "pax", "":
		return FallbackPAX, true
	case "gnu":
		return FallbackGNU, true
	case "none":
		return FallbackNone, true
	}
	return FallbackPAX, false
}

// Options configures a Reader or Writer. Fields that only apply to one
// side are ignored by the other.
type Options struct {
	// Logger receives debug records about header chains. Defaults to a
	// no-op logger.
	Logger *logging.Logger

	// MaxChainedHeaders bounds the extension headers before one entry.
	MaxChainedHeaders int

	// MaxExtendedHeaderSize bounds a PAX or long-name payload in bytes.
	MaxExtendedHeaderSize int64

	// LenientEnd makes the Reader accept a stream that stops at a header
	// boundary without the two-zero-block marker.
	LenientEnd bool

	// Fallback selects how the Writer escalates USTAR headers.
	Fallback Fallback
}

// Option configures Options.
type Option func(*Options)

// DefaultOptions returns the defaults used by NewReader and NewWriter.
func DefaultOptions() Options {
	return Options{
		Logger:                logging.NewNopLogger(),
		MaxChainedHeaders:     DefaultMaxChainedHeaders,
		MaxExtendedHeaderSize: DefaultMaxExtendedHeaderSize,
		Fallback:              FallbackPAX,
	}
}

// WithLogger sets the logger.
func WithLogger(logger *logging.Logger) Option {
	return func(o *Options) {
		if logger != nil {
			o.Logger = logger
		}
	}
}

// WithMaxChainedHeaders sets how many extension headers may precede an
// entry before the Reader gives up.
func WithMaxChainedHeaders(n int) Option {
	return func(o *Options) {
		if n > 0 {
			o.MaxChainedHeaders = n
		}
	}
}

// WithMaxExtendedHeaderSize caps the payload of PAX and long-name entries.
func WithMaxExtendedHeaderSize(n int64) Option {
	return func(o *Options) {
		if n > 0 {
			o.MaxExtendedHeaderSize = n
		}
	}
}

// WithLenientEnd accepts archives that end without the end-of-archive
// marker, as written by some streaming tools.
func WithLenientEnd() Option {
	return func(o *Options) {
		o.LenientEnd = true
	}
}

// WithFallback sets how the Writer escalates USTAR headers.
func WithFallback(f Fallback) Option {
	return func(o *Options) {
		o.Fallback = f
	}
}

func buildOptions(opts []Option) Options {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
