package archiver

import (
	"github.com/jmgilman/go/archive/checksum"
	"github.com/jmgilman/go/archive/compress"
	"github.com/jmgilman/go/archive/internal/logging"
	"github.com/jmgilman/go/archive/tar"
)

// Default extraction limits.
const (
	DefaultMaxFiles    = 10000
	DefaultMaxSize     = 1 << 30   // 1GB
	DefaultMaxFileSize = 100 << 20 // 100MB

	DefaultConcurrency = 8
)

// Options controls Pack, Extract and List. Fields that do not apply to an
// operation are ignored by it.
type Options struct {
	Logger *logging.Logger

	// Compression is applied by Pack. Extract and List detect it.
	Compression compress.Compression

	// Dialect is the tar dialect Pack writes headers in.
	Dialect tar.Dialect

	// Fallback selects how USTAR headers that do not fit are stored.
	Fallback tar.Fallback

	// Digest, when non-zero, records a payload digest per regular file.
	Digest checksum.Algorithm

	// Concurrency bounds how many member headers Pack builds in parallel,
	// including reading symlink targets.
	Concurrency int

	// MaxFiles bounds the number of entries Extract accepts. Zero
	// disables the limit.
	MaxFiles int

	// MaxSize bounds the total payload size Extract accepts.
	MaxSize int64

	// MaxFileSize bounds a single payload.
	MaxFileSize int64

	// StripPrefix is removed from member paths before extraction.
	StripPrefix string

	// PreservePermissions keeps mode bits, including setuid and setgid,
	// instead of sanitizing them.
	PreservePermissions bool

	// AllowHidden permits members whose path has a dot-prefixed component.
	AllowHidden bool

	// Include restricts Extract and List to members matching at least one
	// pattern. Patterns use path.Match syntax; a pattern also matches every
	// member below a matching directory.
	Include []string

	// Progress, when set, is called with the running payload byte count
	// and the expected total (zero when unknown).
	Progress func(current, total int64)

	// TarOptions are passed to the tar Reader and Writer.
	TarOptions []tar.Option
}

// Option configures Options.
type Option func(*Options)

// DefaultOptions returns uncompressed USTAR output with PAX fallback, no
// digests and the default extraction limits.
func DefaultOptions() Options {
	return Options{
		Logger:      logging.NewNopLogger(),
		Compression: compress.None,
		Dialect:     tar.DialectUSTAR,
		Fallback:    tar.FallbackPAX,
		Concurrency: DefaultConcurrency,
		MaxFiles:    DefaultMaxFiles,
		MaxSize:     DefaultMaxSize,
		MaxFileSize: DefaultMaxFileSize,
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

// WithCompression sets the compression Pack applies.
func WithCompression(c compress.Compression) Option {
	return func(o *Options) {
		o.Compression = c
	}
}

// WithDialect sets the dialect Pack writes.
func WithDialect(d tar.Dialect) Option {
	return func(o *Options) {
		o.Dialect = d
	}
}

// WithFallback sets the USTAR fallback.
func WithFallback(f tar.Fallback) Option {
	return func(o *Options) {
		o.Fallback = f
	}
}

// WithDigest records per-file digests with a.
func WithDigest(a checksum.Algorithm) Option {
	return func(o *Options) {
		o.Digest = a
	}
}

// WithConcurrency sets how many member headers Pack builds at once. The
// source tree is walked and file contents are written sequentially.
func WithConcurrency(n int) Option {
	return func(o *Options) {
		if n > 0 {
			o.Concurrency = n
		}
	}
}

// WithLimits sets the extraction limits. Zero disables a limit.
func WithLimits(maxFiles int, maxSize, maxFileSize int64) Option {
	return func(o *Options) {
		o.MaxFiles = maxFiles
		o.MaxSize = maxSize
		o.MaxFileSize = maxFileSize
	}
}

// WithStripPrefix removes prefix from member paths on extraction.
func WithStripPrefix(prefix string) Option {
	return func(o *Options) {
		o.StripPrefix = prefix
	}
}

// WithPreservePermissions keeps mode bits as archived.
func WithPreservePermissions() Option {
	return func(o *Options) {
		o.PreservePermissions = true
	}
}

// WithAllowHidden accepts dot-prefixed members.
func WithAllowHidden() Option {
	return func(o *Options) {
		o.AllowHidden = true
	}
}

// WithInclude restricts extraction and listing to matching members.
func WithInclude(patterns ...string) Option {
	return func(o *Options) {
		o.Include = append(o.Include, patterns...)
	}
}

// WithProgress registers a progress callback.
func WithProgress(fn func(current, total int64)) Option {
	return func(o *Options) {
		o.Progress = fn
	}
}

// WithTarOptions passes options through to the tar codec.
func WithTarOptions(opts ...tar.Option) Option {
	return func(o *Options) {
		o.TarOptions = append(o.TarOptions, opts...)
	}
}

func buildOptions(opts []Option) Options {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// tarOptions returns the codec options with the archiver's logger and
// fallback applied first, so explicit TarOptions win.
func (o Options) tarOptions() []tar.Option {
	return append([]tar.Option{tar.WithLogger(o.Logger), tar.WithFallback(o.Fallback)}, o.TarOptions...)
}
