package resolve

import (
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/libresolve/pkg/cache"
	"github.com/matzehuels/libresolve/pkg/httputil"
)

const (
	DefaultWorkers       = 20                 // Default concurrent fetches
	DefaultMaxDepth      = 50                 // Default maximum graph depth
	DefaultDescriptorTTL = 7 * 24 * time.Hour // Default persistent descriptor cache TTL
)

// Options configures a [Resolver]. The zero value is usable; see
// [Options.WithDefaults]. Options are copied into the Resolver and never
// mutated afterwards, so one Resolver may serve concurrent calls.
type Options struct {
	Workers         int           // Concurrent descriptor and artifact fetches (default: 20)
	MaxDepth        int           // Deeper graphs fail, or are truncated when Lenient (default: 50)
	Attempts        int           // Attempts per repository for transient failures (default: 3)
	RetryDelay      time.Duration // Initial retry backoff (default: 500ms)
	VerifyChecksums bool          // Compare downloads against published .sha1 files

	// Lenient drops non-optional transitive dependencies whose descriptor
	// is not found instead of failing the resolution. They are reported
	// in [Result.Skipped], as are nodes at MaxDepth that still had
	// dependencies to expand. Transient failures are always fatal.
	Lenient bool

	HTTPClient *http.Client // Shared by all remote repositories (optional)

	// DescriptorCache stores parsed dependency lists of release versions
	// across resolutions (optional; nil disables it).
	DescriptorCache cache.Cache
	DescriptorTTL   time.Duration // default: 7 days

	// Descriptors replaces the POM reader as the source of declared
	// dependencies (optional).
	Descriptors DescriptorSource

	Logger *log.Logger // Debug and warning output (optional)
}

// WithDefaults returns a copy of Options with zero values replaced by defaults.
func (o Options) WithDefaults() Options {
	opts := o
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultMaxDepth
	}
	if opts.Attempts <= 0 {
		opts.Attempts = httputil.DefaultAttempts
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = httputil.DefaultDelay
	}
	if opts.DescriptorCache == nil {
		opts.DescriptorCache = cache.NewNullCache()
	}
	if opts.DescriptorTTL <= 0 {
		opts.DescriptorTTL = DefaultDescriptorTTL
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	return opts
}
