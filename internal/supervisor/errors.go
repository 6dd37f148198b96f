package supervisor

import "errors"

// The fatal startup taxonomy: these abort the supervisor with a non-zero
// exit instead of being retried. Missing config files and an underivable
// UPS identity surface as nutconf.ErrMissingConfig and
// nutconf.ErrIdentityUnknown respectively.
var (
	// ErrDriverFatal means the driver layer failed every permitted start
	// attempt in server mode and no dummy fallback may be synthesized.
	ErrDriverFatal = errors.New("driver failed to start and no dummy fallback is permitted")
)
