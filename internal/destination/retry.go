package destination

import (
	"errors"

	"github.com/palantir/contact-enricher/pkg/pipeline/core"
)

// RateLimitRetries caps how often a rate limited save is sent again.
const RateLimitRetries = 3

// RateLimited marks err as a request the remote API refused before writing
// anything. Such a save can be sent again without creating a duplicate.
func RateLimited(err error) error {
	return &core.LimitedTransientError{Err: err, ExtraRetries: RateLimitRetries}
}

// Resendable reports whether a failed save may be sent again. Appends and page
// creates are not idempotent: a timed out or 5xx request may already have been
// written, so only rate limit rejections qualify.
func Resendable(err error) bool {
	var lte *core.LimitedTransientError
	return errors.As(err, &lte)
}
