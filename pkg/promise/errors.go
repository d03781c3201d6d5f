package promise

import "errors"

// ErrNilRejection replaces a nil error passed to Reject.
var ErrNilRejection = errors.New("promise rejected without a reason")
