package ingest

import "errors"

// ErrMalformedPayload marks a request body that could not be decoded into the
// source's payload type. Handlers report it as a client error.
var ErrMalformedPayload = errors.New("malformed payload")
