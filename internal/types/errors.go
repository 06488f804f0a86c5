package types

import (
	"errors"
	"fmt"
)

var (
	ErrUnauthorized  = errors.New("unauthorized")
	ErrBadInput      = errors.New("bad input")
	ErrNotConfigured = errors.New("api not configured")

	ErrUpstreamUnreachable = errors.New("upstream unreachable")
	ErrUpstreamHTTP        = errors.New("upstream http error")
	ErrUpstreamMalformed   = errors.New("upstream malformed response")
	ErrUpstreamShape       = errors.New("upstream unexpected shape")

	ErrInvalidBackend = errors.New("invalid backend")
	ErrStoreAccess    = errors.New("store read/write error")
)

func Err(typedError error, innerErr error, msgTemplate string, args ...any) error {
	if msgTemplate == "" {
		return errors.Join(typedError, innerErr)
	} else {
		return errors.Join(typedError, innerErr, fmt.Errorf(msgTemplate, args...))
	}
}
