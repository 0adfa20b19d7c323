package notify

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrConfiguration marks a missing mandatory dependency. No attempts
	// are created.
	ErrConfiguration = errors.New("configuration error")

	// ErrInvalidRequest marks a request body that cannot be dispatched.
	ErrInvalidRequest = errors.New("invalid request")
)

// ConfigError names the component and the environment keys that are unset.
type ConfigError struct {
	Component string
	Missing   []string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s not configured: missing env vars: %s",
		e.Component, strings.Join(e.Missing, ", "))
}

// Is lets errors.Is(err, ErrConfiguration) match.
func (e *ConfigError) Is(target error) bool { return target == ErrConfiguration }

// ResolutionError wraps a store or identity-provider failure raised while
// resolving recipients. A lookup that finds nobody is not an error.
type ResolutionError struct {
	Strategy Strategy
	Err      error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("resolve %s recipients: %v", e.Strategy, e.Err)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

// IsFatal reports whether err is one of the two request-level failures.
func IsFatal(err error) bool {
	var re *ResolutionError
	return errors.Is(err, ErrConfiguration) || errors.As(err, &re)
}
