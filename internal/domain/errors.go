package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound       = errors.New("resource does not exist")
	ErrAmbiguous      = errors.New("multiple resources match")
	ErrSiteNotFound   = errors.New("site not found")
	ErrSecretNotFound = errors.New("secret not found")
	ErrNoAuthToken    = errors.New("no auth token configured")
)

// NotFoundError reports a failed lookup by name or id. Version is only set
// for simulator lookups.
type NotFoundError struct {
	Kind    string
	Name    string
	Version string
}

func (e *NotFoundError) Error() string {
	if e.Version != "" {
		return fmt.Sprintf("%s %s version %s does not exist", e.Kind, e.Name, e.Version)
	}
	return fmt.Sprintf("%s %s does not exist", e.Kind, e.Name)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// AmbiguousError reports a by-name lookup that matched several versions.
type AmbiguousError struct {
	Kind     string
	Name     string
	Versions []string
}

func (e *AmbiguousError) Error() string {
	return fmt.Sprintf("%s %s has multiple versions: %s",
		e.Kind, e.Name, strings.Join(e.Versions, ", "))
}

func (e *AmbiguousError) Is(target error) bool { return target == ErrAmbiguous }
