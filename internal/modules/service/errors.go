package service

import (
	"errors"

	"github.com/covalent-team/covalent/internal/infra/provider"
)

// Service layer errors. Handlers map these onto HTTP statuses; anything else
// is a 500.
var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
	ErrNotFound        = errors.New("not found")
	ErrValidation      = errors.New("validation failed")

	// Domain invariants.
	ErrLastAdmin      = errors.New("cannot remove the last ADMIN role assignment")
	ErrLastManager    = errors.New("cannot remove the only manager of a project")
	ErrProjectClosed  = errors.New("project is archived or completed")
	ErrNotProvisioned = errors.New("project has no AI resources provisioned")
)

// IsProviderError reports whether err originated at the external AI provider.
func IsProviderError(err error) bool {
	var pe *provider.Error
	return errors.As(err, &pe)
}
