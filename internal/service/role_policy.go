package service

import (
	"github.com/Phurinho/outcome-career-align/internal/models"
	appErrors "github.com/Phurinho/outcome-career-align/pkg/errors"
)

// Capabilities maps a role onto the actions it may perform. Educators carry
// the same rights as admins; no admin-only action exists yet.
func Capabilities(role models.Role) (models.Capabilities, error) {
	switch role {
	case models.RoleAdmin, models.RoleEducator:
		return models.Capabilities{
			CanCreateCLO:      true,
			CanEditCLO:        true,
			CanManageMappings: true,
			CanViewAnalytics:  true,
		}, nil
	case models.RoleStudent:
		return models.Capabilities{
			CanViewAnalytics: true,
			OwnCareerOnly:    true,
		}, nil
	default:
		return models.Capabilities{}, appErrors.Clone(appErrors.ErrInvalidRole, "unknown role "+string(role))
	}
}

// Authorize fails with InvalidRole for unknown roles and Forbidden when the
// role lacks the capability.
func Authorize(role models.Role, capability models.Capability) error {
	caps, err := Capabilities(role)
	if err != nil {
		return err
	}
	if !caps.Allows(capability) {
		return appErrors.Clone(appErrors.ErrForbidden, "role "+string(role)+" may not "+string(capability))
	}
	return nil
}
