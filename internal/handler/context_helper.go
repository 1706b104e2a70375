package handler

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Phurinho/outcome-career-align/internal/middleware"
	"github.com/Phurinho/outcome-career-align/internal/models"
	"github.com/Phurinho/outcome-career-align/internal/service"
	appErrors "github.com/Phurinho/outcome-career-align/pkg/errors"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	return middleware.ClaimsFromContext(c)
}

// actorFromContext converts session claims into the workflow actor.
func actorFromContext(c *gin.Context) (models.Actor, error) {
	claims := claimsFromContext(c)
	if claims == nil {
		return models.Actor{}, appErrors.ErrUnauthorized
	}
	return models.Actor{UserID: claims.UserID, Role: claims.Role, Career: claims.Career}, nil
}

func parseStatuses(raw string) []models.MappingStatus {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	statuses := make([]models.MappingStatus, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			statuses = append(statuses, models.MappingStatus(strings.ToLower(trimmed)))
		}
	}
	return statuses
}

func mappingQuery(term, status, cloID string) service.MappingQuery {
	return service.MappingQuery{
		Term:   strings.TrimSpace(term),
		Status: parseStatuses(status),
		CLOID:  strings.TrimSpace(cloID),
	}
}

func bindError(err error, message string) error {
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message)
}
