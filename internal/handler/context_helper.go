package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/vozsegura-api/internal/middleware"
	"github.com/noah-isme/vozsegura-api/internal/models"
	"github.com/noah-isme/vozsegura-api/internal/service"
	appErrors "github.com/noah-isme/vozsegura-api/pkg/errors"
)

func principalFromContext(c *gin.Context) *models.Principal {
	principal, ok := middleware.CurrentPrincipal(c)
	if !ok {
		return nil
	}
	return principal
}

func pathID(c *gin.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, appErrors.Clone(appErrors.ErrValidation, "invalid "+name)
	}
	return id, nil
}

func bindError(err error, message string) error {
	return service.InvalidInput(err, message)
}
