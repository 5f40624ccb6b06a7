package controller

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-hotel-billing/app/dto"
	"github.com/vibast-solutions/ms-go-hotel-billing/app/factory"
	"github.com/vibast-solutions/ms-go-hotel-billing/app/service"
)

func writeError(ctx echo.Context, statusCode int, message string) error {
	return ctx.JSON(statusCode, &dto.ErrorResponse{Error: message})
}

// writeServiceError maps a service error category onto an HTTP status.
// Anything uncategorised is logged and hidden behind a generic message.
func writeServiceError(ctx echo.Context, logger logrus.FieldLogger, err error, action string) error {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return writeError(ctx, http.StatusNotFound, service.PublicMessage(err))
	case errors.Is(err, service.ErrConflict):
		return writeError(ctx, http.StatusConflict, service.PublicMessage(err))
	case errors.Is(err, service.ErrInvalidRequest):
		return writeError(ctx, http.StatusBadRequest, service.PublicMessage(err))
	default:
		factory.LoggerWithContext(logger, ctx).WithError(err).Error(action + " failed")
		return writeError(ctx, http.StatusInternalServerError, "internal server error")
	}
}
