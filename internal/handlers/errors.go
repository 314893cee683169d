package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"inventory/internal/apperrors"
)

// ErrorHandler renders every error returned by a handler or middleware. It is
// the only place where error kinds become HTTP statuses.
func ErrorHandler(logger *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		// application errors may wrap a *fiber.Error from body parsing
		var appErr *apperrors.Error
		if !errors.As(err, &appErr) {
			var fiberErr *fiber.Error
			if errors.As(err, &fiberErr) {
				return c.Status(fiberErr.Code).JSON(fiber.Map{
					"code":    "HTTP_ERROR",
					"message": fiberErr.Message,
				})
			}
			appErr = apperrors.NewInternal(err)
		}
		status := apperrors.HTTPStatus(appErr.Kind)

		body := fiber.Map{
			"code":    appErr.Kind,
			"message": appErr.Message,
		}
		if len(appErr.Details) > 0 {
			body["errors"] = appErr.Details
		}

		switch appErr.Kind {
		case apperrors.KindInternal:
			logger.Error("request failed",
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.Error(err))
			body["message"] = "internal server error"
		case apperrors.KindUnauthorized:
			c.Set(fiber.HeaderWWWAuthenticate, "Bearer")
		}

		return c.Status(status).JSON(body)
	}
}
