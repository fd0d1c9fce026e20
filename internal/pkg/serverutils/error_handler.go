package serverutils

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"
)

// statusCoder is implemented by domain errors that know their HTTP status.
type statusCoder interface {
	StatusCode() int
}

// ErrorHandlerMiddleware writes every error returned down the chain as the
// standard error envelope.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		code := fiber.StatusInternalServerError
		message := err.Error()

		var fe *fiber.Error
		var sc statusCoder
		switch {
		case errors.As(err, &fe):
			code = fe.Code
			message = fe.Message
		case errors.As(err, &sc):
			code = sc.StatusCode()
		}

		if code >= fiber.StatusInternalServerError {
			log.Printf("[ERROR] %s %s: %v", ctx.Method(), ctx.Path(), err)
		}
		return ctx.Status(code).JSON(ErrorResponse(code, message))
	}
}
