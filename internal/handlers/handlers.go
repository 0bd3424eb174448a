// Package handlers exposes the ledger use cases over HTTP. Handlers stay
// thin: decode and validate the request, call the service, map domain
// failures to stable error codes.
package handlers

import (
	stderrors "errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	errs "vaultpay/internal/errors"
)

var validate = validator.New()

// parseBody decodes and validates a JSON request body, aggregating every
// field violation into one response.
func parseBody(c *fiber.Ctx, dest interface{}) error {
	if err := c.BodyParser(dest); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"code":  "BAD_REQUEST",
			"error": "malformed request body",
		})
	}
	if err := validate.Struct(dest); err != nil {
		var fieldErrs validator.ValidationErrors
		if stderrors.As(err, &fieldErrs) {
			violations := make([]string, 0, len(fieldErrs))
			for _, fe := range fieldErrs {
				violations = append(violations, fmt.Sprintf("%s failed on %s", fe.Field(), fe.Tag()))
			}
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"code":       "VALIDATION_FAILED",
				"error":      "request validation failed",
				"violations": violations,
			})
		}
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"code":  "BAD_REQUEST",
			"error": err.Error(),
		})
	}
	return nil
}

// fail maps a domain error to its HTTP response.
func fail(c *fiber.Ctx, err error) error {
	var insufficient *errs.InsufficientBalanceError
	if stderrors.As(err, &insufficient) {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"code":      insufficient.Code(),
			"error":     insufficient.Error(),
			"wallet_id": insufficient.WalletID,
			"requested": insufficient.Requested,
			"available": insufficient.Available,
			"currency":  insufficient.Currency,
		})
	}

	var domainErr *errs.DomainError
	if stderrors.As(err, &domainErr) {
		return c.Status(statusFor(domainErr.Code)).JSON(fiber.Map{
			"code":  domainErr.Code,
			"error": domainErr.Message,
		})
	}

	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"code":  errs.ErrInternal.Code,
		"error": errs.ErrInternal.Message,
	})
}

func statusFor(code string) int {
	switch code {
	case "NOT_FOUND", "WALLET_NOT_FOUND", "ACCOUNT_NOT_FOUND", "TRANSACTION_NOT_FOUND":
		return fiber.StatusNotFound
	case "UNAUTHORIZED":
		return fiber.StatusUnauthorized
	case "FORBIDDEN", "WALLET_INACTIVE":
		return fiber.StatusForbidden
	case "INTERNAL_ERROR":
		return fiber.StatusInternalServerError
	default:
		return fiber.StatusBadRequest
	}
}
