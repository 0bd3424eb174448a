// Package middleware provides HTTP middleware for the fiber app.
package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// UserIDKey is the fiber.Ctx locals key holding the authenticated user id.
const UserIDKey = "userID"

// Auth validates the Bearer token and stores the authenticated user id in
// the request locals.
func Auth(jwtSecret string) fiber.Handler {
	secret := []byte(jwtSecret)
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"code":  "UNAUTHORIZED",
				"error": "missing bearer token",
			})
		}
		tokenString := strings.TrimPrefix(authHeader, "Bearer ")

		claims := &jwt.RegisteredClaims{}
		token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return secret, nil
		})
		if err != nil || !token.Valid {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"code":  "UNAUTHORIZED",
				"error": "invalid or expired token",
			})
		}

		userID, err := uuid.Parse(claims.Subject)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"code":  "UNAUTHORIZED",
				"error": "malformed subject claim",
			})
		}

		c.Locals(UserIDKey, userID)
		return c.Next()
	}
}

// UserID extracts the authenticated user id set by Auth.
func UserID(c *fiber.Ctx) (uuid.UUID, bool) {
	id, ok := c.Locals(UserIDKey).(uuid.UUID)
	return id, ok
}
