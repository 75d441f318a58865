package middleware

import (
	"crypto/subtle"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"go.uber.org/zap"
)

// APIKeyAuth is a Fiber middleware gating requests on a static shared secret carried in
// header. A request without the header yields 401. Any other value than the secret,
// the empty string included, yields 403. Neither response has a body.
func APIKeyAuth(header, secret string, log *zap.Logger) fiber.Handler {
	expected := []byte(secret)
	name := []byte(header)

	return func(c *fiber.Ctx) error {
		key, ok := lookupHeader(c, name)
		if !ok {
			log.Info("rejected request without api key",
				zap.String("path", c.Path()),
				zap.String("header", header),
			)
			c.Status(fiber.StatusUnauthorized)
			return nil
		}

		if subtle.ConstantTimeCompare(key, expected) != 1 {
			log.Info("rejected request with invalid api key", zap.String("path", c.Path()))
			c.Status(fiber.StatusForbidden)
			return nil
		}

		return c.Next()
	}
}

// lookupHeader reports whether the request carries name at all, even with an empty value.
func lookupHeader(c *fiber.Ctx, name []byte) ([]byte, bool) {
	var (
		value []byte
		found bool
	)
	c.Request().Header.VisitAll(func(key, v []byte) {
		if !found && utils.EqualFoldBytes(key, name) {
			value = append([]byte(nil), v...)
			found = true
		}
	})
	return value, found
}
