package serverutils

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// LocalsSubject is the Locals key holding the authenticated subject.
const LocalsSubject = "subject"

// JwtMiddleware accepts HS256 bearer tokens signed with secret and stores
// their subject under LocalsSubject.
func JwtMiddleware(secret []byte) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		authHeader := ctx.Get("Authorization")
		if len(authHeader) < 7 || !strings.EqualFold(authHeader[:7], "Bearer ") {
			return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"detail": "Not authenticated"})
		}
		tokenStr := authHeader[7:]

		claims := &jwt.RegisteredClaims{}
		token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
			return secret, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())

		if err != nil || !token.Valid {
			return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"detail": "Could not validate credentials"})
		}
		if claims.Subject == "" {
			return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"detail": "Invalid claims"})
		}

		ctx.Locals(LocalsSubject, claims.Subject)
		return ctx.Next()
	}
}

// Subject returns the subject stored by JwtMiddleware.
func Subject(ctx *fiber.Ctx) string {
	s, _ := ctx.Locals(LocalsSubject).(string)
	return s
}

// ErrorHandler renders errors as {"detail": message}.
func ErrorHandler(ctx *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}
	return ctx.Status(code).JSON(fiber.Map{"detail": err.Error()})
}
