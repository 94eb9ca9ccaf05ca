package serverutils

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

const (
	LocalUserId = "user_id"
	LocalRole   = "role"

	RoleUser  = "user"
	RoleAdmin = "admin"
)

// BearerToken reads the token from the Authorization header, falling back to
// the "token" query parameter for browser EventSource and websocket clients.
func BearerToken(ctx *fiber.Ctx) string {
	authHeader := ctx.Get("Authorization")
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
		return strings.TrimSpace(authHeader[7:])
	}
	return ctx.Query("token")
}

// ParseToken validates an HMAC signed token and returns user id and role.
func ParseToken(tokenStr string, secret []byte) (string, string, error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fiber.ErrUnauthorized
		}
		return secret, nil
	})
	if err != nil || !token.Valid {
		return "", "", fiber.NewError(fiber.StatusUnauthorized, "Invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", "", fiber.NewError(fiber.StatusUnauthorized, "Invalid claims")
	}

	userId, _ := claims["user_id"].(string)
	if userId == "" {
		return "", "", fiber.NewError(fiber.StatusUnauthorized, "Token has no user_id")
	}

	role, _ := claims["role"].(string)
	if role == "" {
		role = RoleUser
	}

	return userId, role, nil
}

func JwtMiddleware(secret string) fiber.Handler {
	key := []byte(secret)

	return func(ctx *fiber.Ctx) error {
		tokenStr := BearerToken(ctx)
		if tokenStr == "" {
			return ctx.Status(fiber.StatusUnauthorized).JSON(ErrorResponse("Missing token", nil))
		}

		userId, role, err := ParseToken(tokenStr, key)
		if err != nil {
			return ctx.Status(fiber.StatusUnauthorized).JSON(ErrorResponse(err.Error(), nil))
		}

		ctx.Locals(LocalUserId, userId)
		ctx.Locals(LocalRole, role)
		return ctx.Next()
	}
}

func AdminOnly(ctx *fiber.Ctx) error {
	if role, _ := ctx.Locals(LocalRole).(string); role != RoleAdmin {
		return fiber.NewError(fiber.StatusForbidden, "Admin role required")
	}
	return ctx.Next()
}
