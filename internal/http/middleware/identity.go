package middleware

import "github.com/gofiber/fiber/v2"

const (
	// UserIDHeader carries the authenticated caller's identifier. Populated by
	// the fronting gateway; an absent header means an anonymous caller.
	UserIDHeader = "X-User-ID"
	// UserIDLocalKey is the key used to store the user ID in Fiber's context locals.
	UserIDLocalKey = "user_id"
)

// UserID copies the gateway-asserted caller identity into context locals.
// It never rejects: access decisions belong to the ACL layer, which treats
// an empty identity as anonymous.
func UserID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if id := c.Get(UserIDHeader); id != "" {
			c.Locals(UserIDLocalKey, id)
		}
		return c.Next()
	}
}

// UserIDFromCtx returns the caller identity set by UserID, or "" for
// anonymous requests.
func UserIDFromCtx(c *fiber.Ctx) string {
	if v := c.Locals(UserIDLocalKey); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
