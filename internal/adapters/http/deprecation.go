package http

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// DeprecatedRoute marks an endpoint that still works but has a successor.
type DeprecatedRoute struct {
	Path        string
	Alternative string
}

// DeprecationMiddleware adds Deprecation and Link headers to deprecated endpoints.
func DeprecationMiddleware(deprecated []DeprecatedRoute) fiber.Handler {
	byPath := make(map[string]DeprecatedRoute, len(deprecated))
	for _, d := range deprecated {
		byPath[d.Path] = d
	}

	return func(c *fiber.Ctx) error {
		if d, ok := byPath[c.Path()]; ok {
			// RFC 8594
			c.Set("Deprecation", "true")
			if d.Alternative != "" {
				c.Set("Link", fmt.Sprintf(`<%s>; rel="successor-version"`, d.Alternative))
			}
		}
		return c.Next()
	}
}
