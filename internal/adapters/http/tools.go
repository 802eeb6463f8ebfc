package http

import (
	"strings"
	"unicode/utf8"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/planpresso/internal/core/validation"
)

// MarkdownHandler renders notes markdown to sanitized HTML.
func MarkdownHandler(deps *Dependencies) fiber.Handler {
	type request struct {
		Source string `json:"source"`
	}
	return func(c *fiber.Ctx) error {
		var req request
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		return c.JSON(fiber.Map{"html": deps.Plans.RenderNotes(req.Source)})
	}
}

// GeocodeHandler looks up places for a search box.
func GeocodeHandler(deps *Dependencies) fiber.Handler {
	search := deps.placeSearch(nil)
	return func(c *fiber.Ctx) error {
		q := strings.TrimSpace(c.Query("q"))
		if q == "" {
			return errBadRequest(c, "q query parameter is required")
		}
		if utf8.RuneCountInString(q) > 200 {
			return errBadRequest(c, "query too long (max 200 characters)")
		}

		places, err := search.Lookup(c.UserContext(), q)
		if err != nil {
			LoggerFromCtx(c.UserContext()).Warn("geocode failed", "query", q, "error", err)
			return newError(c, 502, "upstream_error", "place search is unavailable")
		}
		c.Set("Cache-Control", "public, max-age=300")
		return c.JSON(places)
	}
}

// CheckFieldHandler reports whether a form value should be flagged while
// the user types.
func CheckFieldHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		field := c.Query("field")
		if field == "" {
			return errBadRequest(c, "field query parameter is required")
		}
		return c.JSON(fiber.Map{
			"field": field,
			"invalid": validation.CheckField(field, c.Query("value")),
		})
	}
}
