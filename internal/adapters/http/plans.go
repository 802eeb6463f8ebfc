package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/planpresso/internal/core/domain"
	"github.com/samirrijal/planpresso/internal/core/editor"
	"github.com/samirrijal/planpresso/internal/core/validation"
)

type textRequest struct {
	Text string `json:"text"`
}

// parseFailure answers 400 with the user-facing parse message.
func parseFailure(c *fiber.Ctx, err error) error {
	var perr *domain.ParseError
	if errors.As(err, &perr) {
		return errBadRequest(c, validation.ParseMessage(perr.Err))
	}
	return errFromDomain(c, err)
}

// ValidateTextHandler validates plan text without a session. The report is
// returned with 200 whatever it contains.
func ValidateTextHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req textRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		r := deps.Plans.Validate(c.UserContext(), req.Text)
		errs, warnings := r.Messages()
		return c.JSON(fiber.Map{
			"valid":    r.Valid(),
			"report":   r,
			"errors":   errs,
			"warnings": warnings,
		})
	}
}

// FormatTextHandler pretty-prints plan text.
func FormatTextHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req textRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		out, err := deps.Plans.Format(req.Text)
		if err != nil {
			return parseFailure(c, err)
		}
		return c.JSON(fiber.Map{"text": out})
	}
}

// ExamplePlanHandler returns the builtin example plan and its text.
func ExamplePlanHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p := deps.Plans.Example()
		c.Set("Cache-Control", "public, max-age=86400")
		return c.JSON(fiber.Map{"plan": p, "text": editor.ToText(p)})
	}
}

// SharePlanHandler encodes plan text as a share payload.
func SharePlanHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req textRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		payload, err := deps.Plans.ShareText(req.Text)
		if err != nil {
			return parseFailure(c, err)
		}
		return c.JSON(fiber.Map{"payload": payload})
	}
}

// OpenShareHandler decodes a share payload.
func OpenShareHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := deps.Plans.OpenShare(c.Params("payload"))
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(fiber.Map{"plan": p, "text": editor.ToText(*p)})
	}
}

// MapViewHandler prepares unsaved plan text for drawing.
func MapViewHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req textRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		p, err := editor.FromText(req.Text)
		if err != nil {
			return parseFailure(c, err)
		}
		return c.JSON(deps.Plans.MapView(*p))
	}
}

// ListPlansHandler returns the caller's saved plans, newest first.
func ListPlansHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		pg := pageParams(c)
		plans, total, err := deps.Plans.History(c.UserContext(), ownerOf(c), pg.Offset, pg.Limit)
		if err != nil {
			return errFromDomain(c, err)
		}
		if plans == nil {
			plans = []domain.SavedPlan{}
		}

		pg.Total = total
		SetLinkHeaders(c, pg)
		c.Set("Cache-Control", "private, no-cache")
		return c.JSON(PaginatedResponse[domain.SavedPlan]{Data: plans, Pagination: pg})
	}
}

// LatestPlanHandler returns the recovery summary of the caller's last save.
func LatestPlanHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		summary, err := deps.Plans.Latest(c.UserContext(), ownerOf(c))
		if err != nil {
			return errFromDomain(c, err)
		}
		c.Set("Cache-Control", "private, no-cache")
		return c.JSON(summary)
	}
}

// GetPlanHandler returns a saved plan. Saved plans never change.
func GetPlanHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sp, err := deps.Plans.Saved(c.UserContext(), c.Params("id"))
		if err != nil {
			return errFromDomain(c, err)
		}
		c.Set("Cache-Control", "public, max-age=600")
		return c.JSON(sp)
	}
}

// SavedMapViewHandler returns the map view of a saved plan.
func SavedMapViewHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		v, err := deps.Plans.SavedMapView(c.UserContext(), c.Params("id"))
		if err != nil {
			return errFromDomain(c, err)
		}
		c.Set("Cache-Control", "public, max-age=600")
		return c.JSON(v)
	}
}

// ClearLegacyHandler removes the caller's drafts stored under legacy keys.
func ClearLegacyHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := deps.Sessions.ClearLegacy(c.UserContext(), ownerOf(c)); err != nil {
			return errFromDomain(c, err)
		}
		return c.SendStatus(204)
	}
}
