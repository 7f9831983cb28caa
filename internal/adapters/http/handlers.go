package http

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/routegate/internal/core/domain"
)

// RouteHandler computes a route that avoids current traffic incidents.
//
// Query: min_lon, min_lat, max_lon, max_lat (required), live_traffic (default true).
// Body: RouteRequest JSON, forwarded to the routing engine.
func RouteHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		bbox, err := parseBBox(c)
		if err != nil {
			return errFromDomain(c, err)
		}
		liveTraffic, err := queryBool(c, "live_traffic", true)
		if err != nil {
			return errFromDomain(c, err)
		}

		var req domain.RouteRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body: "+err.Error())
		}

		details, err := deps.Routes.Route(c.UserContext(), &req, bbox, liveTraffic)
		if err != nil {
			return errFromDomain(c, err)
		}

		c.Set(fiber.HeaderCacheControl, "no-store")
		return c.JSON(domain.RouteResponse{RouteDetails: details})
	}
}

// IncidentsHandler returns the exclusion points for the incidents inside a
// bounding box, as [{"lat":..,"lon":..}, ...].
func IncidentsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		bbox, err := parseBBox(c)
		if err != nil {
			return errFromDomain(c, err)
		}

		points, err := deps.Incidents.FetchExclusions(c.UserContext(), bbox)
		if err != nil {
			return errFromDomain(c, err)
		}

		c.Set(fiber.HeaderCacheControl, "no-store")
		return c.JSON(points)
	}
}

// LastPayloadHandler returns the last routing payload recorded by the
// postgres debug sink.
func LastPayloadHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if deps.Payloads == nil {
			return errNotFound(c, "payload recording is not enabled")
		}

		payload, recordedAt, err := deps.Payloads.Last(c.UserContext())
		if errors.Is(err, domain.ErrNoPayload) {
			return errNotFound(c, err.Error())
		}
		if err != nil {
			return errInternal(c, err.Error())
		}

		return c.JSON(fiber.Map{
			"recorded_at": recordedAt,
			"payload":     payload,
		})
	}
}

var bboxParams = [4]string{"min_lon", "min_lat", "max_lon", "max_lat"}

// parseBBox reads the four required bounding box query parameters.
// Range checks are left to BoundingBox.Validate.
func parseBBox(c *fiber.Ctx) (domain.BoundingBox, error) {
	var vals [4]float64
	for i, name := range bboxParams {
		raw := c.Query(name)
		if raw == "" {
			return domain.BoundingBox{}, &domain.ValidationError{Field: name, Reason: "is required"}
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return domain.BoundingBox{}, &domain.ValidationError{Field: name, Reason: "must be a number"}
		}
		vals[i] = v
	}
	return domain.BoundingBox{MinLon: vals[0], MinLat: vals[1], MaxLon: vals[2], MaxLat: vals[3]}, nil
}

// queryBool accepts the usual spellings of a boolean query flag.
func queryBool(c *fiber.Ctx, name string, def bool) (bool, error) {
	raw := strings.ToLower(strings.TrimSpace(c.Query(name)))
	switch raw {
	case "":
		return def, nil
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	}
	return false, &domain.ValidationError{Field: name, Reason: "must be a boolean"}
}
