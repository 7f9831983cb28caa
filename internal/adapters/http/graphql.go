package http

import (
	"encoding/json"

	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/samirrijal/routegate/internal/core/domain"
)

// buildSchema creates the GraphQL schema wired to our services.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	geoPointType := graphql.NewObject(graphql.ObjectConfig{
		Name: "GeoPoint",
		Fields: graphql.Fields{
			"lat": &graphql.Field{Type: graphql.Float},
			"lon": &graphql.Field{Type: graphql.Float},
		},
	})

	geoPointInput := graphql.NewInputObject(graphql.InputObjectConfig{
		Name: "GeoPointInput",
		Fields: graphql.InputObjectConfigFieldMap{
			"lat": &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.Float)},
			"lon": &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.Float)},
		},
	})

	routeRequestInput := graphql.NewInputObject(graphql.InputObjectConfig{
		Name: "RouteRequestInput",
		Fields: graphql.InputObjectConfigFieldMap{
			"locations": &graphql.InputObjectFieldConfig{
				Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(geoPointInput))),
			},
			"costing": &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.String)},
			"costing_options": &graphql.InputObjectFieldConfig{
				Type:        graphql.String,
				Description: "Costing options as a JSON object, passed through unchanged",
			},
			"units": &graphql.InputObjectFieldConfig{Type: graphql.String},
			"id":    &graphql.InputObjectFieldConfig{Type: graphql.String},
		},
	})

	routeDetailsType := graphql.NewObject(graphql.ObjectConfig{
		Name: "RouteDetails",
		Fields: graphql.Fields{
			"coordinates": &graphql.Field{
				Type:        graphql.NewList(graphql.NewList(graphql.Float)),
				Description: "Decoded shape as [lon, lat] pairs",
			},
			"polyline": &graphql.Field{Type: graphql.String},
		},
	})

	bboxArgs := func() graphql.FieldConfigArgument {
		args := graphql.FieldConfigArgument{}
		for _, name := range bboxParams {
			args[name] = &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)}
		}
		return args
	}

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"incidents": &graphql.Field{
				Type:        graphql.NewList(geoPointType),
				Description: "Exclusion points for the traffic incidents inside a bounding box",
				Args:        bboxArgs(),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Incidents.FetchExclusions(p.Context, bboxFromArgs(p.Args))
				},
			},
		},
	})

	routeArgs := bboxArgs()
	routeArgs["live_traffic"] = &graphql.ArgumentConfig{Type: graphql.Boolean, DefaultValue: true}
	routeArgs["request"] = &graphql.ArgumentConfig{Type: graphql.NewNonNull(routeRequestInput)}

	mutationType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Mutation",
		Fields: graphql.Fields{
			"route": &graphql.Field{
				Type:        routeDetailsType,
				Description: "Compute a route avoiding current traffic incidents",
				Args:        routeArgs,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					req, err := routeRequestFromArgs(p.Args["request"].(map[string]interface{}))
					if err != nil {
						return nil, err
					}
					liveTraffic, _ := p.Args["live_traffic"].(bool)

					details, err := deps.Routes.Route(p.Context, req, bboxFromArgs(p.Args), liveTraffic)
					if err != nil {
						return nil, err
					}

					coords := make([][]float64, len(details.Coordinates))
					for i, c := range details.Coordinates {
						coords[i] = []float64{c[0], c[1]}
					}
					return map[string]interface{}{
						"coordinates": coords,
						"polyline":    details.Polyline,
					}, nil
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query:    queryType,
		Mutation: mutationType,
	})
}

func bboxFromArgs(args map[string]interface{}) domain.BoundingBox {
	f := func(name string) float64 {
		v, _ := args[name].(float64)
		return v
	}
	return domain.BoundingBox{
		MinLon: f("min_lon"),
		MinLat: f("min_lat"),
		MaxLon: f("max_lon"),
		MaxLat: f("max_lat"),
	}
}

func routeRequestFromArgs(in map[string]interface{}) (*domain.RouteRequest, error) {
	req := &domain.RouteRequest{}
	req.Costing, _ = in["costing"].(string)
	req.Units, _ = in["units"].(string)
	req.ID, _ = in["id"].(string)

	if raw, ok := in["costing_options"].(string); ok && raw != "" {
		if !json.Valid([]byte(raw)) {
			return nil, &domain.ValidationError{Field: "costing_options", Reason: "must be valid JSON"}
		}
		req.CostingOptions = json.RawMessage(raw)
	}

	locs, _ := in["locations"].([]interface{})
	for _, l := range locs {
		m, _ := l.(map[string]interface{})
		lat, _ := m["lat"].(float64)
		lon, _ := m["lon"].(float64)
		req.Locations = append(req.Locations, domain.GeoPoint{Lat: lat, Lon: lon})
	}
	return req, nil
}

// GraphQLHandler serves the GraphQL endpoint.
func GraphQLHandler(deps *Dependencies) fiber.Handler {
	schema, err := buildSchema(deps)
	if err != nil {
		// This would be a programming error in the schema definition
		panic("graphql schema build: " + err.Error())
	}

	type gqlRequest struct {
		Query         string                 `json:"query"`
		OperationName string                 `json:"operationName"`
		Variables     map[string]interface{} `json:"variables"`
	}

	return func(c *fiber.Ctx) error {
		var req gqlRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        c.UserContext(),
		})

		return c.JSON(result)
	}
}
