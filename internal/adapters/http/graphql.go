package http

import (
	"encoding/json"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/samirrijal/planpresso/internal/core/domain"
	"github.com/samirrijal/planpresso/internal/core/editor"
	"github.com/samirrijal/planpresso/internal/core/validation"
)

// documentMap turns a plan into the generic form the default resolvers
// understand. Plans carry no struct tags of their own.
func documentMap(p domain.Plan) (map[string]interface{}, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// buildSchema creates the GraphQL schema wired to our services.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	geoPointType := graphql.NewObject(graphql.ObjectConfig{
		Name: "GeoPoint",
		Fields: graphql.Fields{
			"lat": &graphql.Field{Type: graphql.Float},
			"lng": &graphql.Field{Type: graphql.Float},
		},
	})

	stopType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Stop",
		Fields: graphql.Fields{
			"name":     &graphql.Field{Type: graphql.String},
			"label":    &graphql.Field{Type: graphql.String},
			"lat":      &graphql.Field{Type: graphql.Float},
			"lng":      &graphql.Field{Type: graphql.Float},
			"dateFrom": &graphql.Field{Type: graphql.String},
			"dateTo":   &graphql.Field{Type: graphql.String},
			"notes":    &graphql.Field{Type: graphql.String},
			"imageUrl": &graphql.Field{Type: graphql.String},
		},
	})

	planType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Plan",
		Fields: graphql.Fields{
			"name":     &graphql.Field{Type: graphql.String},
			"dateFrom": &graphql.Field{Type: graphql.String},
			"dateTo":   &graphql.Field{Type: graphql.String},
			"stops":    &graphql.Field{Type: graphql.NewList(stopType)},
		},
	})

	issueType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Issue",
		Fields: graphql.Fields{
			"code":    &graphql.Field{Type: graphql.String},
			"stop":    &graphql.Field{Type: graphql.Int},
			"field":   &graphql.Field{Type: graphql.String},
			"message": &graphql.Field{Type: graphql.String},
		},
	})

	reportType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Report",
		Fields: graphql.Fields{
			"valid": &graphql.Field{
				Type: graphql.Boolean,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(validation.Report).Valid(), nil
				},
			},
			"errors":   &graphql.Field{Type: graphql.NewList(issueType)},
			"warnings": &graphql.Field{Type: graphql.NewList(issueType)},
		},
	})

	savedPlanType := graphql.NewObject(graphql.ObjectConfig{
		Name: "SavedPlan",
		Fields: graphql.Fields{
			"id":       &graphql.Field{Type: graphql.String},
			"owner":    &graphql.Field{Type: graphql.String},
			"saved_at": &graphql.Field{Type: graphql.DateTime},
			"plan": &graphql.Field{
				Type: planType,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return documentMap(p.Source.(*domain.SavedPlan).Plan)
				},
			},
		},
	})

	summaryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "RecoverySummary",
		Fields: graphql.Fields{
			"id":           &graphql.Field{Type: graphql.String},
			"name":         &graphql.Field{Type: graphql.String},
			"emoji":        &graphql.Field{Type: graphql.String},
			"stop_count":   &graphql.Field{Type: graphql.Int},
			"total_nights": &graphql.Field{Type: graphql.Int},
			"saved_at":     &graphql.Field{Type: graphql.DateTime},
		},
	})

	mapStopType := graphql.NewObject(graphql.ObjectConfig{
		Name: "MapStop",
		Fields: graphql.Fields{
			"number":           &graphql.Field{Type: graphql.Int},
			"name":             &graphql.Field{Type: graphql.String},
			"kind":             &graphql.Field{Type: graphql.String},
			"point":            &graphql.Field{Type: geoPointType},
			"date_range":       &graphql.Field{Type: graphql.String},
			"nights":           &graphql.Field{Type: graphql.Int},
			"notes_html":       &graphql.Field{Type: graphql.String},
			"image_url":        &graphql.Field{Type: graphql.String},
			"next_distance_km": &graphql.Field{Type: graphql.Float},
			"next_distance":    &graphql.Field{Type: graphql.String},
		},
	})

	mapViewType := graphql.NewObject(graphql.ObjectConfig{
		Name: "MapView",
		Fields: graphql.Fields{
			"name":              &graphql.Field{Type: graphql.String},
			"emoji":             &graphql.Field{Type: graphql.String},
			"total_distance_km": &graphql.Field{Type: graphql.Float},
			"stops":             &graphql.Field{Type: graphql.NewList(mapStopType)},
		},
	})

	textArg := graphql.FieldConfigArgument{
		"text": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
	}

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"validate": &graphql.Field{
				Type:        reportType,
				Description: "Validate plan text",
				Args:        textArg,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Plans.Validate(p.Context, p.Args["text"].(string)), nil
				},
			},
			"format": &graphql.Field{
				Type:        graphql.String,
				Description: "Pretty-print plan text",
				Args:        textArg,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					out, err := deps.Plans.Format(p.Args["text"].(string))
					var perr *domain.ParseError
					if errors.As(err, &perr) {
						return nil, errors.New(validation.ParseMessage(perr.Err))
					}
					return out, err
				},
			},
			"example": &graphql.Field{
				Type:        planType,
				Description: "The builtin example plan",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return documentMap(deps.Plans.Example())
				},
			},
			"savedPlan": &graphql.Field{
				Type:        savedPlanType,
				Description: "Get a saved plan by ID",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Plans.Saved(p.Context, p.Args["id"].(string))
				},
			},
			"latestPlan": &graphql.Field{
				Type:        summaryType,
				Description: "Recovery summary of an owner's last saved plan",
				Args: graphql.FieldConfigArgument{
					"owner": &graphql.ArgumentConfig{Type: graphql.String, DefaultValue: ""},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					s, err := deps.Plans.Latest(p.Context, p.Args["owner"].(string))
					if errors.Is(err, domain.ErrPlanNotFound) {
						return nil, nil
					}
					return s, err
				},
			},
			"mapView": &graphql.Field{
				Type:        mapViewType,
				Description: "Prepare plan text for drawing",
				Args:        textArg,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					plan, err := editor.FromText(p.Args["text"].(string))
					if err != nil {
						var perr *domain.ParseError
						if errors.As(err, &perr) {
							return nil, errors.New(validation.ParseMessage(perr.Err))
						}
						return nil, err
					}
					return deps.Plans.MapView(*plan), nil
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query: queryType,
	})
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
