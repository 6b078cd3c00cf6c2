package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/samirrijal/trafficmap/internal/core/domain"
	"github.com/samirrijal/trafficmap/internal/core/predicate"
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

	boundsType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Bounds",
		Fields: graphql.Fields{
			"min_lat": &graphql.Field{Type: graphql.Float},
			"min_lon": &graphql.Field{Type: graphql.Float},
			"max_lat": &graphql.Field{Type: graphql.Float},
			"max_lon": &graphql.Field{Type: graphql.Float},
		},
	})

	speedStatsType := graphql.NewObject(graphql.ObjectConfig{
		Name: "SpeedStats",
		Fields: graphql.Fields{
			"mean": &graphql.Field{Type: graphql.Float},
			"min":  &graphql.Field{Type: graphql.Float},
			"max":  &graphql.Field{Type: graphql.Float},
			"p50":  &graphql.Field{Type: graphql.Float},
			"p95":  &graphql.Field{Type: graphql.Float},
		},
	})

	summaryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Summary",
		Fields: graphql.Fields{
			"rows":       &graphql.Field{Type: graphql.Int},
			"first_time": &graphql.Field{Type: graphql.String},
			"last_time":  &graphql.Field{Type: graphql.String},
			"extent":     &graphql.Field{Type: boundsType},
			"speed":      &graphql.Field{Type: speedStatsType},
		},
	})

	recordType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Record",
		Fields: graphql.Fields{
			"time":         &graphql.Field{Type: graphql.String},
			"display_time": &graphql.Field{Type: graphql.String},
			"speed":        &graphql.Field{Type: graphql.Float},
			"latitude":     &graphql.Field{Type: graphql.Float},
			"longitude":    &graphql.Field{Type: graphql.Float},
		},
	})

	viewportType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Viewport",
		Fields: graphql.Fields{
			"center": &graphql.Field{Type: geoPointType},
			"zoom":   &graphql.Field{Type: graphql.Float},
			"bounds": &graphql.Field{Type: boundsType},
		},
	})

	controlsType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Controls",
		Fields: graphql.Fields{
			"generate": &graphql.Field{Type: graphql.Boolean},
			"refine":   &graphql.Field{Type: graphql.Boolean},
			"reset":    &graphql.Field{Type: graphql.Boolean},
		},
	})

	sessionType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Session",
		Fields: graphql.Fields{
			"id":            &graphql.Field{Type: graphql.String},
			"state":         &graphql.Field{Type: graphql.String},
			"refined":       &graphql.Field{Type: graphql.Boolean},
			"rows":          &graphql.Field{Type: graphql.Int},
			"baseline_rows": &graphql.Field{Type: graphql.Int},
			"message":       &graphql.Field{Type: graphql.String},
			"controls": &graphql.Field{
				Type:        controlsType,
				Description: "Only reset is meaningful without form fields; generate and refine are always false.",
			},
			"records": &graphql.Field{
				Type:        graphql.NewList(recordType),
				Description: "Page of the current table",
				Args: graphql.FieldConfigArgument{
					"offset": &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 0},
					"limit":  &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: defaultPageLimit},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					sess := p.Source.(map[string]interface{})
					offset, _ := p.Args["offset"].(int)
					limit, _ := p.Args["limit"].(int)
					if offset < 0 {
						offset = 0
					}
					if limit <= 0 || limit > maxPageLimit {
						limit = defaultPageLimit
					}
					rows, _, err := deps.Views.Grid(p.Context, sess["id"].(string), offset, limit)
					if err != nil {
						return nil, err
					}
					out := make([]map[string]interface{}, 0, len(rows))
					for _, r := range rows {
						out = append(out, map[string]interface{}{
							"time":         formatTime(r.Time),
							"display_time": r.DisplayTime,
							"speed":        r.Speed,
							"latitude":     r.Latitude,
							"longitude":    r.Longitude,
						})
					}
					return out, nil
				},
			},
			"viewport": &graphql.Field{
				Type: viewportType,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					sess := p.Source.(map[string]interface{})
					view, err := deps.Views.Map(p.Context, sess["id"].(string))
					if err != nil {
						return nil, err
					}
					return viewportMap(view.Viewport), nil
				},
			},
			"summary": &graphql.Field{
				Type: summaryType,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					sess := p.Source.(map[string]interface{})
					sum, err := deps.Views.Summary(p.Context, sess["id"].(string))
					if err != nil {
						return nil, err
					}
					return summaryMap(sum), nil
				},
			},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"dataset": &graphql.Field{
				Type:        summaryType,
				Description: "Summary of the base dataset",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					sum, err := deps.Dataset.Summary(p.Context)
					if err != nil {
						return nil, err
					}
					return summaryMap(sum), nil
				},
			},
			"session": &graphql.Field{
				Type:        sessionType,
				Description: "A dashboard session and its working set",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					id, _ := p.Args["id"].(string)
					sess, err := deps.Sessions.Get(p.Context, id)
					if err != nil {
						return nil, err
					}
					ws := sess.WorkingSet
					ctrl := predicate.Controls(domain.FormFields{}, ws.Populated)
					return map[string]interface{}{
						"id":            sess.ID,
						"state":         string(ws.State()),
						"refined":       ws.Refined,
						"rows":          ws.Current.Len(),
						"baseline_rows": ws.Baseline.Len(),
						"message":       sess.Message,
						"controls": map[string]interface{}{
							"generate": ctrl.Generate,
							"refine":   ctrl.Refine,
							"reset":    ctrl.Reset,
						},
					}, nil
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query: queryType,
	})
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

func boundsMap(b *domain.Bounds) map[string]interface{} {
	if b == nil {
		return nil
	}
	return map[string]interface{}{
		"min_lat": b.MinLat,
		"min_lon": b.MinLon,
		"max_lat": b.MaxLat,
		"max_lon": b.MaxLon,
	}
}

func viewportMap(v domain.Viewport) map[string]interface{} {
	m := map[string]interface{}{
		"center": map[string]interface{}{"lat": v.Center.Lat, "lon": v.Center.Lon},
		"zoom":   v.Zoom,
	}
	if v.Bounds != nil {
		m["bounds"] = boundsMap(v.Bounds)
	}
	return m
}

func summaryMap(s *domain.Summary) map[string]interface{} {
	m := map[string]interface{}{"rows": s.Rows}
	if s.FirstTime != nil {
		m["first_time"] = formatTime(*s.FirstTime)
	}
	if s.LastTime != nil {
		m["last_time"] = formatTime(*s.LastTime)
	}
	if s.Extent != nil {
		m["extent"] = boundsMap(s.Extent)
	}
	if s.Speed != nil {
		m["speed"] = map[string]interface{}{
			"mean": s.Speed.Mean,
			"min":  s.Speed.Min,
			"max":  s.Speed.Max,
			"p50":  s.Speed.P50,
			"p95":  s.Speed.P95,
		}
	}
	return m
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
		if req.Query == "" {
			return errBadRequest(c, "query is required")
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
