package http

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/trafficmap/internal/core/domain"
	"github.com/samirrijal/trafficmap/internal/core/predicate"
)

// SessionResponse is the externally visible state of a session.
//
// Controls is computed without form fields, so only Reset carries
// information; Generate and Refine are always false. POST /v1/controls
// answers those with the sidebar state.
type SessionResponse struct {
	ID           string          `json:"id"`
	State        domain.State    `json:"state"`
	Refined      bool            `json:"refined"`
	Rows         int             `json:"rows"`
	BaselineRows int             `json:"baseline_rows"`
	Message      string          `json:"message"`
	Controls     domain.Controls `json:"controls"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

func toSessionResponse(s *domain.Session) SessionResponse {
	ws := s.WorkingSet
	return SessionResponse{
		ID:           s.ID,
		State:        ws.State(),
		Refined:      ws.Refined,
		Rows:         ws.Current.Len(),
		BaselineRows: ws.Baseline.Len(),
		Message:      s.Message,
		Controls:     predicate.Controls(domain.FormFields{}, ws.Populated),
		CreatedAt:    s.CreatedAt,
		UpdatedAt:    s.UpdatedAt,
	}
}

// ControlsRequest is the sidebar state plus the session it belongs to.
type ControlsRequest struct {
	SessionID string `json:"session_id,omitempty"`
	domain.FormFields
}

// DatasetHandler returns a summary of the base dataset.
func DatasetHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sum, err := deps.Dataset.Summary(c.UserContext())
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(sum)
	}
}

// ControlsHandler reports which dashboard buttons are enabled.
func ControlsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req ControlsRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		ctrl, err := deps.Sessions.Controls(c.UserContext(), req.SessionID, req.FormFields)
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(ctrl)
	}
}

// CreateSessionHandler starts a session with no working set.
func CreateSessionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess, err := deps.Sessions.Create(c.UserContext())
		if err != nil {
			return errFromDomain(c, err)
		}
		c.Location("/v1/sessions/" + sess.ID)
		return c.Status(201).JSON(toSessionResponse(sess))
	}
}

// GetSessionHandler returns a session's state.
func GetSessionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess, err := deps.Sessions.Get(c.UserContext(), c.Params("id"))
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(toSessionResponse(sess))
	}
}

// DeleteSessionHandler drops a session.
func DeleteSessionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := deps.Sessions.Delete(c.UserContext(), c.Params("id")); err != nil {
			return errFromDomain(c, err)
		}
		return c.SendStatus(204)
	}
}

// GenerateHandler filters the base dataset into the session's working set.
func GenerateHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var fields domain.FormFields
		if err := c.BodyParser(&fields); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		sess, err := deps.Sessions.Generate(c.UserContext(), c.Params("id"), fields)
		return actionResponse(c, sess, err)
	}
}

// RefineHandler narrows the session's current table.
func RefineHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var fields domain.FormFields
		if err := c.BodyParser(&fields); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		sess, err := deps.Sessions.Refine(c.UserContext(), c.Params("id"), fields)
		return actionResponse(c, sess, err)
	}
}

// ResetHandler undoes a refine or clears the working set.
func ResetHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess, err := deps.Sessions.Reset(c.UserContext(), c.Params("id"))
		return actionResponse(c, sess, err)
	}
}

// actionResponse reports an empty result as 422; the session keeps its
// previous working set and carries the message for the next read.
func actionResponse(c *fiber.Ctx, sess *domain.Session, err error) error {
	if err != nil {
		return errFromDomain(c, err)
	}
	return c.JSON(toSessionResponse(sess))
}

// TableHandler returns one page of the session's current table.
func TableHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		offset, limit := parsePage(c)

		rows, total, err := deps.Views.Grid(c.UserContext(), c.Params("id"), offset, limit)
		if err != nil {
			return errFromDomain(c, err)
		}

		pg := Pagination{Offset: offset, Limit: limit, Total: total}
		SetLinkHeaders(c, pg)
		return c.JSON(PaginatedResponse{Data: rows, Pagination: pg})
	}
}

// MapHandler returns the markers and viewport for the session's current table.
func MapHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		view, err := deps.Views.Map(c.UserContext(), c.Params("id"))
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(view)
	}
}

// SessionSummaryHandler describes the session's current table.
func SessionSummaryHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sum, err := deps.Views.Summary(c.UserContext(), c.Params("id"))
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(sum)
	}
}
