package http

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/planpresso/internal/core/domain"
	"github.com/samirrijal/planpresso/internal/core/editor"
	"github.com/samirrijal/planpresso/internal/core/usecases"
	"github.com/samirrijal/planpresso/internal/core/validation"
)

// OwnerHeader names the plan owner. Requests without it act as the
// anonymous owner.
const OwnerHeader = "X-Plan-Owner"

func ownerOf(c *fiber.Ctx) string {
	if o := strings.TrimSpace(c.Get(OwnerHeader)); o != "" {
		return o
	}
	return usecases.AnonymousOwner
}

// SessionState is the full editor state returned after every session call.
type SessionState struct {
	ID          string             `json:"id"`
	Context     string             `json:"context"`
	View        domain.View        `json:"view"`
	Plan        *domain.Plan       `json:"plan,omitempty"`
	Text        string             `json:"text"`
	CanUndo     bool               `json:"can_undo"`
	CanRedo     bool               `json:"can_redo"`
	Stats       domain.Stats       `json:"stats"`
	Unsaved     bool               `json:"unsaved"`
	SyncPending bool               `json:"sync_pending"`
	Report      *validation.Report `json:"report,omitempty"`
}

func stateOf(id string, s *editor.Session) SessionState {
	st := SessionState{
		ID:          id,
		Context:     s.Context(),
		View:        s.View(),
		Text:        s.Text(),
		CanUndo:     s.CanUndo(),
		CanRedo:     s.CanRedo(),
		Stats:       s.Stats(),
		Unsaved:     s.HasUnsavedChanges(),
		SyncPending: s.SyncPending(),
	}
	if st.View == domain.ViewStructured {
		p := s.Plan()
		st.Plan = &p
	}
	if r, ok := s.LastReport(); ok {
		st.Report = &r
	}
	return st
}

// session resolves :id and checks that the caller owns it. A session of
// another owner reads as missing.
func session(c *fiber.Ctx, deps *Dependencies) (string, *editor.Session, error) {
	id := c.Params("id")
	owner, err := deps.Sessions.Owner(id)
	if err != nil {
		return "", nil, err
	}
	if owner != ownerOf(c) {
		return "", nil, domain.ErrSessionNotFound
	}
	s, err := deps.Sessions.Get(id)
	if err != nil {
		return "", nil, err
	}
	return id, s, nil
}

// withSession wraps a mutation of one session and answers with its state.
func withSession(deps *Dependencies, fn func(c *fiber.Ctx, id string, s *editor.Session) error) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, s, err := session(c, deps)
		if err != nil {
			return errFromDomain(c, err)
		}
		if err := fn(c, id, s); err != nil {
			return errFromDomain(c, err)
		}
		c.Set("Cache-Control", "no-store")
		return c.JSON(stateOf(id, s))
	}
}

func stopIndex(c *fiber.Ctx) (int, error) {
	i, err := c.ParamsInt("index")
	if err != nil {
		return 0, domain.ErrIndexOutOfRange
	}
	return i, nil
}

// OpenSessionHandler opens an editor session for the caller.
func OpenSessionHandler(deps *Dependencies) fiber.Handler {
	type request struct {
		Context string `json:"context"`
		Share   string `json:"share"`
	}
	return func(c *fiber.Ctx) error {
		var req request
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&req); err != nil {
				return errBadRequest(c, "invalid request body")
			}
		}
		if req.Context == "" {
			req.Context = domain.ContextEditor
		}

		res, err := deps.Sessions.Open(c.UserContext(), usecases.OpenRequest{
			Owner:   ownerOf(c),
			Context: req.Context,
			Share:   req.Share,
		})
		if err != nil {
			return errFromDomain(c, err)
		}
		s, err := deps.Sessions.Get(res.SessionID)
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.Status(201).JSON(fiber.Map{
			"session": res,
			"state":   stateOf(res.SessionID, s),
		})
	}
}

// GetSessionHandler returns the state of a session.
func GetSessionHandler(deps *Dependencies) fiber.Handler {
	return withSession(deps, func(c *fiber.Ctx, id string, s *editor.Session) error { return nil })
}

// CloseSessionHandler discards a session and its draft.
func CloseSessionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, _, err := session(c, deps)
		if err != nil {
			return errFromDomain(c, err)
		}
		if err := deps.Sessions.Close(id); err != nil {
			return errFromDomain(c, err)
		}
		return c.SendStatus(204)
	}
}

// SetTextHandler replaces the text view content.
func SetTextHandler(deps *Dependencies) fiber.Handler {
	type request struct {
		Text string `json:"text"`
	}
	return withSession(deps, func(c *fiber.Ctx, id string, s *editor.Session) error {
		var req request
		if err := c.BodyParser(&req); err != nil {
			return badRequest("invalid request body")
		}
		return s.SetText(req.Text)
	})
}

// UpdatePlanHandler edits the plan name and date range. Omitted fields are
// left alone.
func UpdatePlanHandler(deps *Dependencies) fiber.Handler {
	type request struct {
		Name     *string `json:"name"`
		DateFrom *string `json:"dateFrom"`
		DateTo   *string `json:"dateTo"`
		Commit   bool    `json:"commit"`
	}
	return withSession(deps, func(c *fiber.Ctx, id string, s *editor.Session) error {
		var req request
		if err := c.BodyParser(&req); err != nil {
			return badRequest("invalid request body")
		}
		if req.Name != nil {
			if err := s.SetName(*req.Name); err != nil {
				return err
			}
		}
		if req.DateFrom != nil || req.DateTo != nil {
			p := s.Plan()
			from, to := p.DateFrom, p.DateTo
			if req.DateFrom != nil {
				from = *req.DateFrom
			}
			if req.DateTo != nil {
				to = *req.DateTo
			}
			if err := s.SetPlanDates(from, to); err != nil {
				return err
			}
		}
		if req.Commit {
			s.Commit()
		}
		return nil
	})
}

// SetStopFieldHandler edits one field of a stop. commit marks the end of the
// edit (blur) and records an undo point.
func SetStopFieldHandler(deps *Dependencies) fiber.Handler {
	type request struct {
		Field  string `json:"field"`
		Value  string `json:"value"`
		Commit bool   `json:"commit"`
	}
	return withSession(deps, func(c *fiber.Ctx, id string, s *editor.Session) error {
		i, err := stopIndex(c)
		if err != nil {
			return err
		}
		var req request
		if err := c.BodyParser(&req); err != nil {
			return badRequest("invalid request body")
		}
		if err := s.SetStopField(i, req.Field, req.Value); err != nil {
			return err
		}
		if req.Commit {
			s.Commit()
		}
		return nil
	})
}

// CommitHandler records an undo point after field edits.
func CommitHandler(deps *Dependencies) fiber.Handler {
	return withSession(deps, func(c *fiber.Ctx, id string, s *editor.Session) error {
		s.Commit()
		return nil
	})
}

// AddStopHandler appends an empty stop.
func AddStopHandler(deps *Dependencies) fiber.Handler {
	return withSession(deps, func(c *fiber.Ctx, id string, s *editor.Session) error {
		return s.AddStop()
	})
}

// DuplicateStopHandler inserts a copy of a stop after it.
func DuplicateStopHandler(deps *Dependencies) fiber.Handler {
	return withSession(deps, func(c *fiber.Ctx, id string, s *editor.Session) error {
		i, err := stopIndex(c)
		if err != nil {
			return err
		}
		return s.DuplicateStop(i)
	})
}

// RemoveStopHandler deletes a stop.
func RemoveStopHandler(deps *Dependencies) fiber.Handler {
	return withSession(deps, func(c *fiber.Ctx, id string, s *editor.Session) error {
		i, err := stopIndex(c)
		if err != nil {
			return err
		}
		return s.RemoveStop(i)
	})
}

// MoveStopHandler reorders a stop and applies the chosen date action.
func MoveStopHandler(deps *Dependencies) fiber.Handler {
	type request struct {
		To         *int   `json:"to"`
		DateAction string `json:"dateAction"`
	}
	return withSession(deps, func(c *fiber.Ctx, id string, s *editor.Session) error {
		from, err := stopIndex(c)
		if err != nil {
			return err
		}
		var req request
		if err := c.BodyParser(&req); err != nil || req.To == nil {
			return badRequest("to is required")
		}
		action, err := domain.ParseDateAction(req.DateAction)
		if err != nil {
			return err
		}
		return s.MoveStop(from, *req.To, action)
	})
}

// UndoHandler steps back in history.
func UndoHandler(deps *Dependencies) fiber.Handler {
	return withSession(deps, func(c *fiber.Ctx, id string, s *editor.Session) error {
		_, err := deps.Sessions.Undo(id)
		return err
	})
}

// RedoHandler steps forward in history.
func RedoHandler(deps *Dependencies) fiber.Handler {
	return withSession(deps, func(c *fiber.Ctx, id string, s *editor.Session) error {
		_, err := deps.Sessions.Redo(id)
		return err
	})
}

// SwitchViewHandler moves between the structured and text views. Text that
// does not parse keeps the text view and answers 409.
func SwitchViewHandler(deps *Dependencies) fiber.Handler {
	type request struct {
		View string `json:"view"`
	}
	return withSession(deps, func(c *fiber.Ctx, id string, s *editor.Session) error {
		var req request
		if err := c.BodyParser(&req); err != nil {
			return badRequest("invalid request body")
		}
		v, err := domain.ParseView(req.View)
		if err != nil {
			return err
		}
		return deps.Sessions.SwitchView(id, v)
	})
}

// ValidateSessionHandler validates the document as it stands.
func ValidateSessionHandler(deps *Dependencies) fiber.Handler {
	return withSession(deps, func(c *fiber.Ctx, id string, s *editor.Session) error {
		_, err := deps.Sessions.Validate(id)
		return err
	})
}

// SaveSessionHandler promotes the document. A plan with errors is refused
// with 422 and the report.
func SaveSessionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, s, err := session(c, deps)
		if err != nil {
			return errFromDomain(c, err)
		}
		saved, report, err := deps.Sessions.Save(c.UserContext(), id)
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.Status(201).JSON(fiber.Map{
			"plan":   saved,
			"report": report,
			"state":  stateOf(id, s),
		})
	}
}

// LoadExampleHandler replaces the document with the builtin example.
func LoadExampleHandler(deps *Dependencies) fiber.Handler {
	return withSession(deps, func(c *fiber.Ctx, id string, s *editor.Session) error {
		return deps.Sessions.Load(id, deps.Plans.Example())
	})
}

// RestoreDraftHandler loads the stored draft into the session.
func RestoreDraftHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, s, err := session(c, deps)
		if err != nil {
			return errFromDomain(c, err)
		}
		ok, err := deps.Sessions.RestoreDraft(c.UserContext(), id)
		if err != nil {
			return errFromDomain(c, err)
		}
		if !ok {
			return errNotFound(c, "no draft stored")
		}
		return c.JSON(stateOf(id, s))
	}
}

// DiscardDraftHandler drops the stored draft.
func DiscardDraftHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, _, err := session(c, deps)
		if err != nil {
			return errFromDomain(c, err)
		}
		if err := deps.Sessions.DiscardDraft(id); err != nil {
			return errFromDomain(c, err)
		}
		return c.SendStatus(204)
	}
}

// RecoverSavedHandler loads one of the caller's saved plans.
func RecoverSavedHandler(deps *Dependencies) fiber.Handler {
	type request struct {
		PlanID string `json:"plan_id"`
	}
	return withSession(deps, func(c *fiber.Ctx, id string, s *editor.Session) error {
		var req request
		if err := c.BodyParser(&req); err != nil || req.PlanID == "" {
			return badRequest("plan_id is required")
		}
		_, err := deps.Sessions.RecoverSaved(c.UserContext(), id, req.PlanID)
		return err
	})
}

// ShareSessionHandler encodes the session document as a share payload.
func ShareSessionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		_, s, err := session(c, deps)
		if err != nil {
			return errFromDomain(c, err)
		}
		p, err := s.CurrentPlan()
		if err != nil {
			return errBadRequest(c, validation.ParseMessage(errors.Unwrap(err)))
		}
		payload, err := deps.Plans.Share(p)
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(fiber.Map{"payload": payload})
	}
}
