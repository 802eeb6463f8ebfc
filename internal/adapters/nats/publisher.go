package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/planpresso/internal/core/domain"
)

// Subject prefixes. Owner and context tokens are passed through SubjectToken.
const (
	SubjectRender = "planpresso.render."
	SubjectPlan   = "planpresso.plan."
	SubjectDraft  = "planpresso.draft."
)

// Event types carried in Event.Type.
const (
	EventPlanSaved  = "plan.saved"
	EventDraftSaved = "draft.saved"
)

// Event is the payload relayed to map clients.
type Event struct {
	Type      string       `json:"type"`
	PlanID    string       `json:"plan_id,omitempty"`
	Owner     string       `json:"owner"`
	Context   string       `json:"context,omitempty"`
	Name      string       `json:"name"`
	Stats     domain.Stats `json:"stats"`
	Timestamp time.Time    `json:"timestamp"`
	Plan      *domain.Plan `json:"plan,omitempty"`
}

// Streams ensured at startup.
var streams = []nats.StreamConfig{
	{
		Name:      "PLAN_RENDER",
		Subjects:  []string{SubjectRender + ">"},
		Retention: nats.WorkQueuePolicy,
		MaxAge:    1 * time.Hour,
		Storage:   nats.FileStorage,
	},
	{
		Name:      "PLAN_EVENTS",
		Subjects:  []string{SubjectPlan + ">"},
		Retention: nats.InterestPolicy,
		MaxAge:    24 * time.Hour,
		Storage:   nats.FileStorage,
	},
	{
		Name:              "PLAN_DRAFTS",
		Subjects:          []string{SubjectDraft + ">"},
		Retention:         nats.LimitsPolicy,
		MaxAge:            1 * time.Hour,
		MaxMsgsPerSubject: 1,
		Storage:           nats.MemoryStorage,
	},
}

// Publisher implements ports.PlanRenderer and ports.EventPublisher on NATS
// JetStream.
type Publisher struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

// NewPublisher connects to NATS and makes sure the plan streams exist.
func NewPublisher(url string) (*Publisher, error) {
	conn, err := RawConn(url)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	for _, cfg := range streams {
		cfg := cfg
		if _, err := js.AddStream(&cfg); err != nil {
			// Stream may already exist with an older config.
			if _, err := js.UpdateStream(&cfg); err != nil {
				conn.Close()
				return nil, fmt.Errorf("ensure stream %s: %w", cfg.Name, err)
			}
		}
	}

	return &Publisher{conn: conn, js: js}, nil
}

// RenderPlan queues a saved plan for the renderer.
func (p *Publisher) RenderPlan(ctx context.Context, sp *domain.SavedPlan) error {
	data, err := json.Marshal(sp)
	if err != nil {
		return err
	}
	_, err = p.js.Publish(SubjectRender+SubjectToken(sp.ID), data, nats.Context(ctx), nats.MsgId("render-"+sp.ID))
	return err
}

func (p *Publisher) PublishPlanSaved(ctx context.Context, sp *domain.SavedPlan) error {
	_, name := domain.SplitEmoji(sp.Plan.Name)
	data, err := json.Marshal(Event{
		Type:      EventPlanSaved,
		PlanID:    sp.ID,
		Owner:     sp.Owner,
		Name:      name,
		Stats:     sp.Plan.Stats(),
		Timestamp: sp.SavedAt,
	})
	if err != nil {
		return err
	}
	_, err = p.js.Publish(PlanSubject(sp.Owner), data, nats.Context(ctx))
	return err
}

// PublishDraftSaved announces a draft write. Only the latest draft per owner
// and context is retained.
func (p *Publisher) PublishDraftSaved(ctx context.Context, owner, editorContext string, d domain.Draft) error {
	plan := d.Data
	data, err := json.Marshal(Event{
		Type:      EventDraftSaved,
		Owner:     owner,
		Context:   editorContext,
		Name:      plan.Name,
		Stats:     plan.Stats(),
		Timestamp: d.Timestamp,
		Plan:      &plan,
	})
	if err != nil {
		return err
	}
	_, err = p.js.Publish(DraftSubject(owner, editorContext), data, nats.Context(ctx))
	return err
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	_ = p.conn.Drain()
}

// PlanSubject is the subject plan events for owner are published on.
func PlanSubject(owner string) string {
	return SubjectPlan + SubjectToken(owner) + ".saved"
}

// DraftSubject is the subject draft events for owner are published on. An
// empty context yields the wildcard over all contexts.
func DraftSubject(owner, editorContext string) string {
	if editorContext == "" {
		return SubjectDraft + SubjectToken(owner) + ".*"
	}
	return SubjectDraft + SubjectToken(owner) + "." + SubjectToken(editorContext)
}

// SubjectToken maps s onto a single NATS subject token.
func SubjectToken(s string) string {
	if s == "" {
		return "_"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t', '\r', '\n':
			return '_'
		}
		return r
	}, s)
}

// RawConn creates a plain NATS connection, used by the WebSocket relay.
func RawConn(url string) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.Name("planpresso"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
}
