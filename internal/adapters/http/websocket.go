package http

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/nats-io/nats.go"

	natsadapter "github.com/samirrijal/planpresso/internal/adapters/nats"
	"github.com/samirrijal/planpresso/internal/core/domain"
	"github.com/samirrijal/planpresso/internal/core/usecases"
	"github.com/samirrijal/planpresso/internal/pkg/metrics"
)

// wsMessage is sent from client to subscribe, unsubscribe or search.
type wsMessage struct {
	Action  string `json:"action"`  // "subscribe" | "unsubscribe" | "search"
	Channel string `json:"channel"` // "plans" | "drafts" (default: plans)
	Context string `json:"context"` // editor context filter for drafts ("" = all)
	Query   string `json:"query"`   // search box input
}

// wsPlaces carries place search results to the client.
type wsPlaces struct {
	Type   string         `json:"type"`
	Query  string         `json:"query"`
	Places []domain.Place `json:"places"`
	Error  string         `json:"error,omitempty"`
}

// WebSocketUpgrade admits upgrade requests and remembers the caller.
func WebSocketUpgrade() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		owner := c.Query("owner")
		if owner == "" {
			owner = ownerOf(c)
		}
		c.Locals("owner", owner)
		return c.Next()
	}
}

// WebSocketHandler relays the caller's plan and draft events from NATS and
// answers place searches. Clients send JSON such as
// {"action":"subscribe","channel":"drafts","context":"editor"} or
// {"action":"search","query":"Prag"}. Plan events are subscribed by default.
func WebSocketHandler(deps *Dependencies) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		defer c.Close()

		owner, _ := c.Locals("owner").(string)
		if owner == "" {
			owner = usecases.AnonymousOwner
		}
		log := slog.Default().With("remote", c.RemoteAddr().String(), "owner", owner)
		log.Info("ws client connected")
		metrics.ActiveWebSockets.Inc()
		defer metrics.ActiveWebSockets.Dec()

		var mu sync.Mutex
		subs := make(map[string]*nats.Subscription) // subject -> subscription

		writeJSON := func(v interface{}) error {
			data, err := json.Marshal(v)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			return c.WriteMessage(websocket.TextMessage, data)
		}

		subscribe := func(subject string) error {
			s, err := deps.NATS.Subscribe(subject, func(msg *nats.Msg) {
				_ = writeJSON(json.RawMessage(msg.Data))
			})
			if err != nil {
				return err
			}
			subs[subject] = s
			return nil
		}

		if deps.NATS != nil {
			if err := subscribe(natsadapter.PlanSubject(owner)); err != nil {
				log.Warn("ws default subscribe failed", "error", err)
				return
			}
		}

		var search *usecases.PlaceSearch
		if deps.Geocoder != nil {
			search = deps.placeSearch(func(r usecases.SearchResult) {
				out := wsPlaces{Type: "places", Query: r.Query, Places: r.Places}
				if r.Err != nil {
					out.Error = "place search is unavailable"
				}
				_ = writeJSON(out)
			})
			defer search.Close()
		}

		// Keep-alive ping
		done := make(chan struct{})
		go func() {
			ticker := time.NewTicker(30 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					mu.Lock()
					err := c.WriteMessage(websocket.PingMessage, nil)
					mu.Unlock()
					if err != nil {
						return
					}
				case <-done:
					return
				}
			}
		}()

		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				break
			}

			var m wsMessage
			if err := json.Unmarshal(msg, &m); err != nil {
				_ = writeJSON(map[string]string{"error": "invalid JSON"})
				continue
			}

			if m.Action == "search" {
				if search == nil {
					_ = writeJSON(map[string]string{"error": "place search is not configured"})
					continue
				}
				search.Query(m.Query)
				continue
			}

			if deps.NATS == nil {
				_ = writeJSON(map[string]string{"error": "events are not available"})
				continue
			}

			channel := m.Channel
			if channel == "" {
				channel = "plans"
			}

			var subject string
			switch channel {
			case "plans":
				subject = natsadapter.PlanSubject(owner)
			case "drafts":
				if m.Context != "" && !domain.ValidContext(m.Context) {
					_ = writeJSON(map[string]string{"error": "unknown context: " + m.Context})
					continue
				}
				subject = natsadapter.DraftSubject(owner, m.Context)
			default:
				_ = writeJSON(map[string]string{"error": "unknown channel: " + channel})
				continue
			}

			switch m.Action {
			case "subscribe":
				if _, exists := subs[subject]; exists {
					_ = writeJSON(map[string]string{"status": "already subscribed", "subject": subject})
					continue
				}
				if err := subscribe(subject); err != nil {
					_ = writeJSON(map[string]string{"error": "subscribe failed: " + err.Error()})
					continue
				}
				_ = writeJSON(map[string]string{"status": "subscribed", "subject": subject})

			case "unsubscribe":
				if s, exists := subs[subject]; exists {
					_ = s.Unsubscribe()
					delete(subs, subject)
					_ = writeJSON(map[string]string{"status": "unsubscribed", "subject": subject})
				} else {
					_ = writeJSON(map[string]string{"error": "not subscribed to " + subject})
				}

			default:
				_ = writeJSON(map[string]string{"error": "unknown action: " + m.Action})
			}
		}

		close(done)
		for _, s := range subs {
			_ = s.Unsubscribe()
		}
		log.Info("ws client disconnected")
	}
}
