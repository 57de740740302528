package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"pesan/internal/domain"
	"pesan/internal/metrics"
	"pesan/internal/realtime"
	"pesan/internal/security"
)

type wsAuthError struct {
	status int
	msg    string
}

func (e wsAuthError) Error() string {
	return e.msg
}

func normalizeAllowedOrigins(origins []string) map[string]struct{} {
	res := make(map[string]struct{}, len(origins))
	for _, origin := range origins {
		o := strings.TrimSpace(strings.ToLower(origin))
		if o != "" {
			res[o] = struct{}{}
		}
	}
	return res
}

func makeCheckOrigin(allowedOrigins []string) func(r *http.Request) bool {
	allowed := normalizeAllowedOrigins(allowedOrigins)
	if len(allowed) == 0 {
		return func(r *http.Request) bool {
			return false
		}
	}

	return func(r *http.Request) bool {
		origin := strings.TrimSpace(strings.ToLower(r.Header.Get("Origin")))
		if origin == "" {
			return false
		}
		if _, ok := allowed[origin]; ok {
			return true
		}

		u, err := url.Parse(origin)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return false
		}
		normalized := strings.ToLower(fmt.Sprintf("%s://%s", u.Scheme, u.Host))
		_, ok := allowed[normalized]
		return ok
	}
}

func extractTokenFromWSRequest(r *http.Request) (string, error) {
	authHeader := strings.TrimSpace(r.Header.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(authHeader), "bearer ") {
		token := strings.TrimSpace(authHeader[len("Bearer "):])
		if token != "" {
			return token, nil
		}
	}

	protocolHeader := r.Header.Get("Sec-WebSocket-Protocol")
	if protocolHeader != "" {
		parts := strings.Split(protocolHeader, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		if len(parts) >= 2 && strings.EqualFold(parts[0], "bearer") {
			token := parts[1]
			if token != "" {
				return token, nil
			}
		}
	}

	return "", wsAuthError{status: http.StatusUnauthorized, msg: "missing bearer token"}
}

// inboundEvent is the wire format for client events: a type tag plus a typed
// payload decoded per event.
type inboundEvent struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type conversationPayload struct {
	ConversationID int64 `json:"conversation_id"`
}

type sendMessagePayload struct {
	ConversationID int64                 `json:"conversation_id"`
	SenderID       int64                 `json:"sender_id"`
	Content        domain.MessageContent `json:"content"`
}

// MakeHandler returns the HTTP handler for the /ws endpoint.
// Authenticates via Bearer token (Authorization header or
// Sec-WebSocket-Protocol), then dispatches events:
//   - join_conversation / leave_conversation -> room subscription, read-on-open
//   - send_message           -> shared create/fanout pipeline
//   - typing_start / typing_stop -> relayed to the room minus the sender
//   - mark_messages_as_read  -> batch read ack
func MakeHandler(
	hub *Hub,
	registry realtime.Registry,
	dispatcher *realtime.Dispatcher,
	tokens *security.TokenService,
	users domain.UserRepository,
	allowedOrigins []string,
	eventRate float64,
	eventBurst int,
) http.HandlerFunc {
	checkOrigin := makeCheckOrigin(allowedOrigins)
	upgrader := websocket.Upgrader{
		CheckOrigin: checkOrigin,
		Subprotocols: []string{
			"bearer",
		},
	}

	return func(w http.ResponseWriter, r *http.Request) {
		if !checkOrigin(r) {
			http.Error(w, "origin not allowed", http.StatusForbidden)
			return
		}

		tokenStr, err := extractTokenFromWSRequest(r)
		if err != nil {
			if authErr, ok := err.(wsAuthError); ok {
				http.Error(w, authErr.msg, authErr.status)
				return
			}
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		userID, err := tokens.Parse(tokenStr)
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}

		ctx := r.Context()
		user, err := users.GetByID(ctx, userID)
		if err != nil || user == nil {
			http.Error(w, "user not found", http.StatusUnauthorized)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		client := NewClient(uuid.NewString(), user.ID, user.Name, conn)
		hub.Add(client)
		if cameOnline := registry.Register(user.ID, client.ID); cameOnline {
			dispatcher.HandleConnect(ctx, user.ID)
		}
		defer func() {
			hub.Remove(client)
			if wentOffline := registry.Unregister(user.ID, client.ID); wentOffline {
				// request context is done once the conn drops
				dispatcher.HandleDisconnect(context.Background(), user.ID)
			}
		}()

		limiter := rate.NewLimiter(rate.Limit(eventRate), eventBurst)

		for {
			var ev inboundEvent
			if err := conn.ReadJSON(&ev); err != nil {
				break
			}
			if !limiter.Allow() {
				client.SendError("too many events")
				continue
			}
			metrics.EventsReceived.WithLabelValues(ev.Type).Inc()

			switch ev.Type {

			case "join_conversation":
				var p conversationPayload
				if err := json.Unmarshal(ev.Data, &p); err != nil || p.ConversationID == 0 {
					client.SendError("join_conversation requires conversation_id")
					continue
				}
				hub.JoinRoom(client, p.ConversationID)
				if err := dispatcher.HandleJoinConversation(ctx, user.ID, p.ConversationID); err != nil {
					log.Printf("ws: join_conversation %d for user %d: %v", p.ConversationID, user.ID, err)
				}

			case "leave_conversation":
				var p conversationPayload
				if err := json.Unmarshal(ev.Data, &p); err != nil || p.ConversationID == 0 {
					continue
				}
				hub.LeaveRoom(client, p.ConversationID)

			case "send_message":
				var p sendMessagePayload
				if err := json.Unmarshal(ev.Data, &p); err != nil || p.ConversationID == 0 {
					client.SendError("send_message requires conversation_id and content")
					continue
				}
				if p.SenderID != user.ID {
					// identity mismatch is dropped without a reply
					log.Printf("ws: sender mismatch, conn user %d payload user %d", user.ID, p.SenderID)
					continue
				}
				if _, err := dispatcher.SendMessage(ctx, user.ID, p.ConversationID, p.Content); err != nil {
					log.Printf("ws: send_message: %v", err)
					client.SendError("failed to send message")
				}

			case "typing_start", "typing_stop":
				var p conversationPayload
				if err := json.Unmarshal(ev.Data, &p); err != nil || p.ConversationID == 0 {
					continue
				}
				dispatcher.HandleTyping(user.ID, user.Name, p.ConversationID, ev.Type == "typing_start")

			case "mark_messages_as_read":
				var p conversationPayload
				if err := json.Unmarshal(ev.Data, &p); err != nil || p.ConversationID == 0 {
					continue
				}
				if err := dispatcher.HandleMarkRead(ctx, user.ID, p.ConversationID); err != nil {
					log.Printf("ws: mark_messages_as_read: %v", err)
					client.SendError("failed to mark messages as read")
				}

			default:
				log.Printf("ws: unknown event type %q from user %d", ev.Type, user.ID)
			}
		}
	}
}
