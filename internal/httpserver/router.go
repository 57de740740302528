package httpserver

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"pesan/internal/config"
	"pesan/internal/domain"
	"pesan/internal/realtime"
	"pesan/internal/security"
	"pesan/internal/service"
	"pesan/internal/ws"
)

// Repositories groups the persistence interfaces the router wires into
// services. The concrete store (postgres or sqlite) is chosen in main.
type Repositories struct {
	Users         domain.UserRepository
	Contacts      domain.ContactRepository
	Conversations domain.ConversationRepository
	Participants  domain.ParticipantRepository
	Messages      domain.MessageRepository
}

// NewRouter constructs the main HTTP router and wires routes, services, and middleware.
func NewRouter(
	cfg *config.Config,
	repos Repositories,
	hub *ws.Hub,
	registry realtime.Registry,
	dispatcher *realtime.Dispatcher,
	views *realtime.ViewBuilder,
	tokenSvc *security.TokenService,
	passwordHasher *security.PasswordHasher,
) http.Handler {
	r := chi.NewRouter()

	// Middlewares
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Services
	authSvc := service.NewAuthService(repos.Users, tokenSvc, passwordHasher)
	userSvc := service.NewUserService(repos.Users)
	contactSvc := service.NewContactService(repos.Contacts)
	convSvc := service.NewConversationService(repos.Conversations, repos.Participants, repos.Users, views)
	msgSvc := service.NewMessageService(repos.Participants, repos.Messages, cfg.MessagePageSize)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"message":%q,"version":"1.0.0"}`, cfg.AppName)
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	})

	r.Handle("/metrics", promhttp.Handler())

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Auth routes (no auth required)
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", handleRegister(authSvc))
			r.Post("/login", handleLogin(authSvc))
		})

		// Authenticated routes
		r.Group(func(r chi.Router) {
			r.Use(AuthMiddleware(tokenSvc, repos.Users))

			r.Get("/auth/me", handleMe())

			// Users
			r.Route("/users", func(r chi.Router) {
				r.Get("/", handleSearchUsers(userSvc))
				r.Put("/me", handleUpdateProfile(userSvc))
			})

			// Contacts
			r.Route("/contacts", func(r chi.Router) {
				r.Post("/", handleCreateContact(contactSvc))
				r.Get("/", handleListContacts(contactSvc))
				r.Put("/{contactID}", handleUpdateContact(contactSvc))
				r.Delete("/{contactID}", handleDeleteContact(contactSvc))
			})

			// Conversations and messages
			r.Route("/conversations", func(r chi.Router) {
				r.Post("/", handleCreateConversation(convSvc))
				r.Get("/", handleListConversations(convSvc))
				r.Get("/{conversationID}", handleGetConversation(convSvc))
				r.Post("/{conversationID}/read", handleMarkConversationRead(dispatcher))
				r.Get("/{conversationID}/messages", handleListMessages(msgSvc))
				r.Post("/{conversationID}/messages", handleSendMessage(dispatcher))
			})

			// Messages addressed directly by id
			r.Route("/messages", func(r chi.Router) {
				r.Post("/delivered", handleMarkDelivered(msgSvc))
				r.Put("/{messageID}", handleEditMessage(msgSvc))
				r.Delete("/{messageID}", handleDeleteMessageForMe(msgSvc))
				r.Delete("/{messageID}/all", handleDeleteMessageForEveryone(msgSvc))
			})

			// Uploads (implementation in separate file)
			r.Mount("/uploads", UploadRoutes(cfg))
		})
	})

	// WebSocket endpoint
	r.Get("/ws", ws.MakeHandler(
		hub, registry, dispatcher, tokenSvc, repos.Users,
		cfg.CORSOrigins, cfg.WSEventRate, cfg.WSEventBurst,
	))

	return r
}
