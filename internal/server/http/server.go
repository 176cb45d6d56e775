// Package httpserver exposes the chat, auth and subscription services as the
// JSON HTTP API consumed by the browser UI.
package httpserver

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/JesseOrSomething/ZenCode/internal/service"
)

// Server wires application services into HTTP handlers.
type Server struct {
	auth service.AuthService
	chat service.ChatService
	subs service.SubscriptionService
	log  *zap.Logger
}

// New constructs the HTTP server facade.
func New(auth service.AuthService, chat service.ChatService, subs service.SubscriptionService, log *zap.Logger) *Server {
	return &Server{auth: auth, chat: chat, subs: subs, log: log}
}

// Handler builds the route table with logging, recovery and CORS applied.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/auth/signup", s.handleSignup).Methods(http.MethodPost)
	api.HandleFunc("/auth/login", s.handleLogin).Methods(http.MethodPost)
	api.HandleFunc("/chat", s.optionalAuth(s.handleChat)).Methods(http.MethodPost)
	api.HandleFunc("/subscription", s.requireAuth(s.handleSubscriptionInfo)).Methods(http.MethodGet)
	api.HandleFunc("/subscription", s.requireAuth(s.handleSubscriptionUpdate)).Methods(http.MethodPost)
	api.HandleFunc("/create-checkout-session", s.requireAuth(s.handleCreateCheckout)).Methods(http.MethodPost)
	api.HandleFunc("/payment-success", s.requireAuth(s.handlePaymentSuccess)).Methods(http.MethodPost)
	api.HandleFunc("/cancel-subscription", s.requireAuth(s.handleCancelSubscription)).Methods(http.MethodPost)

	var h http.Handler = r
	h = cors(h)
	h = logging(s.log)(h)
	h = recoverPanics(s.log)(h)
	return h
}
