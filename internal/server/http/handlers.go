package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/JesseOrSomething/ZenCode/internal/errs"
	"github.com/JesseOrSomething/ZenCode/internal/model"
	"github.com/JesseOrSomething/ZenCode/internal/service"
)

// request bodies are capped; the original allowed large base64 images.
const maxBodyBytes = 50 << 20

type userPayload struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func toUserPayload(u *model.User) userPayload {
	return userPayload{ID: u.ID.String(), Name: u.Name, Email: u.Email}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "OK",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !decodeBody(w, r, &in) {
		return
	}
	tokens, u, err := s.auth.Register(r.Context(), in.Name, in.Email, in.Password)
	if err != nil {
		if errors.Is(err, errs.ErrAlreadyExists) {
			writeError(w, http.StatusBadRequest, "user already exists with this email")
			return
		}
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "User created successfully",
		"user":    toUserPayload(u),
		"token":   tokens.AccessToken,
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !decodeBody(w, r, &in) {
		return
	}
	tokens, u, err := s.auth.Login(r.Context(), in.Email, in.Password)
	if err != nil {
		if errors.Is(err, errs.ErrUnauthorized) {
			writeError(w, http.StatusUnauthorized, "invalid email or password")
			return
		}
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Login successful",
		"user":    toUserPayload(u),
		"token":   tokens.AccessToken,
	})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Message        string `json:"message"`
		Image          string `json:"image"`
		ConversationID string `json:"conversationId"`
	}
	if !decodeBody(w, r, &in) {
		return
	}

	req := service.ChatInput{
		Message:        in.Message,
		Image:          in.Image,
		ConversationID: in.ConversationID,
	}
	if id, ok := userIDFromCtx(r.Context()); ok {
		req.UserID = id
	} else {
		req.GuestKey = guestKey(r)
	}

	out, err := s.chat.Send(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	if !out.Admitted {
		writeJSON(w, http.StatusTooManyRequests, map[string]any{
			"error":           "Daily limit exceeded",
			"message":         fmt.Sprintf("You've reached your daily limit of %d questions. Please upgrade your plan for unlimited access.", out.Limit),
			"upgradeRequired": true,
		})
		return
	}
	resp := map[string]any{
		"response":       out.Reply,
		"conversationId": out.ConversationID,
	}
	if out.Remaining != model.UnlimitedDaily {
		resp["remaining"] = out.Remaining
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSubscriptionInfo(w http.ResponseWriter, r *http.Request) {
	id, _ := userIDFromCtx(r.Context())
	info, err := s.subs.Info(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"plan":        info.Plan,
		"planDetails": info.PlanDetails,
		"usage": map[string]any{
			"today":     info.Today,
			"limit":     info.Limit,
			"unlimited": info.Unlimited,
		},
	})
}

func (s *Server) handleSubscriptionUpdate(w http.ResponseWriter, r *http.Request) {
	id, _ := userIDFromCtx(r.Context())
	var in struct {
		Plan model.PlanID `json:"plan"`
	}
	if !decodeBody(w, r, &in) {
		return
	}
	plan, err := s.subs.ChooseFree(r.Context(), id, in.Plan)
	if err != nil {
		if errors.Is(err, errs.ErrPaymentRequired) {
			writeJSON(w, http.StatusPaymentRequired, map[string]any{
				"error":             "Payment required",
				"message":           "Please complete payment to upgrade to Pro plan",
				"redirectToPayment": true,
			})
			return
		}
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":     "Subscription updated successfully",
		"plan":        plan.ID,
		"planDetails": plan,
	})
}

func (s *Server) handleCreateCheckout(w http.ResponseWriter, r *http.Request) {
	id, _ := userIDFromCtx(r.Context())
	var in struct {
		Plan model.PlanID `json:"plan"`
	}
	if !decodeBody(w, r, &in) {
		return
	}
	co, err := s.subs.StartCheckout(r.Context(), id, in.Plan)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"sessionId": co.ID,
		"url":       co.URL,
	})
}

func (s *Server) handlePaymentSuccess(w http.ResponseWriter, r *http.Request) {
	id, _ := userIDFromCtx(r.Context())
	var in struct {
		SessionID string `json:"sessionId"`
	}
	if !decodeBody(w, r, &in) {
		return
	}
	plan, err := s.subs.ConfirmCheckout(r.Context(), id, in.SessionID)
	if err != nil {
		if errors.Is(err, errs.ErrPaymentRequired) {
			writeError(w, http.StatusBadRequest, "payment not completed")
			return
		}
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":     "Payment successful! Pro plan activated.",
		"plan":        plan.ID,
		"planDetails": plan,
	})
}

func (s *Server) handleCancelSubscription(w http.ResponseWriter, r *http.Request) {
	id, _ := userIDFromCtx(r.Context())
	plan, err := s.subs.Cancel(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":     "Subscription cancelled successfully. You have been downgraded to the Free plan.",
		"plan":        plan.ID,
		"planDetails": plan,
	})
}

// guestKey derives the ephemeral ledger key for anonymous callers: a
// client-supplied header, or the remote host when absent.
func guestKey(r *http.Request) string {
	if k := r.Header.Get("X-Guest-Key"); k != "" {
		return k
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// writeServiceError maps sentinel errors onto HTTP statuses.
func (s *Server) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errs.ErrValidation),
		errors.Is(err, errs.ErrInvalidIdentity),
		errors.Is(err, errs.ErrInvalidConversation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, errs.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, errs.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, errs.ErrAlreadyExists):
		writeError(w, http.StatusBadRequest, "already exists")
	case errors.Is(err, errs.ErrPaymentRequired):
		writeError(w, http.StatusPaymentRequired, "payment required")
	default:
		s.log.Error("request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
