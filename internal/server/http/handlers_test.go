package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/JesseOrSomething/ZenCode/internal/errs"
	"github.com/JesseOrSomething/ZenCode/internal/model"
	"github.com/JesseOrSomething/ZenCode/internal/payment"
	"github.com/JesseOrSomething/ZenCode/internal/service"
)

type fakeAuth struct {
	userID uuid.UUID
	token  string

	registerErr error
	loginErr    error
}

var _ service.AuthService = (*fakeAuth)(nil)

func (f *fakeAuth) Register(_ context.Context, name, email, _ string) (model.Tokens, *model.User, error) {
	if f.registerErr != nil {
		return model.Tokens{}, nil, f.registerErr
	}
	return model.Tokens{AccessToken: f.token}, &model.User{ID: f.userID, Name: name, Email: email}, nil
}

func (f *fakeAuth) Login(_ context.Context, email, _ string) (model.Tokens, *model.User, error) {
	if f.loginErr != nil {
		return model.Tokens{}, nil, f.loginErr
	}
	return model.Tokens{AccessToken: f.token}, &model.User{ID: f.userID, Email: email}, nil
}

func (f *fakeAuth) Verify(token string) (uuid.UUID, error) {
	if token != f.token {
		return uuid.Nil, errs.ErrUnauthorized
	}
	return f.userID, nil
}

type fakeChat struct {
	out *service.ChatOutput
	err error

	lastInput service.ChatInput
}

var _ service.ChatService = (*fakeChat)(nil)

func (f *fakeChat) Send(_ context.Context, in service.ChatInput) (*service.ChatOutput, error) {
	f.lastInput = in
	return f.out, f.err
}

type fakeSubs struct {
	info *service.SubscriptionInfo

	chooseErr  error
	confirmErr error
	cancelErr  error
}

var _ service.SubscriptionService = (*fakeSubs)(nil)

func (f *fakeSubs) Info(context.Context, uuid.UUID) (*service.SubscriptionInfo, error) {
	return f.info, nil
}

func (f *fakeSubs) ChooseFree(_ context.Context, _ uuid.UUID, plan model.PlanID) (*model.Plan, error) {
	if f.chooseErr != nil {
		return nil, f.chooseErr
	}
	p := service.Plans(3)[plan]
	return &p, nil
}

func (f *fakeSubs) StartCheckout(context.Context, uuid.UUID, model.PlanID) (*payment.Checkout, error) {
	return &payment.Checkout{ID: "cs_1", URL: "https://checkout.example.test/cs_1"}, nil
}

func (f *fakeSubs) ConfirmCheckout(context.Context, uuid.UUID, string) (*model.Plan, error) {
	if f.confirmErr != nil {
		return nil, f.confirmErr
	}
	p := service.Plans(3)[model.PlanPro]
	return &p, nil
}

func (f *fakeSubs) Cancel(context.Context, uuid.UUID) (*model.Plan, error) {
	if f.cancelErr != nil {
		return nil, f.cancelErr
	}
	p := service.Plans(3)[model.PlanFree]
	return &p, nil
}

func newTestServer(auth *fakeAuth, chat *fakeChat, subs *fakeSubs) http.Handler {
	return New(auth, chat, subs, zap.NewNop()).Handler()
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any, header map[string]string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	out := map[string]any{}
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
			t.Fatalf("decode response %q: %v", rec.Body.String(), err)
		}
	}
	return rec, out
}

func TestHandleHealth(t *testing.T) {
	t.Parallel()

	h := newTestServer(&fakeAuth{}, &fakeChat{}, &fakeSubs{})
	rec, out := doJSON(t, h, http.MethodGet, "/health", nil, nil)
	if rec.Code != http.StatusOK || out["status"] != "OK" {
		t.Fatalf("health: code=%d body=%v", rec.Code, out)
	}
}

func TestHandleSignup(t *testing.T) {
	t.Parallel()

	auth := &fakeAuth{userID: uuid.Must(uuid.NewV4()), token: "tok"}
	h := newTestServer(auth, &fakeChat{}, &fakeSubs{})

	rec, out := doJSON(t, h, http.MethodPost, "/api/auth/signup",
		map[string]string{"name": "Alice", "email": "a@b.c", "password": "pw"}, nil)
	if rec.Code != http.StatusCreated || out["token"] != "tok" {
		t.Fatalf("signup: code=%d body=%v", rec.Code, out)
	}

	auth.registerErr = errs.ErrAlreadyExists
	rec, out = doJSON(t, h, http.MethodPost, "/api/auth/signup",
		map[string]string{"name": "Alice", "email": "a@b.c", "password": "pw"}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("duplicate signup: code=%d body=%v", rec.Code, out)
	}
}

func TestHandleLogin_Unauthorized(t *testing.T) {
	t.Parallel()

	auth := &fakeAuth{loginErr: errs.ErrUnauthorized}
	h := newTestServer(auth, &fakeChat{}, &fakeSubs{})

	rec, _ := doJSON(t, h, http.MethodPost, "/api/auth/login",
		map[string]string{"email": "a@b.c", "password": "bad"}, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("login: code=%d", rec.Code)
	}
}

func TestHandleChat_AuthenticatedAndGuest(t *testing.T) {
	t.Parallel()

	auth := &fakeAuth{userID: uuid.Must(uuid.NewV4()), token: "tok"}
	chat := &fakeChat{out: &service.ChatOutput{
		Admitted:       true,
		Remaining:      2,
		Reply:          "hello",
		ConversationID: "c1",
	}}
	h := newTestServer(auth, chat, &fakeSubs{})

	// Authenticated caller.
	rec, out := doJSON(t, h, http.MethodPost, "/api/chat",
		map[string]string{"message": "hi"},
		map[string]string{"Authorization": "Bearer tok"})
	if rec.Code != http.StatusOK || out["response"] != "hello" || out["conversationId"] != "c1" {
		t.Fatalf("chat: code=%d body=%v", rec.Code, out)
	}
	if chat.lastInput.UserID != auth.userID || chat.lastInput.GuestKey != "" {
		t.Fatalf("input: %+v", chat.lastInput)
	}

	// An invalid token degrades to a guest, keyed by the guest header.
	_, _ = doJSON(t, h, http.MethodPost, "/api/chat",
		map[string]string{"message": "hi"},
		map[string]string{"Authorization": "Bearer wrong", "X-Guest-Key": "g1"})
	if chat.lastInput.UserID != uuid.Nil || chat.lastInput.GuestKey != "g1" {
		t.Fatalf("guest input: %+v", chat.lastInput)
	}

	// No guest header falls back to the remote host.
	_, _ = doJSON(t, h, http.MethodPost, "/api/chat",
		map[string]string{"message": "hi"}, nil)
	if chat.lastInput.GuestKey == "" {
		t.Fatalf("missing fallback guest key: %+v", chat.lastInput)
	}
}

func TestHandleChat_DailyLimit429(t *testing.T) {
	t.Parallel()

	chat := &fakeChat{out: &service.ChatOutput{Admitted: false, Limit: 3, ConversationID: "c1"}}
	h := newTestServer(&fakeAuth{}, chat, &fakeSubs{})

	rec, out := doJSON(t, h, http.MethodPost, "/api/chat",
		map[string]string{"message": "hi"}, map[string]string{"X-Guest-Key": "g1"})
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("chat denial: code=%d", rec.Code)
	}
	if out["upgradeRequired"] != true {
		t.Fatalf("denial body: %v", out)
	}
}

func TestHandleChat_ValidationMapsTo400(t *testing.T) {
	t.Parallel()

	chat := &fakeChat{err: errs.ErrValidation}
	h := newTestServer(&fakeAuth{}, chat, &fakeSubs{})

	rec, _ := doJSON(t, h, http.MethodPost, "/api/chat",
		map[string]string{"message": ""}, map[string]string{"X-Guest-Key": "g1"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("validation: code=%d", rec.Code)
	}
}

func TestSubscriptionEndpointsRequireAuth(t *testing.T) {
	t.Parallel()

	auth := &fakeAuth{userID: uuid.Must(uuid.NewV4()), token: "tok"}
	subs := &fakeSubs{info: &service.SubscriptionInfo{
		Plan:        model.PlanFree,
		PlanDetails: service.Plans(3)[model.PlanFree],
		Today:       1,
		Limit:       3,
	}}
	h := newTestServer(auth, &fakeChat{}, subs)

	rec, _ := doJSON(t, h, http.MethodGet, "/api/subscription", nil, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("no token: code=%d", rec.Code)
	}

	rec, _ = doJSON(t, h, http.MethodGet, "/api/subscription", nil,
		map[string]string{"Authorization": "Bearer wrong"})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("bad token: code=%d", rec.Code)
	}

	rec, out := doJSON(t, h, http.MethodGet, "/api/subscription", nil,
		map[string]string{"Authorization": "Bearer tok"})
	if rec.Code != http.StatusOK || out["plan"] != "free" {
		t.Fatalf("info: code=%d body=%v", rec.Code, out)
	}
	usage, _ := out["usage"].(map[string]any)
	if usage["today"] != float64(1) || usage["limit"] != float64(3) {
		t.Fatalf("usage: %v", usage)
	}
}

func TestHandleSubscriptionUpdate_PaymentRequired(t *testing.T) {
	t.Parallel()

	auth := &fakeAuth{userID: uuid.Must(uuid.NewV4()), token: "tok"}
	subs := &fakeSubs{chooseErr: errs.ErrPaymentRequired}
	h := newTestServer(auth, &fakeChat{}, subs)

	rec, out := doJSON(t, h, http.MethodPost, "/api/subscription",
		map[string]string{"plan": "pro"},
		map[string]string{"Authorization": "Bearer tok"})
	if rec.Code != http.StatusPaymentRequired || out["redirectToPayment"] != true {
		t.Fatalf("update: code=%d body=%v", rec.Code, out)
	}
}

func TestCheckoutFlowEndpoints(t *testing.T) {
	t.Parallel()

	auth := &fakeAuth{userID: uuid.Must(uuid.NewV4()), token: "tok"}
	h := newTestServer(auth, &fakeChat{}, &fakeSubs{})
	hdr := map[string]string{"Authorization": "Bearer tok"}

	rec, out := doJSON(t, h, http.MethodPost, "/api/create-checkout-session",
		map[string]string{"plan": "pro"}, hdr)
	if rec.Code != http.StatusOK || out["sessionId"] != "cs_1" {
		t.Fatalf("checkout: code=%d body=%v", rec.Code, out)
	}

	rec, out = doJSON(t, h, http.MethodPost, "/api/payment-success",
		map[string]string{"sessionId": "cs_1"}, hdr)
	if rec.Code != http.StatusOK || out["plan"] != "pro" {
		t.Fatalf("payment-success: code=%d body=%v", rec.Code, out)
	}

	rec, out = doJSON(t, h, http.MethodPost, "/api/cancel-subscription", nil, hdr)
	if rec.Code != http.StatusOK || out["plan"] != "free" {
		t.Fatalf("cancel: code=%d body=%v", rec.Code, out)
	}
}

func TestHandlePaymentSuccess_NotPaid(t *testing.T) {
	t.Parallel()

	auth := &fakeAuth{userID: uuid.Must(uuid.NewV4()), token: "tok"}
	subs := &fakeSubs{confirmErr: errs.ErrPaymentRequired}
	h := newTestServer(auth, &fakeChat{}, subs)

	rec, _ := doJSON(t, h, http.MethodPost, "/api/payment-success",
		map[string]string{"sessionId": "cs_1"},
		map[string]string{"Authorization": "Bearer tok"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unpaid: code=%d", rec.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	t.Parallel()

	h := newTestServer(&fakeAuth{}, &fakeChat{}, &fakeSubs{})
	req := httptest.NewRequest(http.MethodOptions, "/api/chat", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("preflight: code=%d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("missing CORS headers: %v", rec.Header())
	}
}
