// Package model defines domain entities used by services and repositories.
package model

import (
	"time"

	"github.com/gofrs/uuid/v5"
)

// PlanID identifies a subscription tier.
type PlanID string

const (
	PlanFree PlanID = "free"
	PlanPro  PlanID = "pro"
)

// Valid reports whether the plan id is one of the known tiers.
func (p PlanID) Valid() bool { return p == PlanFree || p == PlanPro }

// UnlimitedDaily marks a plan without a daily question quota.
const UnlimitedDaily = -1

// Plan describes a subscription tier as shown to clients.
type Plan struct {
	ID         PlanID   `json:"id"`
	Name       string   `json:"name"`
	Price      float64  `json:"price"`
	DailyLimit int      `json:"dailyLimit"` // UnlimitedDaily means no quota
	Features   []string `json:"features"`
}

// Tokens collects issued access tokens.
type Tokens struct {
	AccessToken string
	ExpiresAt   time.Time // access token expiry (for diagnostics)
}

// User represents an account stored on the server.
type User struct {
	ID       uuid.UUID `json:"id"` // PK
	Name     string    `json:"name"`
	Email    string    `json:"email"` // unique
	PwdHash  []byte    `json:"pwdHash"`
	SaltAuth []byte    `json:"saltAuth"` // per-user auth salt

	Plan         PlanID     `json:"plan"`
	SubscribedAt *time.Time `json:"subscribedAt,omitempty"`

	// Payment provider references, set after a confirmed checkout.
	BillingCustomerID     string `json:"billingCustomerId,omitempty"`
	BillingSubscriptionID string `json:"billingSubscriptionId,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
}

// Role marks the author of a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one message in a conversation. Immutable once created.
type Turn struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	ImageURL  string    `json:"imageUrl,omitempty"` // data URL, user turns only
	CreatedAt time.Time `json:"createdAt"`
}

// UsageRecord is a per-identity daily question counter.
// Day always equals the ledger's notion of "today" after any read or write.
type UsageRecord struct {
	Count int    `json:"count"`
	Day   string `json:"day"` // civil date, YYYY-MM-DD
}

// DenyReason explains a denied session decision.
type DenyReason string

// DenyDailyLimit means the caller exhausted today's free-tier quota.
const DenyDailyLimit DenyReason = "daily_limit_exceeded"

// Decision is the outcome of admitting one chat request.
type Decision struct {
	Admitted  bool
	Reason    DenyReason // empty when admitted
	Remaining int        // UnlimitedDaily for pro, 0 on denial
	Context   []Turn     // trimmed window to send to the LLM, nil on denial
}

// Snapshot is the persistable state of the ledger and conversation windows.
type Snapshot struct {
	Usage         map[string]UsageRecord `json:"usage"`
	Conversations map[string][]Turn      `json:"conversations"`
}
