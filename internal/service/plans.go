package service

import (
	"fmt"

	"github.com/JesseOrSomething/ZenCode/internal/model"
)

// ProPriceCents is the monthly pro price charged at checkout ($17.49).
const ProPriceCents int64 = 1749

// Plans builds the plan catalog for a configured free-tier daily limit.
func Plans(freeLimit int) map[model.PlanID]model.Plan {
	return map[model.PlanID]model.Plan{
		model.PlanFree: {
			ID:         model.PlanFree,
			Name:       "Free",
			Price:      0,
			DailyLimit: freeLimit,
			Features: []string{
				fmt.Sprintf("%d questions per day", freeLimit),
				"Basic AI responses",
				"Text-only conversations",
			},
		},
		model.PlanPro: {
			ID:         model.PlanPro,
			Name:       "Pro",
			Price:      float64(ProPriceCents) / 100,
			DailyLimit: model.UnlimitedDaily,
			Features: []string{
				"Unlimited questions",
				"Image analysis",
				"Conversation history",
				"Priority support",
			},
		},
	}
}
