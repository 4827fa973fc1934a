package discount

import (
	"slices"
	"time"
)

// PromotionStatus is derived from the validity window and the enabled flag;
// it is never stored. The values are the storefront vocabulary.
type PromotionStatus string

const (
	PromotionScheduled PromotionStatus = "programada"
	PromotionActive    PromotionStatus = "activa"
	PromotionFinished  PromotionStatus = "finalizada"
)

// Promotion is a store-wide discount rule targeting a category or an explicit
// product list. Unlike a coupon it needs no code: it is surfaced automatically
// while active.
type Promotion struct {
	ID       string
	StoreID  string
	Name     string
	Rule     Rule
	Category string
	// ProductIDs targets explicit products. When empty, Category is the
	// target.
	ProductIDs []string
	StartsAt   time.Time
	EndsAt     time.Time
	Enabled    bool
}

// Status derives the promotion state at the given instant. A disabled
// promotion inside its window counts as scheduled: it has not started for
// customers, whatever the calendar says.
func (p Promotion) Status(now time.Time) PromotionStatus {
	if now.After(p.EndsAt) {
		return PromotionFinished
	}
	if now.Before(p.StartsAt) || !p.Enabled {
		return PromotionScheduled
	}
	return PromotionActive
}

// AppliesTo reports whether the promotion targets the given product.
func (p Promotion) AppliesTo(productID, category string) bool {
	if len(p.ProductIDs) > 0 {
		return slices.Contains(p.ProductIDs, productID)
	}
	return p.Category != "" && p.Category == category
}

// ActivePromotions filters promos down to those active at the given instant.
func ActivePromotions(promos []Promotion, now time.Time) []Promotion {
	var active []Promotion
	for _, p := range promos {
		if p.Status(now) == PromotionActive {
			active = append(active, p)
		}
	}
	return active
}
