// Package entitlement maps subscription plans to feature limits.
package entitlement

import "github.com/nestfolio/nestfolio-server/internal/domain"

// premiumCapMultiplier scales the base active-collection cap for paid
// plans.
const premiumCapMultiplier = 5

// MaxActiveCollections returns how many collections of one agent the
// scheduler will keep refreshing. base is the configured free-plan cap.
func MaxActiveCollections(plan domain.Plan, base int) int {
	if plan == domain.PlanPremium {
		return base * premiumCapMultiplier
	}
	return base
}

// CanRequestDetails reports whether the plan may ask address lookups for
// the provider's full detail payload.
func CanRequestDetails(plan domain.Plan) bool {
	return plan == domain.PlanPremium
}
