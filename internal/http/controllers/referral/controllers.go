// Package referral contiene los controllers de /referrer.
package referral

import svc "github.com/dropDatabas3/refgate/internal/http/services/referral"

// Controllers agrupa todos los controllers del dominio referral.
type Controllers struct {
	Referral *ReferralController
}

// NewControllers crea el agregador de controllers referral.
func NewControllers(s svc.Service) *Controllers {
	return &Controllers{
		Referral: NewReferralController(s),
	}
}
