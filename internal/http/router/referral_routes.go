package router

import "github.com/go-chi/chi/v5"

// registerReferralRoutes registra los endpoints /referrer.
func registerReferralRoutes(r chi.Router, d Deps) {
	if d.Referral == nil {
		return
	}
	c := d.Referral.Referral

	r.Route("/referrer", func(r chi.Router) {
		// POST /referrer/create?until_at= - requiere sesión
		r.Post("/create", c.Create)
		// POST /referrer/delete?referrer_id= - requiere sesión
		r.Post("/delete", c.Delete)
		// GET /referrer/get_referrer?email=
		r.Get("/get_referrer", c.GetReferrer)
		// GET /referrer/get_referrals?referrer_id=&limit=&offset=
		r.Get("/get_referrals", c.GetReferrals)
	})
}
