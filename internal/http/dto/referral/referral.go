// Package referral contiene los DTOs de los endpoints /referrer.
package referral

// RefIDResponse es {"ref_id": "..."}.
type RefIDResponse struct {
	RefID string `json:"ref_id"`
}

// MessageResponse es una confirmación simple.
type MessageResponse struct {
	Message string `json:"message"`
}

// UserItem es un usuario registrado con un código.
type UserItem struct {
	ID         string  `json:"id"`
	Email      string  `json:"email"`
	Name       string  `json:"name"`
	Identity   string  `json:"identity"`
	ReferralID *string `json:"referral_id"`
}

// ListResponse es la página de GET /referrer/get_referrals.
type ListResponse struct {
	Total  int        `json:"total"`
	Offset int        `json:"offset"`
	Limit  int        `json:"limit"`
	Items  []UserItem `json:"items"`
}

// ListQuery son los parámetros de GET /referrer/get_referrals.
type ListQuery struct {
	ReferrerID string `query:"referrer_id" validate:"required"`
	Limit      int    `query:"limit" validate:"gte=1,lte=100"`
	Offset     int    `query:"offset" validate:"gte=0"`
}

// ReferrerQuery es el parámetro de GET /referrer/get_referrer.
type ReferrerQuery struct {
	Email string `query:"email" validate:"required,email"`
}
