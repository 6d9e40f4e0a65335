package referral

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dropDatabas3/refgate/internal/domain/repository"
	"github.com/dropDatabas3/refgate/internal/domain/types"
	dto "github.com/dropDatabas3/refgate/internal/http/dto/referral"
	httperrors "github.com/dropDatabas3/refgate/internal/http/errors"
	"github.com/dropDatabas3/refgate/internal/http/helpers"
	"github.com/dropDatabas3/refgate/internal/http/middlewares"
	svc "github.com/dropDatabas3/refgate/internal/http/services/referral"
	"github.com/dropDatabas3/refgate/internal/observability/logger"
)

// ReferralController maneja alta, baja y consulta de códigos de referral.
type ReferralController struct {
	service svc.Service
}

// NewReferralController crea un nuevo controller de referral.
func NewReferralController(service svc.Service) *ReferralController {
	return &ReferralController{service: service}
}

// owner resuelve el usuario de la sesión. Sin sesión o sin usuario: 401.
func (c *ReferralController) owner(r *http.Request) (*repository.User, error) {
	ac := middlewares.GetAuth(r.Context())
	if !ac.Authenticated {
		return nil, types.ErrUnauthorizedAccess
	}
	return c.service.ResolveOwner(r.Context(), ac.Email())
}

// Create maneja POST /referrer/create?until_at=<RFC3339>
func (c *ReferralController) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("ReferralController.Create"))

	var untilAt *time.Time
	if raw := strings.TrimSpace(r.URL.Query().Get("until_at")); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			httperrors.WriteError(w, types.Invalid("until_at", "must be an RFC3339 datetime"))
			return
		}
		untilAt = &t
	}

	u, err := c.owner(r)
	if err != nil {
		httperrors.WriteError(w, err)
		return
	}

	ref, err := c.service.CreateForOwner(ctx, u.ID, untilAt)
	if err != nil {
		log.Debug("referral create failed", logger.Err(err))
		httperrors.WriteError(w, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, dto.RefIDResponse{RefID: ref.Code})
}

// Delete maneja POST /referrer/delete?referrer_id=
func (c *ReferralController) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("ReferralController.Delete"))

	code := strings.TrimSpace(r.URL.Query().Get("referrer_id"))
	if code == "" {
		httperrors.WriteError(w, types.Invalid("referrer_id", "field required"))
		return
	}

	u, err := c.owner(r)
	if err != nil {
		httperrors.WriteError(w, err)
		return
	}

	if err := c.service.DeleteForOwner(ctx, u.ID, code); err != nil {
		log.Debug("referral delete failed", logger.Err(err))
		httperrors.WriteError(w, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, dto.MessageResponse{Message: "Referrer ID deleted"})
}

// GetReferrer maneja GET /referrer/get_referrer?email=
func (c *ReferralController) GetReferrer(w http.ResponseWriter, r *http.Request) {
	q := dto.ReferrerQuery{Email: strings.TrimSpace(r.URL.Query().Get("email"))}
	if err := helpers.Validate(q); err != nil {
		httperrors.WriteError(w, err)
		return
	}

	ref, err := c.service.GetActiveByEmail(r.Context(), q.Email)
	if err != nil {
		httperrors.WriteError(w, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, dto.RefIDResponse{RefID: ref.Code})
}

// GetReferrals maneja GET /referrer/get_referrals?referrer_id=&limit=&offset=
func (c *ReferralController) GetReferrals(w http.ResponseWriter, r *http.Request) {
	q, err := parseListQuery(r)
	if err != nil {
		httperrors.WriteError(w, err)
		return
	}

	total, users, err := c.service.ListReferrals(r.Context(), q.ReferrerID, repository.Page{Limit: q.Limit, Offset: q.Offset})
	if err != nil {
		httperrors.WriteError(w, err)
		return
	}

	out := dto.ListResponse{
		Total:  total,
		Offset: q.Offset,
		Limit:  q.Limit,
		Items:  make([]dto.UserItem, 0, len(users)),
	}
	for _, u := range users {
		out.Items = append(out.Items, dto.UserItem{
			ID:         u.ID,
			Email:      u.Email,
			Name:       u.Name,
			Identity:   u.Identity,
			ReferralID: u.ReferralCodeUsed,
		})
	}
	helpers.WriteJSON(w, http.StatusOK, out)
}

func parseListQuery(r *http.Request) (dto.ListQuery, error) {
	v := r.URL.Query()
	q := dto.ListQuery{
		ReferrerID: strings.TrimSpace(v.Get("referrer_id")),
		Limit:      svc.MaxPageSize,
	}

	var fields []types.FieldError
	if s := v.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			fields = append(fields, types.FieldError{Field: "limit", Message: "must be an integer"})
		}
		q.Limit = n
	}
	if s := v.Get("offset"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			fields = append(fields, types.FieldError{Field: "offset", Message: "must be an integer"})
		}
		q.Offset = n
	}
	if len(fields) > 0 {
		return q, &types.ValidationError{Fields: fields}
	}
	return q, helpers.Validate(q)
}
