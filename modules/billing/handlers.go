package billing

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/kanbax/handler"
	"github.com/dmitrymomot/kanbax/pkg/audit"
	"github.com/dmitrymomot/kanbax/pkg/binder"
	payment "github.com/dmitrymomot/kanbax/pkg/billing"
	"github.com/dmitrymomot/kanbax/pkg/entity"
	"github.com/dmitrymomot/kanbax/pkg/logger"
)

// maxWebhookSize caps provider webhook bodies.
const maxWebhookSize = 1 << 16

type SwitchRequest struct {
	Tier         string `json:"tier"`
	BillingCycle string `json:"billingCycle"`
}

func (r SwitchRequest) validate() error {
	if strings.TrimSpace(r.Tier) == "" {
		verr := handler.NewValidationError()
		verr.Add("tier", "is required")
		return verr
	}
	return nil
}

type UserTierRequest struct {
	UserID int64 `path:"userID" json:"-"`
	SwitchRequest
}

type CompanyTierRequest struct {
	CompanyID int64 `path:"companyID" json:"-"`
	SwitchRequest
}

type CompanyRequest struct {
	CompanyID int64 `path:"companyID"`
}

func jsonBody[R any]() handler.WrapOption[R] {
	return handler.WithBinders[R](binder.JSON())
}

func pathAndBody[R any]() handler.WrapOption[R] {
	return handler.WithBinders[R](binder.Path(chi.URLParam), binder.JSON())
}

func pathOnly[R any]() handler.WrapOption[R] {
	return handler.WithBinders[R](binder.Path(chi.URLParam))
}

func (s *Service) caller(ctx handler.Context) int64 {
	id, _ := UserID(ctx)
	return id
}

func (s *Service) listPlans(ctx handler.Context, _ struct{}) handler.Response {
	plans, err := s.opts.Plans.ListActivePlans(ctx, false)
	if err != nil {
		s.log.ErrorContext(ctx, "list plans failed", logger.Error(err))
		return errorResponse(err)
	}
	return handler.JSON(plans)
}

func (s *Service) switchSubscription(ctx handler.Context, req SwitchRequest) handler.Response {
	if err := req.validate(); err != nil {
		return handler.JSONError(err)
	}
	res, err := s.opts.Lifecycle.SwitchSubscription(ctx, s.caller(ctx), req.Tier, req.BillingCycle)
	if err != nil {
		return errorResponse(err)
	}
	return handler.JSON(res)
}

func (s *Service) usage(ctx handler.Context, _ struct{}) handler.Response {
	scope, err := s.opts.Entitlements.ScopeForUser(ctx, s.caller(ctx))
	if err != nil {
		return errorResponse(err)
	}
	u, err := s.opts.Entitlements.Usage(ctx, scope)
	if err != nil {
		s.log.ErrorContext(ctx, "usage lookup failed", logger.Scope(scope.String()), logger.Error(err))
		return errorResponse(err)
	}
	return handler.JSON(u)
}

func (s *Service) activity(ctx handler.Context, _ struct{}) handler.Response {
	entries, err := s.opts.Activity.VisibleActivity(ctx, s.opts.Trail, s.caller(ctx))
	if err != nil {
		return errorResponse(err)
	}
	return handler.JSON(entries)
}

func (s *Service) adminSetUserTier(ctx handler.Context, req UserTierRequest) handler.Response {
	if err := req.validate(); err != nil {
		return handler.JSONError(err)
	}
	sub, err := s.opts.Lifecycle.AdminSetTier(ctx, s.caller(ctx), req.UserID, req.Tier, req.BillingCycle)
	if err != nil {
		return errorResponse(err)
	}
	return handler.JSON(viewOf(sub))
}

func (s *Service) adminSetCompanyTier(ctx handler.Context, req CompanyTierRequest) handler.Response {
	if err := req.validate(); err != nil {
		return handler.JSONError(err)
	}
	if err := s.opts.Lifecycle.AdminSetCompanyTier(ctx, s.caller(ctx), req.CompanyID, req.Tier, req.BillingCycle); err != nil {
		return errorResponse(err)
	}
	return handler.Empty()
}

func (s *Service) companyAudit(ctx handler.Context, req CompanyRequest) handler.Response {
	if resp := s.requireCompanyAdmin(ctx, req.CompanyID); resp != nil {
		return resp
	}
	entries, err := s.opts.Trail.ListForCompany(ctx, req.CompanyID)
	if err != nil {
		s.log.ErrorContext(ctx, "audit listing failed", logger.CompanyID(&req.CompanyID), logger.Error(err))
		return errorResponse(err)
	}
	return handler.JSON(entries)
}

func (s *Service) archiveAudit(ctx handler.Context, req CompanyRequest) handler.Response {
	if resp := s.requireCompanyAdmin(ctx, req.CompanyID); resp != nil {
		return resp
	}
	if s.opts.Archiver == nil {
		return errorResponse(audit.ErrArchiveNotConfigured)
	}
	res, err := s.opts.Archiver.Archive(ctx, req.CompanyID)
	if err != nil {
		s.log.ErrorContext(ctx, "audit archive failed", logger.CompanyID(&req.CompanyID), logger.Error(err))
		return handler.JSONError(handler.ErrServiceUnavailable)
	}
	return handler.JSON(res, handler.WithJSONStatus(http.StatusCreated))
}

// requireCompanyAdmin lets hyper admins and admins of companyID through.
func (s *Service) requireCompanyAdmin(ctx handler.Context, companyID int64) handler.Response {
	u, err := s.opts.Users.GetUser(ctx, s.caller(ctx))
	if err != nil {
		if errors.Is(err, entity.ErrNotFound) {
			return handler.JSONError(handler.ErrForbidden)
		}
		return errorResponse(err)
	}
	if u.IsHyperAdmin || (u.IsCompanyAdmin && u.InCompany(companyID)) {
		return nil
	}
	return handler.JSONError(handler.ErrForbidden)
}

// webhook verifies a provider callback and applies it. Verification
// failures answer 400; apply failures answer 500 so the provider redelivers.
func (s *Service) webhook(w http.ResponseWriter, r *http.Request) {
	if s.opts.Webhooks == nil {
		_ = handler.JSONError(handler.ErrServiceUnavailable).Render(w, r)
		return
	}
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookSize))
	if err != nil {
		_ = handler.JSONError(handler.ErrBadRequest).Render(w, r)
		return
	}

	evt, err := s.opts.Webhooks.ParseWebhook(r.Context(), payload, r.Header.Get(s.opts.Webhooks.SignatureHeader()))
	if err != nil {
		s.log.WarnContext(r.Context(), "webhook rejected", logger.Error(err))
		key := "invalid_payload"
		if errors.Is(err, payment.ErrInvalidSignature) {
			key = "invalid_signature"
		}
		_ = handler.JSONError(handler.NewHTTPError(http.StatusBadRequest, key)).Render(w, r)
		return
	}

	if err := s.opts.Lifecycle.HandleWebhook(r.Context(), *evt); err != nil {
		s.log.ErrorContext(r.Context(), "webhook not applied",
			logger.Provider(evt.Provider),
			logger.Action(evt.ProviderEventType),
			logger.Error(err),
		)
		_ = handler.JSONError(err).Render(w, r)
		return
	}
	_ = handler.JSON(map[string]bool{"received": true}).Render(w, r)
}
