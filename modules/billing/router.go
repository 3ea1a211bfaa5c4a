package billing

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dmitrymomot/kanbax/handler"
	"github.com/dmitrymomot/kanbax/pkg/audit"
	payment "github.com/dmitrymomot/kanbax/pkg/billing"
	"github.com/dmitrymomot/kanbax/pkg/entitlement"
	"github.com/dmitrymomot/kanbax/pkg/entity"
	"github.com/dmitrymomot/kanbax/pkg/logger"
	"github.com/dmitrymomot/kanbax/pkg/permission"
	"github.com/dmitrymomot/kanbax/pkg/plan"
	"github.com/dmitrymomot/kanbax/svc/subscription"
)

// Identify resolves the calling user from the request. The host application
// owns authentication; an error answers 401.
type Identify func(r *http.Request) (int64, error)

// Plans lists the catalog. *plan.Catalog implements it.
type Plans interface {
	ListActivePlans(ctx context.Context, includeInternal bool) ([]plan.Plan, error)
}

// Lifecycle runs subscription changes. *subscription.Manager implements it.
type Lifecycle interface {
	SwitchSubscription(ctx context.Context, userID int64, tier, billingCycle string) (subscription.SwitchResult, error)
	AdminSetTier(ctx context.Context, adminID, userID int64, tier, billingCycle string) (subscription.Subscription, error)
	AdminSetCompanyTier(ctx context.Context, adminID, companyID int64, tier, billingCycle string) error
	HandleWebhook(ctx context.Context, evt payment.WebhookEvent) error
}

// Entitlements answers quota questions. *entitlement.Engine implements it.
type Entitlements interface {
	ScopeForUser(ctx context.Context, userID int64) (entitlement.Scope, error)
	Check(ctx context.Context, scope entitlement.Scope, res plan.Resource) error
	Usage(ctx context.Context, scope entitlement.Scope) (entitlement.Usage, error)
}

// Activity builds visible feeds. *permission.Resolver implements it.
type Activity interface {
	VisibleActivity(ctx context.Context, src permission.ActivitySource, actorID int64) ([]audit.Entry, error)
}

// Trail reads the audit log. *audit.Trail implements it.
type Trail interface {
	ListForCompany(ctx context.Context, companyID int64) ([]audit.Entry, error)
	Query(ctx context.Context, c audit.Criteria) ([]audit.Entry, error)
}

// Archiver exports a company trail. *audit.S3Archiver implements it.
type Archiver interface {
	Archive(ctx context.Context, companyID int64) (audit.ArchiveResult, error)
}

// Options collects the module's collaborators. Archiver and Webhooks are
// optional; their routes answer 503 when unset.
type Options struct {
	Identify     Identify
	Users        entity.UserReader
	Plans        Plans
	Lifecycle    Lifecycle
	Entitlements Entitlements
	Activity     Activity
	Trail        Trail
	Archiver     Archiver
	Webhooks     payment.WebhookParser
	Logger       *slog.Logger
}

// Service serves the plan, subscription, usage, activity and admin routes.
type Service struct {
	opts Options
	log  *slog.Logger
}

// NewService panics when a required collaborator is missing.
func NewService(opts Options) *Service {
	switch {
	case opts.Identify == nil:
		panic("billing: identify func is required")
	case opts.Users == nil:
		panic("billing: user reader is required")
	case opts.Plans == nil:
		panic("billing: plan catalog is required")
	case opts.Lifecycle == nil:
		panic("billing: subscription lifecycle is required")
	case opts.Entitlements == nil:
		panic("billing: entitlement engine is required")
	case opts.Activity == nil:
		panic("billing: activity resolver is required")
	case opts.Trail == nil:
		panic("billing: audit trail is required")
	}
	log := opts.Logger
	if log == nil {
		log = logger.Discard()
	}
	return &Service{opts: opts, log: log.With(logger.Component("billing_api"))}
}

// Handle returns the module router.
//
//	r := chi.NewRouter()
//	r.Mount("/billing", svc.Handle())
func (s *Service) Handle() http.Handler {
	r := chi.NewRouter()

	r.Get("/plans", handler.Wrap(s.listPlans))
	r.Post("/webhooks", s.webhook)

	r.Group(func(r chi.Router) {
		r.Use(s.authenticate)

		r.Post("/subscription", handler.Wrap(s.switchSubscription, jsonBody[SwitchRequest]()))
		r.Get("/usage", handler.Wrap(s.usage))
		r.Get("/activity", handler.Wrap(s.activity))

		r.Route("/admin", func(r chi.Router) {
			r.Post("/users/{userID}/tier", handler.Wrap(s.adminSetUserTier, pathAndBody[UserTierRequest]()))
			r.Post("/companies/{companyID}/tier", handler.Wrap(s.adminSetCompanyTier, pathAndBody[CompanyTierRequest]()))
			r.Get("/companies/{companyID}/audit", handler.Wrap(s.companyAudit, pathOnly[CompanyRequest]()))
			r.Post("/companies/{companyID}/audit/archive", handler.Wrap(s.archiveAudit, pathOnly[CompanyRequest]()))
		})
	})

	return r
}

var userIDKey = handler.NewContextKey("billing.user_id")

// UserID returns the caller id stored by the module's authentication.
func UserID(ctx context.Context) (int64, bool) {
	return handler.ContextValueOK[int64](ctx, userIDKey)
}

func (s *Service) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := s.opts.Identify(r)
		if err != nil {
			_ = handler.JSONError(handler.ErrUnauthorized).Render(w, r)
			return
		}
		ctx := context.WithValue(r.Context(), userIDKey, id)
		next.ServeHTTP(w, r.WithContext(entity.WithActor(ctx, id)))
	})
}

// RequireQuota rejects requests whose caller has used up res in their scope
// with 403 and the denial in the body. Data errors let the request through,
// as Check fails open. Admitted requests carry the caller as the entity
// actor, so an audited repository attributes what the handler creates.
func (s *Service) RequireQuota(res plan.Resource) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := UserID(r.Context())
			if !ok {
				var err error
				if id, err = s.opts.Identify(r); err != nil {
					_ = handler.JSONError(handler.ErrUnauthorized).Render(w, r)
					return
				}
			}

			r = r.WithContext(entity.WithActor(r.Context(), id))
			scope, err := s.opts.Entitlements.ScopeForUser(r.Context(), id)
			if err != nil {
				s.log.WarnContext(r.Context(), "quota scope unresolved, allowing request",
					logger.UserID(id), logger.Resource(string(res)), logger.Error(err))
				next.ServeHTTP(w, r)
				return
			}

			var limit *entitlement.LimitError
			if err := s.opts.Entitlements.Check(r.Context(), scope, res); errors.As(err, &limit) {
				_ = limitExceeded(limit).Render(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func limitExceeded(e *entitlement.LimitError) handler.Response {
	return handler.JSON(handler.JSONResponse{
		Data:  e,
		Error: &handler.ErrorDetail{Code: "limit_exceeded", Message: e.Error()},
	}, handler.WithJSONStatus(http.StatusForbidden))
}

// errorResponse maps domain errors onto HTTP errors.
func errorResponse(err error) handler.Response {
	var limit *entitlement.LimitError
	switch {
	case errors.As(err, &limit):
		return limitExceeded(limit)
	case errors.Is(err, subscription.ErrUserNotFound), errors.Is(err, entity.ErrNotFound):
		return handler.JSONError(handler.NewHTTPError(http.StatusNotFound, "user_not_found"))
	case errors.Is(err, subscription.ErrCompanyNotFound):
		return handler.JSONError(handler.NewHTTPError(http.StatusNotFound, "company_not_found"))
	case errors.Is(err, subscription.ErrPlanNotFound):
		return handler.JSONError(handler.NewHTTPError(http.StatusNotFound, "plan_not_found"))
	case errors.Is(err, subscription.ErrPlanNotAvailable):
		return handler.JSONError(handler.NewHTTPError(http.StatusBadRequest, "plan_not_available"))
	case errors.Is(err, subscription.ErrCompanyRequired):
		return handler.JSONError(handler.NewHTTPError(http.StatusBadRequest, "company_required"))
	case errors.Is(err, subscription.ErrUnauthorized):
		return handler.JSONError(handler.ErrForbidden)
	case errors.Is(err, subscription.ErrConflict):
		return handler.JSONError(handler.ErrConflict)
	case errors.Is(err, audit.ErrArchiveNotConfigured):
		return handler.JSONError(handler.NewHTTPError(http.StatusServiceUnavailable, "archive_not_configured"))
	}
	return handler.JSONError(err)
}

// subscriptionView is the public shape of a subscription row.
type subscriptionView struct {
	ID           uuid.UUID           `json:"id"`
	UserID       int64               `json:"userId"`
	Tier         plan.Tier           `json:"tier"`
	BillingCycle plan.BillingCycle   `json:"billingCycle"`
	Status       subscription.Status `json:"status"`
	ExpiresAt    *time.Time          `json:"expiresAt"`
}

func viewOf(sub subscription.Subscription) subscriptionView {
	return subscriptionView{
		ID:           sub.ID,
		UserID:       sub.UserID,
		Tier:         sub.Tier,
		BillingCycle: sub.BillingCycle,
		Status:       sub.Status,
		ExpiresAt:    sub.ExpiresAt,
	}
}
