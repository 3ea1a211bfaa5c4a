package handler

import (
	"errors"
	"net/http"

	"github.com/dmitrymomot/kanbax/pkg/binder"
)

// HandlerFunc handles a request already bound into R.
//
//	h := handler.HandlerFunc[SwitchRequest](
//		func(ctx handler.Context, req SwitchRequest) handler.Response {
//			res, err := manager.SwitchSubscription(ctx, userID, req.Tier, req.BillingCycle)
//			if err != nil {
//				return handler.JSONError(err)
//			}
//			return handler.JSON(res)
//		},
//	)
type HandlerFunc[R any] func(ctx Context, req R) Response

// Response renders itself to an http.ResponseWriter.
type Response interface {
	Render(w http.ResponseWriter, r *http.Request) error
}

// Bind parses a request into v.
type Bind func(r *http.Request, v any) error

// ErrorHandler writes errors from binding or rendering.
type ErrorHandler func(ctx Context, err error)

// Decorator wraps a HandlerFunc. The first decorator in a list is the
// outermost.
type Decorator[R any] func(HandlerFunc[R]) HandlerFunc[R]

type WrapOption[R any] func(*wrapConfig[R])

type wrapConfig[R any] struct {
	binders      []Bind
	errorHandler ErrorHandler
	decorators   []Decorator[R]
}

// WithBinders sets request binders, applied in order. Binders that report
// binder.ErrBinderNotApplicable are skipped.
func WithBinders[R any](binders ...Bind) WrapOption[R] {
	return func(c *wrapConfig[R]) {
		c.binders = append(c.binders, binders...)
	}
}

func WithErrorHandler[R any](h ErrorHandler) WrapOption[R] {
	return func(c *wrapConfig[R]) {
		if h != nil {
			c.errorHandler = h
		}
	}
}

func WithDecorators[R any](decorators ...Decorator[R]) WrapOption[R] {
	return func(c *wrapConfig[R]) {
		c.decorators = append(c.decorators, decorators...)
	}
}

// DefaultErrorHandler renders err with JSONError.
func DefaultErrorHandler(ctx Context, err error) {
	if errors.Is(err, binder.ErrBindFailed) {
		err = NewHTTPError(http.StatusBadRequest, "bad_request")
	}
	_ = JSONError(err).Render(ctx.ResponseWriter(), ctx.Request())
}

// Wrap converts a typed HandlerFunc into an http.HandlerFunc.
//
//	r.Post("/subscription", handler.Wrap(s.switchSubscription,
//		handler.WithBinders[SwitchRequest](binder.JSON()),
//	))
func Wrap[R any](h HandlerFunc[R], opts ...WrapOption[R]) http.HandlerFunc {
	cfg := &wrapConfig[R]{errorHandler: DefaultErrorHandler}
	for _, opt := range opts {
		opt(cfg)
	}

	final := h
	for i := len(cfg.decorators) - 1; i >= 0; i-- {
		final = cfg.decorators[i](final)
	}

	return func(w http.ResponseWriter, r *http.Request) {
		ctx := NewContext(w, r)

		var req R
		for _, bind := range cfg.binders {
			if err := bind(r, &req); err != nil {
				if errors.Is(err, binder.ErrBinderNotApplicable) {
					continue
				}
				cfg.errorHandler(ctx, err)
				return
			}
		}

		resp := final(ctx, req)
		if resp == nil {
			cfg.errorHandler(ctx, ErrNilResponse)
			return
		}
		if err := resp.Render(w, r); err != nil {
			cfg.errorHandler(ctx, err)
		}
	}
}
