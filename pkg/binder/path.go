package binder

import (
	"net/http"
)

// Path binds route parameters by the `path` struct tag using extractor,
// typically chi.URLParam:
//
//	r.Post("/admin/companies/{companyID}/tier", handler.Wrap(h,
//		handler.WithBinders[Req](binder.Path(chi.URLParam), binder.JSON()),
//	))
func Path(extractor func(r *http.Request, name string) string) func(r *http.Request, v any) error {
	return func(r *http.Request, v any) error {
		if extractor == nil {
			return ErrBinderNotApplicable
		}
		values := make(map[string][]string)
		err := eachTagged(v, "path", ErrFailedToParsePath, func(name string) {
			if s := extractor(r, name); s != "" {
				values[name] = []string{s}
			}
		})
		if err != nil {
			return err
		}
		return bindToStruct(v, "path", values, ErrFailedToParsePath)
	}
}
