package main

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/dmitrymomot/kanbax/modules/billing"
)

var errNoIdentity = errors.New("kanbax: request carries no user id")

// headerIdentity trusts the user id set by the authenticating proxy in front
// of the service.
func headerIdentity(header string) billing.Identify {
	return func(r *http.Request) (int64, error) {
		raw := strings.TrimSpace(r.Header.Get(header))
		if raw == "" {
			return 0, errNoIdentity
		}
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			return 0, errNoIdentity
		}
		return id, nil
	}
}
