package logger

import (
	"log/slog"
	"strconv"
)

// Group creates a slog group attribute from the provided attributes.
func Group(name string, attrs ...slog.Attr) slog.Attr {
	return slog.Attr{Key: name, Value: slog.GroupValue(attrs...)}
}

// Errors groups multiple non-nil errors under the key "errors".
// If all errors are nil, it returns an empty Attr.
func Errors(errs ...error) slog.Attr {
	as := make([]slog.Attr, 0, len(errs))
	for i, err := range errs {
		if err != nil {
			as = append(as, slog.Any(strconv.Itoa(i), err))
		}
	}
	if len(as) == 0 {
		return slog.Attr{}
	}
	return slog.Attr{Key: "errors", Value: slog.GroupValue(as...)}
}

// Error creates an attribute for a single error under the key "error".
// If err is nil, it returns an empty Attr.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// UserID records the user identifier under the key "user_id".
func UserID(id int64) slog.Attr {
	return slog.Int64("user_id", id)
}

// ActorID records the acting user (admin, requester) under the key "actor_id".
func ActorID(id int64) slog.Attr {
	return slog.Int64("actor_id", id)
}

// CompanyID records the company identifier under the key "company_id".
// If id is nil, it returns an empty Attr.
func CompanyID(id *int64) slog.Attr {
	if id == nil {
		return slog.Attr{}
	}
	return slog.Int64("company_id", *id)
}

// Scope records an entitlement scope in its "kind:id" form.
func Scope(s string) slog.Attr {
	return slog.String("scope", s)
}

// Tier records a subscription tier name under the key "tier".
func Tier(tier string) slog.Attr {
	return slog.String("tier", tier)
}

// Resource records a limited resource kind under the key "resource".
func Resource(res string) slog.Attr {
	return slog.String("resource", res)
}

// Feature records a feature flag name under the key "feature".
func Feature(name string) slog.Attr {
	return slog.String("feature", name)
}

// SubscriptionID records the local subscription identifier.
// If id is nil, it returns an empty Attr.
func SubscriptionID(id any) slog.Attr {
	if id == nil {
		return slog.Attr{}
	}
	return slog.Any("subscription_id", id)
}

// Provider records the payment provider name under the key "provider".
func Provider(name string) slog.Attr {
	return slog.String("provider", name)
}

// Action records an audit action under the key "action".
func Action(action string) slog.Attr {
	return slog.String("action", action)
}

// RequestID records the request identifier under the key "request_id".
// If id is nil, it returns an empty Attr.
func RequestID(id any) slog.Attr {
	if id == nil {
		return slog.Attr{}
	}
	return slog.Any("request_id", id)
}

// Duration records a duration under the key "duration".
func Duration(d any) slog.Attr {
	return slog.Any("duration", d)
}

// Component records the component name under the key "component".
func Component(name string) slog.Attr {
	return slog.String("component", name)
}
