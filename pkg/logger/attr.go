package logger

import (
	"fmt"
	"log/slog"
	"strconv"
)

// Group creates a slog group attribute from the provided attributes.
func Group(name string, attrs ...slog.Attr) slog.Attr {
	return slog.Attr{Key: name, Value: slog.GroupValue(attrs...)}
}

// Error records err under "error". Nil errors produce an empty Attr.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// Errors groups the non-nil errors under "errors".
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

// Identity records a partition key such as "user:42" or "guest:abc".
// Anything implementing fmt.Stringer is formatted with String.
func Identity(id any) slog.Attr {
	switch v := id.(type) {
	case nil:
		return slog.Attr{}
	case string:
		if v == "" {
			return slog.Attr{}
		}
		return slog.String("identity", v)
	case fmt.Stringer:
		s := v.String()
		if s == "" {
			return slog.Attr{}
		}
		return slog.String("identity", s)
	default:
		return slog.Any("identity", v)
	}
}

// RequestingIdentity records who asked for a privileged operation.
func RequestingIdentity(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("requesting_identity", id)
}

// RequestID records the request identifier under "request_id".
func RequestID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("request_id", id)
}

// SessionID records a payment processor checkout session id.
func SessionID(id string) slog.Attr {
	return slog.String("session_id", id)
}

// ProductID records a catalog product id.
func ProductID(id string) slog.Attr {
	return slog.String("product_id", id)
}

// CustomerID records a payment processor customer id.
func CustomerID(id string) slog.Attr {
	return slog.String("customer_id", id)
}

// EventID records a payment processor event id.
func EventID(id string) slog.Attr {
	return slog.String("event_id", id)
}

// EventType records a normalized payment event type.
func EventType(eventType string) slog.Attr {
	return slog.String("event_type", eventType)
}

// Provider records the payment processor name, e.g. "stripe".
func Provider(name string) slog.Attr {
	return slog.String("provider", name)
}

// Plan records a plan type.
func Plan(plan string) slog.Attr {
	return slog.String("plan", plan)
}

// Quota records a quota and the consumption counted against it.
func Quota(count, quota int64) slog.Attr {
	return slog.Group("quota", slog.Int64("count", count), slog.Int64("limit", quota))
}

func Duration(d any) slog.Attr {
	return slog.Any("duration", d)
}

// Component records the component name under "component".
func Component(name string) slog.Attr {
	return slog.String("component", name)
}
