package mapper

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/darkneiss/ai-pr-sentinel-sub000/internal/domain"
)

var (
	// ErrUnsupportedEvent marks deliveries that are valid but not issue events this service triages.
	ErrUnsupportedEvent = errors.New("unsupported event")
	ErrInvalidPayload   = errors.New("invalid payload")
)

// EventMapper converts a provider webhook delivery into a provider-neutral issue event.
type EventMapper interface {
	Map(ctx context.Context, body []byte, headers map[string]string) (*domain.IssueEvent, error)
	// DeliveryID extracts the provider's unique delivery identifier; empty when absent.
	DeliveryID(headers map[string]string) string
}

// HeadersFrom flattens request headers, keeping the first value of each.
func HeadersFrom(h http.Header) map[string]string {
	headers := make(map[string]string, len(h))
	for key, values := range h {
		if len(values) > 0 {
			headers[key] = values[0]
		}
	}
	return headers
}

func headerValue(headers map[string]string, name string) string {
	if v, ok := headers[name]; ok {
		return v
	}
	if v, ok := headers[http.CanonicalHeaderKey(name)]; ok {
		return v
	}
	for key, v := range headers {
		if strings.EqualFold(key, name) {
			return v
		}
	}
	return ""
}
