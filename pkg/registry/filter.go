package registry

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// RequestFilter intercepts an outgoing request before dispatch. A filter
// must return the request (possibly mutated) for the chain to continue;
// returning an error aborts the call before any network activity and
// surfaces to the caller as a filter-rejected error.
type RequestFilter func(ctx context.Context, req *http.Request) (*http.Request, error)

// ResponseFilter intercepts an incoming response after dispatch, before
// status checking and decoding. Same chain semantics as RequestFilter.
type ResponseFilter func(ctx context.Context, rsp *http.Response) (*http.Response, error)

func applyRequestFilters(ctx context.Context, req *http.Request, filters []RequestFilter) (*http.Request, error) {
	for _, f := range filters {
		next, err := f(ctx, req)
		if err != nil {
			return nil, Wrap(err, ErrorTypeFilter, "request rejected by filter")
		}
		req = next
	}
	return req, nil
}

func applyResponseFilters(ctx context.Context, rsp *http.Response, filters []ResponseFilter) (*http.Response, error) {
	for _, f := range filters {
		next, err := f(ctx, rsp)
		if err != nil {
			return nil, Wrap(err, ErrorTypeFilter, "response rejected by filter")
		}
		rsp = next
	}
	return rsp, nil
}

// LogRequests logs every outgoing request for the group.
func LogRequests(logger zerolog.Logger) RequestFilter {
	return func(ctx context.Context, req *http.Request) (*http.Request, error) {
		logger.Info().
			Str("method", req.Method).
			Str("url", req.URL.String()).
			Msg("outgoing request")
		return req, nil
	}
}

// LogResponses logs the status of every incoming response for the group.
func LogResponses(logger zerolog.Logger) ResponseFilter {
	return func(ctx context.Context, rsp *http.Response) (*http.Response, error) {
		logger.Info().
			Int("status", rsp.StatusCode).
			Str("url", rsp.Request.URL.String()).
			Msg("incoming response")
		return rsp, nil
	}
}

// RequestID stamps an X-Request-ID header on requests that don't carry one.
func RequestID() RequestFilter {
	return func(ctx context.Context, req *http.Request) (*http.Request, error) {
		if req.Header.Get("X-Request-ID") == "" {
			req.Header.Set("X-Request-ID", uuid.NewString())
		}
		return req, nil
	}
}

// RequireHeader rejects any request that does not carry the named header.
func RequireHeader(name string) RequestFilter {
	return func(ctx context.Context, req *http.Request) (*http.Request, error) {
		if req.Header.Get(name) == "" {
			return nil, Newf(ErrorTypeFilter, "missing required header %s", name)
		}
		return req, nil
	}
}
