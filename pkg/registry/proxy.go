package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog"
)

// Args carries the bound arguments for a single call. Keys must match the
// operation's declared parameter bindings.
type Args struct {
	Path   map[string]string
	Query  url.Values
	Header map[string]string
	Body   interface{}
}

// ClientProxy exposes a ServiceSpec's operations as callable methods bound
// to a resolved engine. A proxy is built once at startup, holds no per-call
// state, and is safe for concurrent use from any number of callers.
type ClientProxy struct {
	logger zerolog.Logger
	spec   ServiceSpec
	group  *GroupConfig
	engine *Engine
	ops    map[string]Operation
}

// BuildProxy produces a proxy for a spec bound to a resolved engine.
// Dispatch is table-driven: operations are keyed by name at build time,
// so no reflection happens per call.
func BuildProxy(logger zerolog.Logger, spec ServiceSpec, group *GroupConfig, engine *Engine) *ClientProxy {
	ops := make(map[string]Operation, len(spec.Operations))
	for _, op := range spec.Operations {
		ops[op.Name] = op
	}
	return &ClientProxy{
		logger: logger.With().
			Str("component", "client_proxy").
			Str("spec", spec.Name).
			Str("group", group.Name).
			Logger(),
		spec:   spec,
		group:  group,
		engine: engine,
		ops:    ops,
	}
}

// Spec returns the spec this proxy was built from.
func (p *ClientProxy) Spec() ServiceSpec {
	return p.spec
}

// GroupName returns the name of the group this proxy is bound to.
func (p *ClientProxy) GroupName() string {
	return p.group.Name
}

// Kind reports the bound engine's calling convention.
func (p *ClientProxy) Kind() EngineKind {
	return p.engine.Kind()
}

// Call performs the named operation and blocks until the response (or
// error) is available, decoding a 2xx body into out. Only legal on proxies
// bound to a sync-engine group; async groups complete through Go.
func (p *ClientProxy) Call(ctx context.Context, operation string, args Args, out interface{}) error {
	if p.engine.Kind() != EngineSync {
		return Newf(ErrorTypeInternal, "group %q uses the async engine; use Go", p.group.Name)
	}
	return p.do(ctx, operation, args, out, nil)
}

// Go performs the named operation without blocking and returns a deferred
// handle that completes when the response arrives. Only legal on proxies
// bound to an async-engine group.
func (p *ClientProxy) Go(ctx context.Context, operation string, args Args, out interface{}) *Deferred {
	d := newDeferred(ctx)
	if p.engine.Kind() != EngineAsync {
		d.complete(Newf(ErrorTypeInternal, "group %q uses the sync engine; use Call", p.group.Name))
		return d
	}
	go func() {
		d.complete(p.do(d.ctx, operation, args, out, d))
	}()
	return d
}

// Invoke is a typed convenience wrapper around ClientProxy.Call.
func Invoke[T any](ctx context.Context, p *ClientProxy, operation string, args Args) (T, error) {
	var out T
	err := p.Call(ctx, operation, args, &out)
	return out, err
}

// do runs the full call state machine: parameter binding, request filters,
// dispatch, response filters, status check, decode. guard is non-nil for
// async calls and suppresses decoding after cancellation.
func (p *ClientProxy) do(ctx context.Context, operation string, args Args, out interface{}, guard *Deferred) error {
	op, ok := p.ops[operation]
	if !ok {
		return Newf(ErrorTypeInternal, "spec %q has no operation %q", p.spec.Name, operation)
	}

	logger := p.logger.With().
		Str("operation", operation).
		Str("method", string(op.Method)).
		Logger()

	req, err := p.buildRequest(ctx, op, args)
	if err != nil {
		return err
	}

	req, err = applyRequestFilters(ctx, req, p.group.RequestFilters)
	if err != nil {
		logger.Debug().Err(err).Msg("call aborted by request filter")
		return err
	}

	rsp, err := p.engine.Do(req)
	if err != nil {
		if ctx.Err() == context.Canceled {
			return Wrap(ctx.Err(), ErrorTypeCanceled, "call canceled")
		}
		logger.Debug().Err(err).Msg("dispatch failed")
		return transportError(err)
	}
	defer rsp.Body.Close()

	rsp, err = applyResponseFilters(ctx, rsp, p.group.ResponseFilters)
	if err != nil {
		logger.Debug().Err(err).Msg("call aborted by response filter")
		return err
	}

	body, err := io.ReadAll(rsp.Body)
	if err != nil {
		return transportError(err)
	}

	if rsp.StatusCode < http.StatusOK || rsp.StatusCode >= http.StatusMultipleChoices {
		logger.Debug().Int("status", rsp.StatusCode).Msg("remote error")
		rErr := Newf(ErrorTypeRemote, "remote returned status %d", rsp.StatusCode)
		rErr.Status = rsp.StatusCode
		rErr.Body = body
		return rErr
	}

	if out == nil || len(body) == 0 {
		return nil
	}
	if guard.canceled() {
		// Cancellation raced with the response; invoke no continuation.
		return Wrap(context.Canceled, ErrorTypeCanceled, "call canceled")
	}
	if err := json.Unmarshal(body, out); err != nil {
		return Wrap(err, ErrorTypeDecode, "response body does not match declared shape").
			WithContext("operation", operation)
	}

	logger.Debug().Int("body_length", len(body)).Msg("call succeeded")
	return nil
}

// buildRequest performs parameter binding: path substitution, query and
// header attachment, body serialization, and header merging (group
// defaults, then operation headers, then call headers).
func (p *ClientProxy) buildRequest(ctx context.Context, op Operation, args Args) (*http.Request, error) {
	path, err := substitutePath(op.Path, args.Path)
	if err != nil {
		return nil, err
	}

	target, err := joinURL(p.group.BaseURL, p.spec.BasePath, path)
	if err != nil {
		return nil, err
	}

	if len(args.Query) > 0 {
		query := target.Query()
		for key, values := range args.Query {
			for _, value := range values {
				query.Add(key, value)
			}
		}
		target.RawQuery = query.Encode()
	}

	var body io.Reader
	if args.Body != nil {
		encoded, err := json.Marshal(args.Body)
		if err != nil {
			return nil, Wrap(err, ErrorTypeInternal, "failed to serialize request body")
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, string(op.Method), target.String(), body)
	if err != nil {
		return nil, Wrap(err, ErrorTypeInternal, "failed to create HTTP request")
	}

	req.Header.Set("User-Agent", "declarest")
	for name, value := range p.group.Headers {
		req.Header.Set(name, value)
	}
	for name, value := range op.Headers {
		req.Header.Set(name, value)
	}
	for name, value := range args.Header {
		req.Header.Set(name, value)
	}
	if args.Body != nil && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}

	return req, nil
}

// substitutePath replaces {name} placeholders in a path template. A
// placeholder without a matching argument fails before any network call.
func substitutePath(template string, params map[string]string) (string, error) {
	var b strings.Builder
	rest := template
	for {
		open := strings.Index(rest, "{")
		if open < 0 {
			b.WriteString(rest)
			return b.String(), nil
		}
		closing := strings.Index(rest[open:], "}")
		if closing < 0 {
			return "", Newf(ErrorTypePath, "unterminated placeholder in path template %q", template)
		}

		name := rest[open+1 : open+closing]
		value, ok := params[name]
		if !ok {
			return "", Newf(ErrorTypePath, "no argument bound for path placeholder %q", name).
				WithContext("template", template)
		}

		b.WriteString(rest[:open])
		b.WriteString(url.PathEscape(value))
		rest = rest[open+closing+1:]
	}
}

// joinURL combines the group base URL, the spec base path and the operation
// path into a single absolute URL.
func joinURL(baseURL, basePath, opPath string) (*url.URL, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, Wrap(err, ErrorTypeConfig, "invalid base URL")
	}

	segments := []string{strings.TrimSuffix(base.Path, "/")}
	for _, seg := range []string{basePath, opPath} {
		seg = strings.TrimSuffix(seg, "/")
		if seg == "" {
			continue
		}
		if !strings.HasPrefix(seg, "/") {
			seg = "/" + seg
		}
		segments = append(segments, seg)
	}

	base.Path = strings.Join(segments, "")
	if base.Path == "" {
		base.Path = "/"
	}
	return base, nil
}
