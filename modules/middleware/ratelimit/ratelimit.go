package ratelimit

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"

	"cruddemo/modules/middleware/problem"
	rl "cruddemo/modules/ratelimit"
)

type (
	Pattern string
	method  string

	// KeyFunc extracts the caller identity from a request.
	KeyFunc func(*http.Request) rl.Key

	RouteInfoFunc func(*http.Request) RouteInfo

	// RouteInfo is the matched route of a request. ID is empty when nothing matched.
	RouteInfo struct {
		ID     Pattern
		Method string
		Path   string
	}

	Policy struct {
		Limiter rl.RateLimiter
		KeyFn   KeyFunc
	}

	// RuntimePolicy is the compiled form of RestHTTPConfig.
	RuntimePolicy struct {
		policyMap map[Pattern]map[method]Policy

		// a method-specific default wins over the catch-all default
		defaultPolicyByMethod map[method]Policy
		defaultPolicy         *Policy

		AllowIfNoMatch      bool
		AllowIfNoIdentifier bool

		RouteInfoFn RouteInfoFunc
	}
)

type policySource string

const (
	policySourceExplicit      policySource = "explicit"
	policySourceDefaultMethod policySource = "default_method"
	policySourceDefaultAll    policySource = "default"
)

func normalizeMethod(m string) method {
	return method(strings.ToUpper(m))
}

func (p *RuntimePolicy) findPolicy(ri RouteInfo) (Policy, bool, policySource) {
	if pm, ok := p.policyMap[ri.ID]; ok {
		if px, ok := pm[normalizeMethod(ri.Method)]; ok {
			return px, true, policySourceExplicit
		}
	}
	if px, ok := p.defaultPolicyByMethod[normalizeMethod(ri.Method)]; ok && ri.Method != "" {
		return px, true, policySourceDefaultMethod
	}
	if p.defaultPolicy != nil {
		return *p.defaultPolicy, true, policySourceDefaultAll
	}
	return Policy{}, false, ""
}

// ParsePolicy compiles cfg into per-route limiters. Route patterns must match
// the patterns registered on the ServeMux.
func ParsePolicy(
	factory rl.LimiterFactory,
	cfg *RestHTTPConfig,
	routeFn RouteInfoFunc,
	keyStrategies map[KeyStrategyId]KeyFunc,
) (*RuntimePolicy, error) {
	rtp := &RuntimePolicy{
		policyMap:           make(map[Pattern]map[method]Policy),
		AllowIfNoIdentifier: cfg.AllowIfNoIdentifier,
		AllowIfNoMatch:      cfg.AllowIfNoMatch,
		RouteInfoFn:         routeFn,
	}

	if cfg.DefaultPolicy.Window > 0 && cfg.DefaultPolicy.KeyStrategy != "" {
		ks, ok := keyStrategies[cfg.DefaultPolicy.KeyStrategy]
		if !ok {
			return nil, fmt.Errorf("ratelimit parse policy: unknown default key strategy %q", cfg.DefaultPolicy.KeyStrategy)
		}
		p := Policy{
			Limiter: factory(cfg.DefaultPolicy.Limit, cfg.DefaultPolicy.Window),
			KeyFn:   ks,
		}
		if cfg.DefaultPolicy.Method != "" {
			rtp.defaultPolicyByMethod = map[method]Policy{normalizeMethod(cfg.DefaultPolicy.Method): p}
		} else {
			rtp.defaultPolicy = &p
		}
	}

	for _, r := range cfg.Routes {
		pat := Pattern(r.Pattern)
		if _, ok := rtp.policyMap[pat]; !ok {
			rtp.policyMap[pat] = make(map[method]Policy)
		}
		for _, rule := range r.EndpointRules {
			m := normalizeMethod(rule.Method)
			if _, ok := rtp.policyMap[pat][m]; ok {
				return nil, errors.New("ratelimit parse policy: duplicate method config on same pattern")
			}
			ks, ok := keyStrategies[rule.KeyStrategy]
			if !ok {
				return nil, fmt.Errorf("ratelimit parse policy: unknown key strategy %q", rule.KeyStrategy)
			}
			rtp.policyMap[pat][m] = Policy{
				Limiter: factory(rule.Limit, rule.Window),
				KeyFn:   ks,
			}
		}
	}
	return rtp, nil
}

// ServeMuxRouteInfo resolves the route the mux would dispatch r to.
func ServeMuxRouteInfo(mux *http.ServeMux) RouteInfoFunc {
	return func(r *http.Request) RouteInfo {
		_, pattern := mux.Handler(r)
		// patterns registered with a method look like "GET /api/employees/{id}"
		if _, path, ok := strings.Cut(pattern, " "); ok {
			pattern = path
		}
		return RouteInfo{ID: Pattern(pattern), Method: r.Method, Path: r.URL.Path}
	}
}

func NewRateLimitMiddleware(p *RuntimePolicy) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			ri := p.RouteInfoFn(r)
			if ri.Method == "" {
				problem.WriteRequest(w, r, problem.MethodNotAllowed("method not allowed"))
				return
			}

			px, ok, src := p.findPolicy(ri)
			if !ok {
				if p.AllowIfNoMatch {
					next.ServeHTTP(w, r)
					return
				}
				slog.WarnContext(ctx, "no rate limit policy found",
					slog.String("middleware", "rate_limiter"),
					slog.String("url", r.URL.Path),
				)
				problem.WriteRequest(w, r, problem.TooManyRequests(http.StatusText(http.StatusTooManyRequests)))
				return
			}
			if src != policySourceExplicit {
				slog.DebugContext(ctx, "using default rate limit policy",
					slog.String("policy_source", string(src)),
					slog.String("route", string(ri.ID)),
				)
			}

			var key rl.Key
			if px.KeyFn != nil {
				key = px.KeyFn(r)
			}
			if key == "" {
				if p.AllowIfNoIdentifier {
					next.ServeHTTP(w, r)
					return
				}
				slog.WarnContext(ctx, "no rate limit key",
					slog.String("middleware", "rate_limiter"),
					slog.String("url", r.URL.Path),
				)
				problem.WriteRequest(w, r, problem.TooManyRequests(http.StatusText(http.StatusTooManyRequests)))
				return
			}

			result, err := px.Limiter.Allow(ctx, key)
			if err != nil {
				// counter store may be down
				slog.ErrorContext(ctx, "rate limit error", slog.Any("error", err), slog.String("url", r.URL.Path))
				problem.WriteRequest(w, r, problem.Internal(http.StatusText(http.StatusInternalServerError)))
				return
			}

			writeRateLimitHeaders(w, result)
			if !result.Allowed {
				w.Header().Set("Retry-After", strconv.FormatInt(int64(result.RetryAfter.Seconds()+0.5), 10))
				problem.WriteRequest(w, r, problem.TooManyRequests(http.StatusText(http.StatusTooManyRequests)))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func writeRateLimitHeaders(w http.ResponseWriter, result rl.Result) {
	h := w.Header()
	h.Set("X-RateLimit-Limit", strconv.FormatInt(result.Limit, 10))
	h.Set("X-RateLimit-Remaining", strconv.FormatInt(result.Remaining, 10))
	h.Set("X-RateLimit-Window-Seconds", strconv.FormatInt(int64(result.Window.Seconds()), 10))
	h.Set("X-RateLimit-Reset-Seconds", strconv.FormatInt(int64(result.WindowResetIn.Seconds()), 10))
}

// RemoteIpKeyFunc uses the last X-Forwarded-For hop, falling back to the peer address.
// TODO: switch to an authenticated identity once the API has auth.
func RemoteIpKeyFunc(r *http.Request) rl.Key {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		hops := strings.Split(xff, ",")
		if ip := strings.TrimSpace(hops[len(hops)-1]); ip != "" {
			return rl.Key(ip)
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return rl.Key(r.RemoteAddr)
	}
	return rl.Key(host)
}
