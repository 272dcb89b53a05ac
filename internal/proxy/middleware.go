package proxy

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"balancer-gateway/internal/envelope"
	"balancer-gateway/pkg/config"
	"balancer-gateway/pkg/ratelimit"
)

// CORS mirrors the teacher's ConnectRPC CORS middleware, adapted to plain
// proxy traffic: no ExposedHeaders field exists on this module's
// CORSConfig, since nothing downstream needs to read custom response
// headers across origins.
func CORS(cfg config.CORSConfig) func(http.Handler) http.Handler {
	allowedHeaders := prepareAllowedHeaders(cfg.AllowedHeaders)
	allowedMethods := strings.Join(cfg.AllowedMethods, ", ")
	maxAge := fmt.Sprintf("%d", cfg.MaxAge)

	return func(next http.Handler) http.Handler {
		if !cfg.Enabled {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			allowed, allowedOrigin := false, ""
			for _, o := range cfg.AllowedOrigins {
				if o == "*" {
					allowed, allowedOrigin = true, "*"
					break
				}
				if o == origin {
					allowed, allowedOrigin = true, origin
					break
				}
			}

			if allowed && allowedOrigin != "" {
				w.Header().Set("Access-Control-Allow-Origin", allowedOrigin)
			}
			w.Header().Set("Access-Control-Allow-Methods", allowedMethods)
			w.Header().Set("Access-Control-Allow-Headers", allowedHeaders)
			if cfg.AllowCredentials {
				w.Header().Set("Access-Control-Allow-Credentials", "true")
			}

			if r.Method == http.MethodOptions {
				w.Header().Set("Access-Control-Max-Age", maxAge)
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func prepareAllowedHeaders(headers []string) string {
	for _, h := range headers {
		if h == "*" {
			return strings.Join([]string{
				"Accept", "Content-Type", "Authorization", "Origin",
				"X-Service", "X-Balancer-Strategy", "X-Weights-Strategy",
				"X-Replications-Count", "X-Replications-All", "X-Replications-Strategy",
				"X-Completion-Strategy", "X-Completion-K", "X-Balancer-Deadline",
			}, ", ")
		}
	}
	return strings.Join(headers, ", ")
}

// maxFanoutWeight caps how many budget units a single replicated request
// can consume, so a client requesting X-Replications-Count against a
// large node pool can't exhaust another client's entire window in one
// call.
const maxFanoutWeight = 16

// RateLimit rejects requests over the configured budget with 429 before
// they reach the orchestrator, keyed by the caller's remote address. A
// request carrying X-Replications-Count is charged that many units (capped
// at maxFanoutWeight) rather than the flat cost of a single-node request,
// since it will issue that many backend calls. A replicated request with
// no explicit count (X-Replications-All alone, or a strategy header) is
// charged one unit.
func RateLimit(limiter ratelimit.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limiter == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			realIP := r.Header.Get("X-Real-Ip")
			if realIP == "" {
				realIP = r.RemoteAddr
			}
			key := ratelimit.DefaultKeyExtractor(r.Context(), r.Method, map[string]string{
				"x-forwarded-for": r.Header.Get("X-Forwarded-For"),
				"x-real-ip":       realIP,
			})

			weight := fanoutWeight(r.Header)
			allowed, err := limiter.AllowN(r.Context(), key, weight)
			if err != nil || !allowed {
				if info, infoErr := limiter.GetInfo(r.Context(), key); infoErr == nil {
					setRateLimitHeaders(w, info)
				}
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = w.Write([]byte(`{"error":"rate limit exceeded","code":"RATE_LIMITED"}`))
				return
			}
			if info, infoErr := limiter.GetInfo(r.Context(), key); infoErr == nil {
				setRateLimitHeaders(w, info)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// fanoutWeight reads the BRS replication headers without validating the
// rest of the envelope: a malformed header here just falls back to weight
// 1, leaving the real rejection to envelope.Parse further down the chain.
func fanoutWeight(h http.Header) int {
	brs, err := envelope.Parse(h)
	if err != nil || !brs.WantsReplication() {
		return 1
	}
	if brs.ReplicationsCount != nil {
		n := *brs.ReplicationsCount
		if n > maxFanoutWeight {
			return maxFanoutWeight
		}
		if n < 1 {
			return 1
		}
		return n
	}
	return 1
}

func setRateLimitHeaders(w http.ResponseWriter, info *ratelimit.LimitInfo) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(info.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(info.Remaining))
	w.Header().Set("X-RateLimit-Reset", info.ResetAt.UTC().Format(time.RFC3339))
}
