package main

import (
	"net/http"
	"strings"

	"github.com/HammerMeetNail/giftcircle/internal/handlers"
	"github.com/HammerMeetNail/giftcircle/internal/middleware"
)

const apiPrefix = "/api/v1"

type routerDeps struct {
	health  *handlers.HealthHandler
	auth    *handlers.AuthHandler
	friends *handlers.FriendHandler
	items   *handlers.ItemHandler
	wishes  *handlers.WishHandler

	authMiddleware *middleware.AuthMiddleware
	authLimiter    *middleware.RateLimiter
	metrics        *middleware.Metrics
	uploadsDir     string
}

func newRouter(d routerDeps) *http.ServeMux {
	requireAuth := func(h http.HandlerFunc) http.Handler {
		return d.authMiddleware.RequireAuth(h)
	}
	authLimited := func(h http.HandlerFunc) http.Handler {
		return d.authLimiter.Middleware(h)
	}

	mux := http.NewServeMux()

	// Health endpoints (no auth)
	mux.HandleFunc("GET /health", d.health.Health)
	mux.HandleFunc("GET "+apiPrefix+"/health", d.health.Health)
	mux.HandleFunc("GET /ready", d.health.Ready)
	if d.metrics != nil {
		mux.Handle("GET /metrics", d.metrics.Handler())
	}

	// Auth endpoints
	mux.Handle("POST "+apiPrefix+"/auth/register", authLimited(d.auth.Register))
	mux.Handle("POST "+apiPrefix+"/auth/login", authLimited(d.auth.Login))
	mux.Handle("GET "+apiPrefix+"/auth/me", requireAuth(d.auth.Me))

	// Item endpoints
	mux.Handle("GET "+apiPrefix+"/items", requireAuth(d.items.Feed))
	mux.Handle("GET "+apiPrefix+"/items/feed", requireAuth(d.items.Feed))
	mux.Handle("GET "+apiPrefix+"/items/my-items", requireAuth(d.items.Mine))
	mux.Handle("GET "+apiPrefix+"/items/{id}", requireAuth(d.items.Get))
	mux.Handle("POST "+apiPrefix+"/items", requireAuth(d.items.Create))
	mux.Handle("PUT "+apiPrefix+"/items/{id}", requireAuth(d.items.Update))
	mux.Handle("POST "+apiPrefix+"/items/{id}/gifted", requireAuth(d.items.MarkGifted))
	mux.Handle("DELETE "+apiPrefix+"/items/{id}", requireAuth(d.items.Delete))
	mux.Handle("POST "+apiPrefix+"/items/{id}/photos", requireAuth(d.items.UploadPhotos))
	mux.Handle("DELETE "+apiPrefix+"/items/{id}/photos/{photoId}", requireAuth(d.items.DeletePhoto))

	// Wish endpoints
	mux.Handle("GET "+apiPrefix+"/wishes", requireAuth(d.wishes.Feed))
	mux.Handle("GET "+apiPrefix+"/wishes/feed", requireAuth(d.wishes.Feed))
	mux.Handle("GET "+apiPrefix+"/wishes/my-wishes", requireAuth(d.wishes.Mine))
	mux.Handle("GET "+apiPrefix+"/wishes/{id}", requireAuth(d.wishes.Get))
	mux.Handle("POST "+apiPrefix+"/wishes", requireAuth(d.wishes.Create))
	mux.Handle("PUT "+apiPrefix+"/wishes/{id}", requireAuth(d.wishes.Update))
	mux.Handle("POST "+apiPrefix+"/wishes/{id}/fulfilled", requireAuth(d.wishes.MarkFulfilled))
	mux.Handle("DELETE "+apiPrefix+"/wishes/{id}", requireAuth(d.wishes.Delete))

	// Friend endpoints
	mux.Handle("GET "+apiPrefix+"/friends/search", requireAuth(d.friends.Search))
	mux.Handle("GET "+apiPrefix+"/friends", requireAuth(d.friends.List))
	mux.Handle("GET "+apiPrefix+"/friends/requests/pending", requireAuth(d.friends.Pending))
	mux.Handle("GET "+apiPrefix+"/friends/requests/sent", requireAuth(d.friends.Sent))
	mux.Handle("POST "+apiPrefix+"/friends/requests", requireAuth(d.friends.SendRequest))
	mux.Handle("POST "+apiPrefix+"/friends/requests/{id}/accept", requireAuth(d.friends.AcceptRequest))
	mux.Handle("DELETE "+apiPrefix+"/friends/requests/{id}", requireAuth(d.friends.DeclineRequest))
	mux.Handle("DELETE "+apiPrefix+"/friends/{id}", requireAuth(d.friends.Remove))

	// Locally stored photos
	if d.uploadsDir != "" {
		mux.Handle("GET /uploads/", http.StripPrefix("/uploads", handlers.Uploads(d.uploadsDir)))
	}

	mux.HandleFunc("/", handlers.NotFound)
	return mux
}

// limitAPI applies the general limiter to /api requests only.
func limitAPI(limiter *middleware.RateLimiter, next http.Handler) http.Handler {
	limited := limiter.Middleware(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/") {
			limited.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type chainDeps struct {
	metrics       *middleware.Metrics
	apiLimiter    *middleware.RateLimiter
	cors          *middleware.CORS
	compress      *middleware.Compress
	security      *middleware.SecurityHeaders
	requestLogger *middleware.RequestLogger
}

// buildChain wraps the mux, outermost last. Metrics sits directly on the mux
// so it sees the matched pattern.
func buildChain(mux *http.ServeMux, d chainDeps) http.Handler {
	var handler http.Handler = mux
	if d.metrics != nil {
		handler = d.metrics.Apply(handler)
	}
	handler = limitAPI(d.apiLimiter, handler)
	handler = d.compress.Apply(handler)
	handler = d.cors.Apply(handler)
	handler = d.security.Apply(handler)
	handler = d.requestLogger.Apply(handler)
	return handler
}
