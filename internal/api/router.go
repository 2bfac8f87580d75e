package api

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/singhkkrish/traceit/internal/photostore"
	"github.com/singhkkrish/traceit/internal/ratelimit"
)

// Options configures the API router.
type Options struct {
	JWTSecret   string
	TokenTTL    time.Duration
	Photos      photostore.Store
	Limiter     ratelimit.Limiter
	TrustProxy  bool
	CORSOrigins []string
}

// NewRouter creates the API router with all endpoints registered.
func NewRouter(db *sql.DB, opts Options) http.Handler {
	if opts.Photos == nil {
		opts.Photos = &photostore.SQLite{DB: db}
	}
	if opts.Limiter == nil {
		opts.Limiter = ratelimit.Unlimited{}
	}

	mux := http.NewServeMux()

	authHandler := &AuthHandler{DB: db, JWTSecret: opts.JWTSecret, TokenTTL: opts.TokenTTL}
	usersHandler := &UsersHandler{DB: db}
	itemsHandler := &ItemsHandler{DB: db, Photos: opts.Photos}
	foundHandler := &FoundItemsHandler{DB: db, Photos: opts.Photos}
	photosHandler := &PhotosHandler{Photos: opts.Photos}

	authMW := AuthMiddleware(opts.JWTSecret, db)
	optionalAuth := OptionalAuth(opts.JWTSecret, db)
	attemptLimit := AttemptLimit(opts.Limiter, opts.TrustProxy)

	mux.HandleFunc("GET /{$}", health)
	mux.HandleFunc("GET /api", health)

	// Auth.
	mux.HandleFunc("POST /api/auth/register", authHandler.Register)
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)
	mux.Handle("GET /api/auth/me", authMW(http.HandlerFunc(usersHandler.Me)))
	mux.Handle("PUT /api/auth/me", authMW(http.HandlerFunc(usersHandler.UpdateMe)))
	mux.Handle("PUT /api/auth/password", authMW(http.HandlerFunc(authHandler.ChangePassword)))
	mux.Handle("POST /api/auth/logout", authMW(http.HandlerFunc(authHandler.Logout)))

	// Lost items: read (public), write (reporter).
	mux.HandleFunc("GET /api/items/lost", itemsHandler.ListLost)
	mux.Handle("GET /api/items/my-reports", authMW(http.HandlerFunc(itemsHandler.MyReports)))
	mux.Handle("POST /api/items/report", authMW(http.HandlerFunc(itemsHandler.Report)))
	mux.HandleFunc("GET /api/items/{id}", itemsHandler.Get)
	mux.Handle("PUT /api/items/{id}", authMW(http.HandlerFunc(itemsHandler.Update)))
	mux.Handle("DELETE /api/items/{id}", authMW(http.HandlerFunc(itemsHandler.Delete)))

	// Found items: read (public), write (finder).
	mux.HandleFunc("GET /api/found-items", foundHandler.List)
	mux.Handle("GET /api/found-items/my-reports", authMW(http.HandlerFunc(foundHandler.MyReports)))
	mux.Handle("POST /api/found-items/report", authMW(http.HandlerFunc(foundHandler.Report)))
	mux.HandleFunc("GET /api/found-items/{id}", foundHandler.Get)
	mux.Handle("PUT /api/found-items/{id}", authMW(http.HandlerFunc(foundHandler.Update)))
	mux.Handle("DELETE /api/found-items/{id}", authMW(http.HandlerFunc(foundHandler.Delete)))
	mux.Handle("PUT /api/found-items/{id}/claim", authMW(http.HandlerFunc(foundHandler.Claim)))
	mux.Handle("POST /api/found-items/{id}/verify", optionalAuth(attemptLimit(http.HandlerFunc(foundHandler.Verify))))

	mux.HandleFunc("GET /api/photos/{id}", photosHandler.Get)

	var handler http.Handler = mux
	handler = LimitBody(MaxBodyBytes)(handler)
	handler = CORSMiddleware(opts.CORSOrigins)(handler)
	return handler
}

func health(w http.ResponseWriter, _ *http.Request) {
	jsonResponse(w, http.StatusOK, envelope{"message": "TraceIt API is running..."})
}
