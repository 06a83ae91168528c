package http

import (
	"context"
	"html/template"
	"io/fs"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"gofinances/internal/core"
	"gofinances/internal/dashboard"
	"gofinances/internal/events"
	"gofinances/internal/log"
	"gofinances/internal/middleware/ratelimit"
	"gofinances/internal/middleware/security"
	"gofinances/internal/services"
	appweb "gofinances/web"
)

// Dashboard exposes the current dashboard state.
type Dashboard interface {
	Snapshot() dashboard.State
}

// TransactionWriter changes the stored transaction list.
type TransactionWriter interface {
	AddTransaction(ctx context.Context, in services.NewTransaction) (core.Transaction, error)
	DeleteTransaction(ctx context.Context, id string) error
}

// Profile is the greeting shown above the highlight cards.
type Profile struct {
	DisplayName string
	AvatarURL   string
	Lang        string
}

// Deps are the collaborators of the server. Bus, Screen and Loader are
// required; Transactions and Ready are optional.
type Deps struct {
	Bus          events.Publisher
	Screen       Dashboard
	Loader       dashboard.ViewLoader
	Transactions TransactionWriter
	Ready        func(ctx context.Context) error
	Profile      Profile
	Logger       *log.Logger
}

type Server struct {
	http.Server
	templates *template.Template
	deps      Deps
	logger    *log.Logger
	limiter   *ratelimit.Limiter
}

// NewServer configures routes and templates, returning a ready-to-run http.Server.
func NewServer(addr string, deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = log.Nop()
	}
	s := &Server{
		deps:    deps,
		logger:  deps.Logger.WithComponent(log.ComponentHTTP),
		limiter: ratelimit.NewLimiter(ratelimit.DefaultConfig()),
	}

	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		s.logger.Warn("Failed parsing templates",
			log.NewFields().WithError(err).WithOperation(log.OpRender).ToSlice()...)
	}
	s.templates = t

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(log.Middleware(s.deps.Logger))
	r.Use(log.RequestIDMiddleware(func(r *http.Request) string {
		return middleware.GetReqID(r.Context())
	}))
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(security.Headers(security.DefaultHeadersConfig()))

	r.Get("/healthz", handleHealth)
	r.Get("/readyz", s.handleReady)

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		r.With(security.StaticAssets(3600)).Handle("/static/*", static)
	} else {
		s.logger.Warn("Failed to mount embedded static FS", "error", err)
	}

	r.Get("/", s.handleIndex)

	r.Route("/api", func(r chi.Router) {
		r.Use(log.ComponentMiddleware(log.ComponentTransaction))
		r.Get("/dashboard", s.handleDashboard)
		r.Group(func(r chi.Router) {
			r.Use(s.limiter.Middleware(clientKey))
			r.Post("/transactions", s.handleCreateTransaction)
			r.Delete("/transactions/{id}", s.handleDeleteTransaction)
		})
	})

	return r
}

// clientKey is the client IP without the ephemeral port, so every
// connection from one host shares a rate limit bucket. RealIP has already
// replaced RemoteAddr when a proxy header is present.
func clientKey(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// requestLogger logs the start and completion of every request.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sl := log.NewStructuredLogger(log.FromContext(r.Context()))
		sl.LogHTTPStart(r.Context(), r, clientKey(r))

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		sl.LogHTTPEnd(r.Context(), r, status, time.Since(start).Milliseconds(), clientKey(r))
	})
}

// Shutdown gracefully shuts down the server and the rate limiter.
func (s *Server) Shutdown(ctx context.Context) error {
	s.limiter.Stop()
	return s.Server.Shutdown(ctx)
}
