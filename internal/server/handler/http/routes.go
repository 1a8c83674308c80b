package http

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"coursevault/internal/middleware"
)

// NewRouter constructs and returns the HTTP handler that serves the API.
// It applies JSON content-type enforcement and request logging globally and
// bearer-token authentication to everything except registration and login.
//
// Routes:
//
//	POST   /api/auth/register              → authHandler.Register
//	POST   /api/auth/login                 → authHandler.Login
//	POST   /api/courses                    → courseHandler.Create
//	GET    /api/courses                    → courseHandler.List
//	GET    /api/courses/{courseId}         → courseHandler.Get
//	PUT    /api/courses/{courseId}         → courseHandler.Update
//	DELETE /api/courses/{courseId}         → courseHandler.Delete
//	POST   /api/courses/{courseId}/launch  → courseHandler.Launch
//	GET    /api/proxy/embed/{courseId}     → proxyHandler.Embed
//	POST   /api/analysis                   → analysisHandler.Submit
//	GET    /api/analysis                   → analysisHandler.List
//	GET    /api/analysis/{analysisId}      → analysisHandler.GetResult
func NewRouter(
	authHandler *AuthHandler,
	courseHandler *CourseHandler,
	analysisHandler *AnalysisHandler,
	proxyHandler *ProxyHandler,
	jwtSecret string,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Only allow requests with Content-Type: application/json
	r.Use(chiMiddleware.AllowContentType("application/json"))

	// Log each request and its metadata
	r.Use(middleware.WithRequestLogging(logger))

	r.Route("/api", func(r chi.Router) {
		// Public endpoints
		r.Post("/auth/register", authHandler.Register)
		r.Post("/auth/login", authHandler.Login)

		// Protected group: requires a valid bearer token
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(jwtSecret))

			r.Route("/courses", func(r chi.Router) {
				r.Post("/", courseHandler.Create)
				r.Get("/", courseHandler.List)
				r.Get("/{courseId}", courseHandler.Get)
				r.Put("/{courseId}", courseHandler.Update)
				r.Delete("/{courseId}", courseHandler.Delete)
				r.Post("/{courseId}/launch", courseHandler.Launch)
			})

			r.Get("/proxy/embed/{courseId}", proxyHandler.Embed)

			r.Route("/analysis", func(r chi.Router) {
				r.Post("/", analysisHandler.Submit)
				r.Get("/", analysisHandler.List)
				r.Get("/{analysisId}", analysisHandler.GetResult)
			})
		})
	})

	return r
}
