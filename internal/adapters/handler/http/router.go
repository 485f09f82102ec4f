package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
	"github.com/vncsmyrnk/groupchoice/internal/core/ports"
)

type RouterConfig struct {
	Authenticator ports.Authenticator
	Surveys       *SurveyHandler
	Responses     *ResponseHandler
	Users         *UserHandler
	CORSOrigins   []string
	Logger        zerolog.Logger
}

func NewHandler(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", surveyTokenHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(Identify(cfg.Authenticator, cfg.Logger))

	r.Route("/api", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("welcome"))
		})

		r.Route("/auth", func(r chi.Router) {
			r.Post("/google", cfg.Users.GoogleLogin)
			r.Post("/logout", cfg.Users.Logout)
		})

		r.Get("/users/me", cfg.Users.GetMe)

		r.Route("/surveys", func(r chi.Router) {
			r.Post("/", cfg.Surveys.CreateSurvey)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", cfg.Surveys.GetSurvey)
				r.Post("/invitations", cfg.Surveys.IssueInvitation)
				r.Post("/responses", cfg.Responses.SubmitResponse)
				r.Get("/responses", cfg.Responses.ListResponses)
				r.Get("/response-status", cfg.Responses.GetResponseStatus)
				r.Get("/results", cfg.Responses.GetResults)
				r.Post("/results-visibility", cfg.Responses.ToggleResultsVisibility)
			})
		})
	})

	return r
}
