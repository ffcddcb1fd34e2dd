package routes

import (
	"github.com/chalkline/league-system/handlers"
	"github.com/chalkline/league-system/middleware"
	"github.com/chalkline/league-system/models"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

func SetupRoutes(
	router *chi.Mux,
	auth *middleware.Authenticator,
	authHandler *handlers.AuthHandler,
	matchHandler *handlers.MatchHandler,
	slotHandler *handlers.SlotHandler,
	ratingHandler *handlers.RatingHandler,
	webSocketHandler *handlers.WebSocketHandler,
) {
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	router.Post("/auth/register", authHandler.Register)
	router.Post("/auth/login", authHandler.Login)

	router.Get("/ws", webSocketHandler.Serve)

	router.Route("/matches", func(r chi.Router) {
		// Публичные маршруты для просмотра
		r.Get("/{matchID}", matchHandler.GetSummary)
		r.Get("/{matchID}/slots/{discipline}", slotHandler.Get)
		r.Get("/{matchID}/slots/{discipline}/audit", slotHandler.GetAudit)

		// Действия участников
		r.Group(func(r chi.Router) {
			r.Use(auth.Authenticate)

			r.Post("/{matchID}/slots/{discipline}/start", slotHandler.Start)
			r.Post("/{matchID}/slots/{discipline}/submissions", slotHandler.Submit)
			r.Post("/{matchID}/slots/{discipline}/evidence", slotHandler.AttachEvidence)
		})

		// Защищённые маршруты только для операторов лиги
		r.Group(func(r chi.Router) {
			r.Use(auth.Authenticate)
			r.Use(middleware.Authorize(models.RoleOperator, models.RoleAdmin))

			r.Post("/", matchHandler.Create)
			r.Post("/{matchID}/slots/{discipline}/resolve", slotHandler.Resolve)
			r.Post("/{matchID}/slots/{discipline}/reset", slotHandler.Reset)
		})
	})

	router.Get("/leagues/{leagueID}/players/{playerID}/rating", ratingHandler.GetPlayerRating)
}
