package routes

import (
	"github.com/Dosada05/darts-league/handlers"
	"github.com/Dosada05/darts-league/middleware"
	"github.com/Dosada05/darts-league/models"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// SetupRoutes настраивает все маршруты приложения. Чтение открыто всем,
// мутации защищены JWT; слияние игроков и удаление лиг только для админов.
func SetupRoutes(
	router *chi.Mux,
	jwtSecret string,
	authHandler *handlers.AuthHandler,
	leagueHandler *handlers.LeagueHandler,
	playerHandler *handlers.PlayerHandler,
	tournamentHandler *handlers.TournamentHandler,
	webSocketHandler *handlers.WebSocketHandler,
) {
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	authenticate := middleware.Authenticate(jwtSecret)
	adminOnly := middleware.Authorize(models.RoleAdmin)

	router.Post("/auth/register", authHandler.Register)
	router.Post("/auth/login", authHandler.Login)

	router.Route("/leagues", func(r chi.Router) {
		r.Get("/", leagueHandler.List)
		r.Get("/{leagueID}", leagueHandler.Get)
		r.Get("/{leagueID}/members", leagueHandler.ListMembers)
		r.Get("/{leagueID}/leaderboard", leagueHandler.GetLeaderboard)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)

			r.Post("/", leagueHandler.Create)
			r.Put("/{leagueID}", leagueHandler.Update)
			r.Post("/{leagueID}/logo", leagueHandler.UploadLogo)

			r.Post("/{leagueID}/members", leagueHandler.AddMembers)
			r.Patch("/{leagueID}/members/{playerID}", leagueHandler.UpdateMember)
			r.Delete("/{leagueID}/members/{playerID}", leagueHandler.RemoveMember)

			r.Post("/{leagueID}/tournaments/{tournamentID}/link", leagueHandler.LinkTournament)
			r.Delete("/{leagueID}/tournaments/{tournamentID}/link", leagueHandler.UnlinkTournament)
			r.Post("/{leagueID}/tournaments/{tournamentID}/calculate", leagueHandler.CalculateTournament)
			r.Post("/{leagueID}/recalculate", leagueHandler.Recalculate)
			r.Put("/{leagueID}/leaderboard/{playerID}/points", leagueHandler.SetPlayerPoints)

			r.Group(func(r chi.Router) {
				r.Use(adminOnly)
				r.Delete("/{leagueID}", leagueHandler.Delete)
			})
		})
	})

	router.Route("/players", func(r chi.Router) {
		r.Get("/", playerHandler.List)
		r.Get("/{playerID}", playerHandler.Get)

		r.Group(func(r chi.Router) {
			r.Use(authenticate)

			r.Post("/", playerHandler.Create)
			r.Put("/{playerID}", playerHandler.Rename)
			r.Post("/{playerID}/photo", playerHandler.UploadPhoto)

			r.Group(func(r chi.Router) {
				r.Use(adminOnly)
				r.Post("/merge", playerHandler.Merge)
			})
		})
	})

	router.Route("/tournaments", func(r chi.Router) {
		r.Get("/unlinked", tournamentHandler.ListUnlinked)
		r.Get("/{tournamentID}", tournamentHandler.Get)
		r.Get("/{tournamentID}/summary", tournamentHandler.GetSummary)
	})

	router.Get("/ws/leagues/{leagueID}", webSocketHandler.ServeWs)
}
