package api

import (
	"context"
	"log"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/susu3304/potbot/internal/config"
	"github.com/susu3304/potbot/internal/db"
	"github.com/susu3304/potbot/internal/game"
	"golang.org/x/oauth2"
)

const discordAPIBase = "https://discord.com/api"

// Store is the session history the protected endpoints read. *db.DB implements it.
type Store interface {
	RegisteredGuildIDs(ctx context.Context) ([]int64, error)
	ListSessions(ctx context.Context, guildID int64) ([]db.SessionSummary, error)
	GetSession(ctx context.Context, guildID int64, id uuid.UUID) (*game.Session, error)
	DeleteSession(ctx context.Context, guildID int64, id uuid.UUID) error
	PendingTasks(ctx context.Context, sessionID uuid.UUID) ([]game.Task, error)
}

type API struct {
	router      *mux.Router
	store       Store
	config      *config.Config
	oauthConfig *oauth2.Config
	jwtSecret   []byte
	discordBase string
}

func New(cfg *config.Config, store Store) *API {
	api := &API{
		router:      mux.NewRouter(),
		store:       store,
		config:      cfg,
		jwtSecret:   []byte(cfg.JWTSecret),
		discordBase: discordAPIBase,
		oauthConfig: &oauth2.Config{
			ClientID:     cfg.DiscordClientID,
			ClientSecret: cfg.DiscordClientSecret,
			RedirectURL:  cfg.DiscordRedirectURI,
			Scopes:       []string{"identify", "guilds"},
			Endpoint: oauth2.Endpoint{
				AuthURL:  "https://discord.com/api/oauth2/authorize",
				TokenURL: "https://discord.com/api/oauth2/token",
			},
		},
	}

	api.setupRoutes()
	return api
}

func (a *API) setupRoutes() {
	// Auth endpoints
	a.router.HandleFunc("/api/auth/login", a.handleLogin).Methods("GET")
	a.router.HandleFunc("/api/auth/callback", a.handleCallback).Methods("GET")
	a.router.HandleFunc("/api/auth/logout", a.handleLogout).Methods("POST")

	// Settlement calculator, no login needed
	a.router.HandleFunc("/api/settle/validate", a.handleValidate).Methods("POST")
	a.router.HandleFunc("/api/settle/auto-balance", a.handleAutoBalance).Methods("POST")
	a.router.HandleFunc("/api/settle/solve", a.handleSolve).Methods("POST")
	a.router.HandleFunc("/api/settle", a.handleSettle).Methods("POST")

	// Protected endpoints
	protected := a.router.PathPrefix("/api").Subrouter()
	protected.Use(a.authMiddleware)

	protected.HandleFunc("/user/guilds", a.handleUserGuilds).Methods("GET")
	protected.HandleFunc("/guilds/{guild_id}/sessions", a.handleListSessions).Methods("GET")
	protected.HandleFunc("/guilds/{guild_id}/sessions/{session_id}", a.handleGetSession).Methods("GET")
	protected.HandleFunc("/guilds/{guild_id}/sessions/{session_id}", a.handleDeleteSession).Methods("DELETE")
	protected.HandleFunc("/guilds/{guild_id}/sessions/{session_id}/tasks", a.handleSessionTasks).Methods("GET")
}

// ServeHTTP serves the routes without CORS, which Start adds.
func (a *API) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.router.ServeHTTP(w, r)
}

func (a *API) Start() error {
	// Note: When AllowedOrigins is "*", AllowCredentials must be false
	corsOptions := cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: false,
	}

	handler := cors.New(corsOptions).Handler(a.router)

	log.Printf("API server listening on http://%s", a.config.WebBind)
	return http.ListenAndServe(a.config.WebBind, handler)
}
