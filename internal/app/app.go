package app

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"meetings-service/internal/store"
)

// App carries the dependencies shared by every handler.
type App struct {
	Store  store.Store
	Logger *zap.Logger

	// SearchHorizon bounds free-window searches; zero keeps the schedule default.
	SearchHorizon time.Duration

	JWTSecret     string
	JWTExpiration time.Duration
	// PasswordCost is the bcrypt cost; zero means bcrypt.DefaultCost.
	PasswordCost int

	Google  *GoogleCalendarConfig
	Metrics *Metrics
}

func New(s store.Store, logger *zap.Logger) *App {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &App{
		Store:         s,
		Logger:        logger,
		JWTExpiration: 24 * time.Hour,
		PasswordCost:  bcrypt.DefaultCost,
		Metrics:       NewMetrics(),
	}
}

// Router builds the gin engine with every route and middleware installed.
func (a *App) Router() *gin.Engine {
	RegisterValidators()

	router := gin.New()
	router.Use(RequestID(), a.RequestLogger(), gin.Recovery())
	router.NoRoute(func(c *gin.Context) {
		respondError(c, &NotFoundError{Message: "The requested URL was not found on the server."})
	})

	router.GET("/ping", PingHandler)
	router.GET("/metrics", gin.WrapH(a.Metrics.Handler()))

	// OAuth2 callback (must be before auth middleware)
	router.GET("/oauth2callback", a.GoogleOAuth2CallbackHandler)

	api := router.Group("/", a.Authenticate())
	{
		api.POST("/users", a.CreateUserHandler)
		api.POST("/tokens", a.IssueTokenHandler)

		users := api.Group("/users/:username")
		{
			users.GET("/meetings", a.UserMeetingsForRangeHandler)
			users.GET("/meetings.ics", a.UserMeetingsICSHandler)
			users.POST("/calendar/import", a.ImportGoogleCalendarHandler)
		}

		api.POST("/meetings", a.CreateMeetingHandler)
		api.GET("/meetings/:id", a.GetMeetingHandler)
		api.POST("/invitations", a.AnswerInvitationHandler)
		api.GET("/find_free_window_for_users", a.FindFreeWindowHandler)

		api.GET("/calendar/auth", a.GoogleAuthHandler)
	}
	return router
}

func PingHandler(c *gin.Context) {
	c.String(http.StatusOK, "pong")
}
