package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"

	"turtlecrossing/internal/config"
	"turtlecrossing/internal/handlers"
	"turtlecrossing/internal/metrics"
	"turtlecrossing/internal/middleware"
	"turtlecrossing/internal/services"
	"turtlecrossing/internal/voting"
)

// Deps is everything the routes need.
type Deps struct {
	Config   *config.Config
	DB       *gorm.DB
	Engine   *voting.Engine
	Clock    clockwork.Clock
	Stories  *services.StoryService
	Users    *services.UserService
	Karma    *services.KarmaService
	Registry *prometheus.Registry
}

// RegisterRoutes mounts every route. Sessions must already be installed on r.
func RegisterRoutes(r *gin.Engine, d Deps) {
	authHandler := handlers.NewAuthHandler(d.Users)
	storyHandler := handlers.NewStoryHandler(d.Stories, d.Engine)
	voteHandler := handlers.NewVoteHandler(d.Engine, d.Stories)
	userHandler := handlers.NewUserHandler(d.Users, d.Stories, d.Karma, d.Clock)
	adminHandler := handlers.NewAdminHandler(d.Engine.Reasons())
	healthHandler := handlers.NewHealthHandler(d.DB)
	seoHandler := handlers.NewSEOHandler(d.DB, d.Clock, d.Config.SiteURL)

	r.GET("/healthz", healthHandler.Healthz)
	r.GET("/robots.txt", seoHandler.RobotsTxt)
	r.GET("/sitemap.xml", seoHandler.SitemapXML)
	if d.Registry != nil {
		r.GET("/metrics", gin.WrapH(metrics.Handler(d.Registry)))
	}

	r.Use(middleware.LoadUser(d.DB))

	// Public routes
	r.GET("/", storyHandler.ListTop)
	r.GET("/new", storyHandler.ListNew)
	r.GET("/s/:id", storyHandler.Detail)
	r.GET("/u/:username", userHandler.Profile)
	r.GET("/vote/:type/:id/reasons", voteHandler.Reasons)

	r.GET("/signup", authHandler.ShowRegister)
	r.POST("/signup", authHandler.Register)
	r.GET("/login", authHandler.ShowLogin)
	r.POST("/login", authHandler.Login)
	r.GET("/logout", authHandler.Logout)

	// Protected routes
	authorized := r.Group("/")
	authorized.Use(middleware.AuthRequired())
	{
		authorized.GET("/submit", storyHandler.ShowCreate)
		authorized.POST("/submit", storyHandler.Create)
		authorized.POST("/s/:id/comment", storyHandler.CreateComment)
	}

	votes := r.Group("/vote")
	votes.Use(middleware.AuthRequired(), middleware.RateLimit(d.Config.VoteRatePerSecond, d.Config.VoteRateBurst))
	{
		votes.POST("/:type/:id", voteHandler.Vote)
		votes.POST("/:type/:id/remove", voteHandler.RemoveVote)
	}

	admin := r.Group("/admin")
	admin.Use(middleware.AuthRequired(), middleware.StaffRequired())
	{
		admin.GET("/reasons", adminHandler.ListReasons)
		admin.POST("/reasons", adminHandler.SaveReason)
		admin.POST("/reasons/:id/delete", adminHandler.DeleteReason)
	}

	r.NoRoute(func(c *gin.Context) {
		handlers.RenderError(c, http.StatusNotFound, "page not found")
	})
}
