package main

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-contrib/multitemplate"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"github.com/joho/godotenv"

	"turtlecrossing/internal/config"
	"turtlecrossing/internal/db"
	"turtlecrossing/internal/logging"
	"turtlecrossing/internal/metrics"
	"turtlecrossing/internal/middleware"
	"turtlecrossing/internal/models"
	"turtlecrossing/internal/redis"
	"turtlecrossing/internal/router"
	"turtlecrossing/internal/services"
	"turtlecrossing/internal/utils"
	"turtlecrossing/internal/voting"
)

func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found, reading configuration from the environment")
	}
	cfg := config.Load()
	logging.Setup(cfg.LogLevel)

	if err := run(cfg); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gdb, err := db.Init(cfg)
	if err != nil {
		return err
	}

	clock := clockwork.NewRealClock()
	reg := metrics.NewRegistry()
	engine, err := voting.NewEngine(gdb,
		voting.WithClock(clock),
		voting.WithObserver(metrics.NewVotingMetrics(reg)),
		voting.WithReasonCacheSize(cfg.ReasonCacheSize),
	)
	if err != nil {
		return err
	}
	if err := models.RegisterVoting(engine); err != nil {
		return err
	}
	if err := db.Migrate(gdb, engine); err != nil {
		return err
	}
	if err := db.SeedVoteReasons(ctx, gdb, engine.Reasons()); err != nil {
		return err
	}

	// Reason edits made by another instance reach this one through redis.
	if cfg.RedisURL != "" {
		rdb, err := redis.NewClient(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		defer rdb.Close()
		engine.Reasons().SetPublisher(redis.NewReasonPublisher(rdb))
		go redis.NewReasonInvalidationSubscriber(rdb, engine.Reasons()).Start(ctx)
		slog.Info("reason invalidation enabled", "redis", true)
	}

	stories := services.NewStoryService(gdb, engine, clock, utils.GetCache(), cfg.DuplicateFilterHours)
	karma := services.NewKarmaService(gdb)
	karma.Attach(engine.Hooks())
	go services.NewRankingService(gdb, engine, clock, cfg.RankingInterval).Run(ctx)

	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery(), middleware.RequestID(), metrics.NewHTTPMetrics(reg).Middleware())
	r.Use(sessions.Sessions("turtlecrossing_session", cookie.NewStore([]byte(cfg.SessionSecret))))
	r.HTMLRender = loadTemplates(cfg.TemplatesDir, clock)
	r.Static("/static", "./web/static")

	router.RegisterRoutes(r, router.Deps{
		Config:   cfg,
		DB:       gdb,
		Engine:   engine,
		Clock:    clock,
		Stories:  stories,
		Users:    services.NewUserService(gdb, clock),
		Karma:    karma,
		Registry: reg,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func loadTemplates(templatesDir string, clock clockwork.Clock) multitemplate.Renderer {
	r := multitemplate.NewRenderer()

	layouts, err := filepath.Glob(templatesDir + "/layouts/*.html")
	if err != nil {
		panic(err)
	}
	components, err := filepath.Glob(templatesDir + "/components/*.html")
	if err != nil {
		panic(err)
	}

	assemble := func(view string) []string {
		files := make([]string, 0, len(layouts)+len(components)+1)
		files = append(files, layouts...)
		files = append(files, components...)
		return append(files, templatesDir+"/views/"+view)
	}

	funcMap := template.FuncMap{
		"dict": func(values ...any) (map[string]any, error) {
			if len(values)%2 != 0 {
				return nil, fmt.Errorf("invalid dict call")
			}
			dict := make(map[string]any, len(values)/2)
			for i := 0; i < len(values); i += 2 {
				key, ok := values[i].(string)
				if !ok {
					return nil, fmt.Errorf("dict keys must be strings")
				}
				dict[key] = values[i+1]
			}
			return dict, nil
		},
		"add": func(a, b int) int {
			return a + b
		},
		"eq": func(a, b any) bool {
			return a == b
		},
		"timeAgo": func(t time.Time) string {
			return timeAgo(clock.Now().Sub(t))
		},
		"markdown": utils.RenderMarkdown,
		"excerpt": func(s string, n int) string {
			return utils.Excerpt(string(utils.RenderMarkdown(s)), n)
		},
		"gravatar": utils.GravatarURL,
	}

	for _, view := range []string{
		"auth/login.html",
		"auth/register.html",
		"story/list.html",
		"story/detail.html",
		"story/create.html",
		"user/public.html",
		"error.html",
	} {
		r.AddFromFilesFuncs(view, funcMap, assemble(view)...)
	}
	return r
}

func timeAgo(d time.Duration) string {
	plural := func(n int, unit string) string {
		if n == 1 {
			return fmt.Sprintf("1 %s ago", unit)
		}
		return fmt.Sprintf("%d %ss ago", n, unit)
	}
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return plural(int(d.Minutes()), "minute")
	case d < 24*time.Hour:
		return plural(int(d.Hours()), "hour")
	case d < 30*24*time.Hour:
		return plural(int(d.Hours()/24), "day")
	case d < 365*24*time.Hour:
		return plural(int(d.Hours()/(24*30)), "month")
	}
	return plural(int(d.Hours()/(24*365)), "year")
}
