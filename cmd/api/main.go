package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/nivethaug/clawd-backend/config"
	"github.com/nivethaug/clawd-backend/internal/agent"
	"github.com/nivethaug/clawd-backend/internal/bootstrap"
	"github.com/nivethaug/clawd-backend/internal/chat"
	"github.com/nivethaug/clawd-backend/internal/dbguard"
	"github.com/nivethaug/clawd-backend/internal/infra"
	projectsrepo "github.com/nivethaug/clawd-backend/internal/projects/repository"
	"github.com/nivethaug/clawd-backend/internal/projects/service"
	"github.com/nivethaug/clawd-backend/internal/provision"
	sessionsrepo "github.com/nivethaug/clawd-backend/internal/sessions/repository"
	"github.com/nivethaug/clawd-backend/internal/workspace"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	bootstrap.SetGinMode(cfg.App.Environment)

	ctx := context.Background()

	var (
		projects  projectsrepo.Store
		opener    projectsrepo.StatusOpener
		sessions  sessionsrepo.Store
		databases infra.Databases
		ping      func(context.Context) error
	)

	switch cfg.Database.Backend {
	case "postgres":
		pool, err := bootstrap.OpenPostgres(ctx, cfg.Database)
		if err != nil {
			log.Fatalf("postgres: %v", err)
		}
		defer pool.Close()

		pg := projectsrepo.NewPostgresStore(pool)
		if err := pg.InitSchema(ctx); err != nil {
			log.Fatalf("postgres: %v", err)
		}
		sess := sessionsrepo.NewPostgresStore(pool)
		if err := sess.InitSchema(ctx); err != nil {
			log.Fatalf("postgres: %v", err)
		}

		maint, err := bootstrap.OpenMaintenance(ctx, cfg.Database)
		if err != nil {
			log.Fatalf("postgres maintenance: %v", err)
		}
		defer maint.Close()

		guard := dbguard.New(dbguard.Config{MasterName: cfg.Database.Name})
		projects, opener, sessions = pg, pg, sess
		databases = infra.NewManager(maint, guard)
		ping = pool.Ping

	case "sqlite":
		db, err := bootstrap.OpenSQLite(ctx, cfg.Database.SQLitePath)
		if err != nil {
			log.Fatalf("sqlite: %v", err)
		}
		defer db.Close()

		sq := projectsrepo.NewSQLiteStore(db)
		if err := sq.InitSchema(ctx); err != nil {
			log.Fatalf("sqlite: %v", err)
		}
		sess := sessionsrepo.NewSQLiteStore(db)
		if err := sess.InitSchema(ctx); err != nil {
			log.Fatalf("sqlite: %v", err)
		}

		projects, opener, sessions = sq, sq, sess
		databases = infra.Noop{}
		ping = db.PingContext
	}

	var registry *provision.Registry
	if client, err := bootstrap.OpenRedis(ctx, cfg.Redis); err != nil {
		log.Printf("[warn] redis unavailable, run registry disabled: %v", err)
	} else {
		defer client.Close()
		registry = provision.NewRegistry(client)
	}

	folders, err := workspace.NewManager(cfg.Workspace.ProjectsDir)
	if err != nil {
		log.Fatalf("workspace: %v", err)
	}

	runner := agent.NewCLIRunner(cfg.Agent.Bin)
	worker := provision.NewWorker(opener, runner, registry, cfg.Agent.Deadline, cfg.Agent.RulesetPath)

	janitor := chat.NewJanitor(cfg.Gateway.SessionsIndex)
	gateway := chat.NewGateway(cfg.Gateway.BaseURL, cfg.Gateway.Token, cfg.Gateway.Timeout)

	svc := service.New(projects, sessions, folders, databases, worker, janitor)

	var scheduler *cron.Cron
	if registry != nil {
		scheduler = cron.New()
		sweeper := provision.NewSweeper(registry, opener, cfg.Agent.Deadline)
		if err := sweeper.Schedule(scheduler); err != nil {
			log.Fatalf("sweeper: %v", err)
		}
		scheduler.Start()
		defer scheduler.Stop()
	}

	router := bootstrap.BuildRouter(bootstrap.RouterDeps{
		ServiceName: "clawd-backend",
		Version:     cfg.App.Version,
		PingStore:   ping,
		Projects:    svc,
		Sessions:    sessions,
		Gateway:     gateway,
		Janitor:     janitor,
		Registry:    registry,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	go func() {
		log.Printf("[info] component=api addr=%s backend=%s listening", srv.Addr, cfg.Database.Backend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("[info] component=api shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[error] component=api shutdown: %v", err)
	}
}
