package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/fsnotify/fsnotify"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"

	"manejobot/internal/agent"
	"manejobot/internal/compliance"
	"manejobot/internal/config"
	"manejobot/internal/database"
	"manejobot/internal/extraction"
	"manejobot/internal/handlers"
	"manejobot/internal/jobs"
	"manejobot/internal/logging"
	"manejobot/internal/middleware"
	"manejobot/internal/services"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	logging.Init(cfg.Environment)

	log.Printf("🌱 Starting manejobot (%s)", cfg.Environment)

	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("❌ Database connection failed: %v", err)
	}
	defer db.Close()
	if err := db.Initialize(); err != nil {
		log.Fatalf("❌ Database initialization failed: %v", err)
	}

	mongoDB, err := database.NewMongo(cfg.MongoURL, cfg.MongoDB)
	if err != nil {
		log.Fatalf("❌ MongoDB connection failed: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = mongoDB.Close(ctx)
	}()

	var redisService *services.RedisService
	if cfg.RedisURL != "" {
		redisService, err = services.GetRedisService(cfg.RedisURL)
		if err != nil {
			log.Fatalf("❌ Redis connection failed: %v", err)
		}
		defer redisService.Close()
	} else {
		log.Printf("⚠️  REDIS_URL not set, thread locks are process-local only")
	}

	var metrics *services.Metrics
	if cfg.MetricsEnabled {
		metrics = services.InitMetrics()
	}

	backends, err := config.LoadBackends(cfg.BackendsFile)
	if err != nil {
		log.Fatalf("❌ Backend configuration failed: %v", err)
	}
	breaker := extraction.NewBreaker(cfg.BreakerCooldown)
	selector := extraction.NewSelector(backends, cfg.RequestTimeout, breaker)
	if metrics != nil {
		selector.SetObserver(metrics)
	}

	engine := compliance.NewEngine(loadRules(cfg.RulesFile))
	if cfg.RulesFile != "" {
		go watchRules(cfg.RulesFile, engine)
	}

	storage := services.NewStorageService(db, metrics)
	conversations := services.NewConversationService(mongoDB, redisService)
	specialist := services.NewSpecialistService(selector)
	quota := services.NewQuotaService(db, metrics)

	controller := agent.NewController(selector, specialist, storage, storage, engine)

	scheduler, err := jobs.New(quota, conversations, metrics)
	if err != nil {
		log.Fatalf("❌ Scheduler setup failed: %v", err)
	}
	scheduler.Start()

	app := fiber.New(fiber.Config{
		AppName:      "manejobot",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 90 * time.Second,
	})
	app.Use(recover.New())

	if metrics != nil {
		prom := fiberprometheus.New("manejobot")
		prom.RegisterAt(app, "/metrics")
		app.Use(prom.Middleware)
	}

	health := handlers.NewHealthHandler(db)
	app.Get("/health", health.Live)
	app.Get("/ready", health.Ready)

	webhook := handlers.NewWebhookHandler(controller, conversations, storage, quota, metrics)
	app.Post("/webhook/message", middleware.SenderRateLimit(cfg.RateLimitPerMinute), webhook.HandleMessage)

	records := handlers.NewRecordsHandler(storage)
	app.Get("/records/:id", records.Get)
	app.Patch("/records/:id", records.Update)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Fatalf("❌ Server failed: %v", err)
		}
	}()
	log.Printf("🚀 Listening on :%s", cfg.Port)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Printf("🛑 Shutting down...")
	_ = scheduler.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := quota.Flush(ctx); err != nil {
		slog.Error("falha ao gravar uso pendente no desligamento", "erro", err)
	}
	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("❌ Shutdown error: %v", err)
	}
	log.Printf("👋 Bye")
}

func loadRules(path string) *compliance.RuleSet {
	if path == "" {
		return compliance.NewRuleSet()
	}
	rules, err := compliance.LoadRules(path)
	if err != nil {
		log.Printf("⚠️  Rules file invalid, using built-in table: %v", err)
		return compliance.NewRuleSet()
	}
	log.Printf("✅ Compliance rules loaded from %s", path)
	return rules
}

// watchRules reloads the substance table when the override file changes,
// so updated restriction lists apply without a restart.
func watchRules(path string, engine *compliance.Engine) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		slog.Error("falha ao iniciar watcher de regras", "erro", err)
		return
	}
	defer watcher.Close()

	// Watch the directory; editors replace the file instead of writing it
	// in place.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		slog.Error("falha ao observar diretório de regras", "erro", err)
		return
	}

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(path) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			rules, err := compliance.LoadRules(path)
			if err != nil {
				slog.Error("regras recarregadas inválidas, mantendo tabela atual", "erro", err)
				continue
			}
			engine.SetRules(rules)
			slog.Info("regras de compliance recarregadas", "arquivo", path)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("erro no watcher de regras", "erro", err)
		}
	}
}
