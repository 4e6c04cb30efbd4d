package main // Entry point package

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/stashpoint/space-inventory/internal/config"
	"github.com/stashpoint/space-inventory/internal/database"
	"github.com/stashpoint/space-inventory/internal/handler"
	"github.com/stashpoint/space-inventory/internal/middleware"
	"github.com/stashpoint/space-inventory/internal/queue"
	"github.com/stashpoint/space-inventory/internal/repository"
	"github.com/stashpoint/space-inventory/internal/router"
	queue_publisher "github.com/stashpoint/space-inventory/internal/service"
)

func main() {
	// .env is a local-development convenience; in production the
	// variables come from the orchestrator.
	_ = godotenv.Load()

	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Redis backs rate limiting and response caching. A nil client
	// disables both; the API keeps working without it.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Printf("redis unavailable; rate limiting and response cache disabled")
	}

	// Repositories.
	members := repository.NewMemberRepo(db)
	tokens := repository.NewTokenRepo(db)
	spaces := repository.NewSpaceRepo(db)
	locations := repository.NewLocationRepo(db)
	items := repository.NewItemRepo(db, locations)
	movements := repository.NewMovementRepo(db)
	tags := repository.NewTagRepo(db)

	// Handlers.
	authH := handler.NewAuthHandler(cfg, members, tokens)
	memberH := handler.NewMemberHandler(members)
	spaceH := handler.NewSpaceHandler(spaces, members)
	locationH := handler.NewLocationHandler(locations, spaces)
	itemH := handler.NewItemHandler(items, spaces, queue_publisher.New())
	tagH := handler.NewTagHandler(tags, items, spaces)
	historyH := handler.NewHistoryHandler(movements, items, spaces)

	e := echo.New()
	e.HideBanner = true

	if rdb != nil {
		e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))
		e.Use(middleware.NewRedisCache(config.LoadCacheConfig(), rdb))
	}

	router.RegisterRoutes(e)
	router.RegisterAuth(e, authH, cfg.JWTSecret)
	router.RegisterMembers(e, memberH, cfg.JWTSecret)
	router.RegisterSpaces(e, spaceH, cfg.JWTSecret)
	router.RegisterInventory(e, locationH, itemH, tagH, historyH, cfg.JWTSecret)

	// Background consumer: appends item.moved events to the movement
	// log file. Runs its own reconnect loop for the broker.
	go func() {
		if err := queue.StartMovementConsumer(); err != nil {
			log.Printf("movement consumer stopped: %v", err)
		}
	}()

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
