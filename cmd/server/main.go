package main // Entry point package

import (
	"log"  // Logging library
	"time" // Policy durations

	"github.com/joho/godotenv"    // .env loader for local development
	"github.com/labstack/echo/v4" // Echo web framework

	"github.com/iliyamo/parking-slot-reservation/internal/clock"      // Injectable time source
	"github.com/iliyamo/parking-slot-reservation/internal/config"     // Internal config loader
	"github.com/iliyamo/parking-slot-reservation/internal/database"   // MySQL connector
	"github.com/iliyamo/parking-slot-reservation/internal/handler"    // HTTP handlers
	"github.com/iliyamo/parking-slot-reservation/internal/middleware" // Rate limiting and response cache
	"github.com/iliyamo/parking-slot-reservation/internal/queue"      // RabbitMQ event publisher and consumer
	"github.com/iliyamo/parking-slot-reservation/internal/repository" // Data access layer
	"github.com/iliyamo/parking-slot-reservation/internal/router"     // Route registration
	"github.com/iliyamo/parking-slot-reservation/internal/scheduler"  // Periodic sweeps
	"github.com/iliyamo/parking-slot-reservation/internal/service"    // Reservation engine
)

func main() {
	_ = godotenv.Load() // .env is optional; real deployments set env directly
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Repositories over the shared connection pool.
	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	lots := repository.NewLotRepo(db)
	slots := repository.NewSlotRepo(db)
	bookings := repository.NewBookingRepo(db)
	patterns := repository.NewPatternRepo(db)
	waitlist := repository.NewWaitlistRepo(db)
	swaps := repository.NewSwapRepo(db)

	// Booking events flow to RabbitMQ; the consumer below turns them
	// into notifications.  Publishing is fire-and-forget so a broker
	// outage never fails a booking.
	notifier := queue.NewPublisher()
	go func() {
		if err := queue.StartEventConsumer(); err != nil {
			log.Printf("event consumer: %v", err)
		}
	}()

	clk := clock.NewSystem()
	bookingSvc := service.NewBookingService(bookings, slots, lots, clk, notifier, service.Policy{
		MaxBookingDays: cfg.MaxBookingDays,
		CheckinEarly:   time.Duration(cfg.CheckinEarlyMin) * time.Minute,
		CheckinLate:    time.Duration(cfg.CheckinLateMin) * time.Minute,
		ReleaseGrace:   time.Duration(cfg.ReleaseGraceMin) * time.Minute,
	})
	recurrenceSvc := service.NewRecurrenceService(patterns, bookings, slots, bookingSvc, clk, cfg.ExpandHorizonDays)
	waitlistSvc := service.NewWaitlistService(waitlist, swaps, bookings, slots, lots, clk, notifier,
		time.Duration(cfg.SwapTTLHours)*time.Hour,
		time.Duration(cfg.WaitlistTTLHours)*time.Hour)
	// Cancellations and no-show releases feed the waitlist.
	bookingSvc.SetFreedListener(waitlistSvc)

	sched, err := scheduler.New(bookingSvc, recurrenceSvc, waitlistSvc)
	if err != nil {
		log.Fatalf("scheduler: %v", err)
	}
	sched.Start()
	defer sched.Stop()

	e := echo.New()

	// Redis-backed rate limiting and response caching apply globally.
	rdb := config.NewRedisClient()
	if rdb != nil {
		e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))
		e.Use(middleware.NewRedisCache(config.LoadCacheConfig(), rdb))
	}

	router.RegisterRoutes(e)
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, users, tokens), cfg.JWTSecret)
	router.RegisterDirectory(e, handler.NewDirectoryHandler(lots, slots), cfg.JWTSecret)
	router.RegisterBookings(e, handler.NewBookingHandler(bookingSvc), cfg.JWTSecret)
	router.RegisterPatterns(e, handler.NewPatternHandler(recurrenceSvc), cfg.JWTSecret)
	router.RegisterWaitlist(e, handler.NewWaitlistHandler(waitlistSvc), cfg.JWTSecret)

	addr := ":" + cfg.Port                                // Address string with port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env) // Print startup info

	if err := e.Start(addr); err != nil { // Start HTTP server
		log.Fatal(err) // Log and exit if server fails
	}
}
