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

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"lastmile-route-service/internal/adapters/cache"
	"lastmile-route-service/internal/adapters/distance"
	"lastmile-route-service/internal/adapters/repositories"
	"lastmile-route-service/internal/api"
	"lastmile-route-service/internal/bus"
	"lastmile-route-service/internal/config"
	"lastmile-route-service/internal/dispatch"
	"lastmile-route-service/internal/platform/db"
	"lastmile-route-service/internal/services"
)

// main is the application composition root.
// It wires concrete adapters (Postgres, Redis, the matrix API) behind
// ports and starts the HTTP server plus the dispatcher pool.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	sqlDB, err := db.Open(cfg.Postgres.DSN(), db.Options{
		MaxOpenConns: cfg.Solver.WorkerPoolSize + 6,
	})
	if err != nil {
		log.Fatal(err)
	}
	defer sqlDB.Close()

	if err := repositories.InitSchema(sqlDB); err != nil {
		log.Fatal(err)
	}

	depots := repositories.NewPostgresDepotRepository(sqlDB)
	vehicles := repositories.NewPostgresVehicleRepository(sqlDB)
	stops := repositories.NewPostgresStopRepository(sqlDB)
	routes := repositories.NewPostgresRouteRepository(sqlDB)
	jobStore := repositories.NewPostgresJobStore(sqlDB)

	var redisClient *redis.Client
	var matrixCache distance.MatrixCache
	if cfg.Redis.Host != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
		matrixCache = cache.NewRedisMatrixCache(redisClient)
		log.Printf("matrix cache enabled addr=%s", cfg.Redis.Addr())
	} else {
		log.Println("REDIS_HOST not set, matrix cache disabled")
	}

	var orsClient *distance.ORSMatrixClient
	if cfg.Matrix.APIKey != "" {
		orsClient, err = distance.NewORSMatrixClient(cfg.Matrix.APIURL, cfg.Matrix.APIKey)
		if err != nil {
			log.Fatal(err)
		}
	} else {
		log.Println("MATRIX_API_KEY not set, using haversine estimates")
	}

	builder := distance.NewBuilder(distance.BuilderOptions{
		Client:      orsClient,
		Cache:       matrixCache,
		LocationCap: cfg.Matrix.LocationCap,
		Timeout:     cfg.Matrix.Timeout,
		AvgSpeedKmh: cfg.Matrix.AvgSpeedKmh,
		CacheTTL:    cfg.Matrix.CacheTTL,
	})

	eventBus := bus.New(cfg.Bus.SubscriberBuffer)
	optimizer := services.NewOptimizer(depots, vehicles, stops, routes, builder, cfg.Solver.ServiceTimeMin)
	rerouter := services.NewRerouter(depots, vehicles, stops, routes, builder, eventBus, cfg.Solver.ServiceTimeMin)
	simulator := services.NewSimulator(depots, vehicles, stops, routes)

	dispatcher := dispatch.New(jobStore, optimizer.Run, dispatch.Options{
		Workers:      cfg.Solver.WorkerPoolSize,
		QueueDepth:   cfg.Solver.QueueDepth,
		SolveTimeout: cfg.Solver.Timeout,
	})
	dispatcher.Start()

	router := api.NewRouter(api.Deps{
		Dispatcher:  dispatcher,
		Optimizer:   optimizer,
		Rerouter:    rerouter,
		Simulator:   simulator,
		Bus:         eventBus,
		Depots:      depots,
		Vehicles:    vehicles,
		Stops:       stops,
		Routes:      routes,
		DB:          sqlDB,
		Redis:       redisClient,
		IdleTimeout: cfg.Bus.IdleTimeout,
	})

	srv := &http.Server{
		Addr:              cfg.Server.ServerAddr(),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Printf("server listening addr=%s workers=%d", srv.Addr, cfg.Solver.WorkerPoolSize)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Println("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("http shutdown: %v", err)
		}
		if err := dispatcher.Shutdown(shutdownCtx); err != nil {
			log.Printf("dispatcher shutdown: %v", err)
		}
		eventBus.Close()
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Fatal(err)
	}
}
