// Copyright 2025 Nhat-Nguyen Nguyen
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"cruddemo/api"
	"cruddemo/core/coach"
	"cruddemo/core/crud/adapters/persistence/cache"
	"cruddemo/core/crud/adapters/persistence/memdb"
	"cruddemo/core/crud/adapters/persistence/pg"
	"cruddemo/core/crud/adapters/rest"
	"cruddemo/core/crud/domain"
	"cruddemo/core/employee"
	"cruddemo/core/student"
	"cruddemo/migrations"
	"cruddemo/modules/appconfig"
	"cruddemo/modules/clock"
	"cruddemo/modules/db"
	"cruddemo/modules/db/postgres"
	"cruddemo/modules/db/redis"
	"cruddemo/modules/db/redis/counter"
	"cruddemo/modules/db/redis/locking"
	"cruddemo/modules/middleware"
	"cruddemo/modules/middleware/ratelimit"
	"cruddemo/modules/middleware/requestid"
	rl "cruddemo/modules/ratelimit"
	"cruddemo/modules/server"
	"cruddemo/modules/services"
	"cruddemo/modules/telemetry"

	"github.com/redis/rueidis"
)

func main() {
	exitCode := 0
	defer func() {
		if exitCode != 0 {
			os.Exit(exitCode)
		}
	}()

	// cancel the context when these signals occur
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, os.Interrupt)
	defer cancel()

	// manual dependency injection: every component is built here and handed
	// to its consumers through constructors
	appConfig, err := appconfig.Load()
	if err != nil {
		slog.ErrorContext(ctx, "failed to load config", slog.Any("error", err))
		exitCode = 1
		return
	}
	slog.SetLogLoggerLevel(appConfig.LogLevel)

	clk := clock.RealClockProvider()

	otelShutdown, err := telemetry.Init(ctx, appConfig.Otel)
	if err != nil {
		slog.ErrorContext(ctx, "telemetry not properly configured", slog.Any("error", err))
		exitCode = 1
		return
	}
	defer func() {
		if err := otelShutdown(context.WithoutCancel(ctx)); err != nil {
			slog.ErrorContext(ctx, "telemetry shutdown error", slog.Any("error", err))
		}
	}()

	// --- infrastructure ---

	args := os.Args[1:]
	migrating := isMigrateCommand(args)
	if migrating && appConfig.StorageBackend != appconfig.StoragePostgres {
		slog.ErrorContext(ctx, "migrate requires STORAGE_BACKEND=postgres")
		exitCode = 1
		return
	}

	var connectionPool db.ConnectionPool
	if appConfig.StorageBackend == appconfig.StoragePostgres {
		pool, err := postgres.New(
			ctx,
			&appConfig.Postgres,
			postgres.PostgresOptions{
				// assuming the writer does not pass through pgBouncer,
				// so server-side prepared statements stay usable
				ReaderOptions: []postgres.PgxConfigOption{
					postgres.WithPgBouncerSimpleProtocol(),
				},
				WriterOptions: []postgres.PgxConfigOption{
					postgres.WithApplicationName(appConfig.Otel.ServiceName),
				},
				Migrations: migrations.FS,
			},
		)
		if err != nil {
			slog.ErrorContext(ctx, "database error", slog.Any("error", err))
			exitCode = 1
			return
		}
		defer func() {
			if err := pool.Shutdown(ctx); err != nil {
				slog.ErrorContext(ctx, "database shutdown error", slog.Any("error", err))
			}
		}()

		if err = pool.HealthCheck(); err != nil {
			slog.ErrorContext(ctx, "database health check failed", slog.Any("error", err))
			exitCode = 1
			return
		}
		if migrating {
			if err := runMigrate(pool, args[1:]); err != nil {
				slog.ErrorContext(ctx, "migrate command failed", slog.Any("error", err))
				exitCode = 1
			}
			return
		}
		if appConfig.MigrateOnStart {
			if err := pool.MigrateUp(); err != nil {
				slog.ErrorContext(ctx, "database migration failed", slog.Any("error", err))
				exitCode = 1
				return
			}
		}
		connectionPool = pool
	}

	var redisClient rueidis.Client
	if appConfig.Redis.Enabled {
		redisClient, err = redis.NewRueidisClient(ctx, appConfig.Redis)
		if err != nil {
			slog.ErrorContext(ctx, "redis not properly setup", slog.Any("error", err))
			exitCode = 1
			return
		}
		defer redisClient.Close()
	}

	employeeRepo, err := newRepository[employee.Employee](ctx, appConfig, connectionPool, redisClient, employee.Table, employee.MemSchema)
	if err != nil {
		slog.ErrorContext(ctx, "employee repository initialization error", slog.Any("error", err))
		exitCode = 1
		return
	}
	studentRepo, err := newRepository[student.Student](ctx, appConfig, connectionPool, redisClient, student.Table, student.MemSchema)
	if err != nil {
		slog.ErrorContext(ctx, "student repository initialization error", slog.Any("error", err))
		exitCode = 1
		return
	}

	// --- application layer ---

	employeeApp := domain.NewApp(employeeRepo, employee.Name)
	studentApp := domain.NewApp(studentRepo, student.Name)

	if appConfig.SeedDemoData {
		var opts []student.SeederOption
		if appConfig.Redis.Enabled {
			lockerOpt, err := rueidis.ParseURL(appConfig.Redis.URL)
			if err != nil {
				slog.ErrorContext(ctx, "redis url error", slog.Any("error", err))
				exitCode = 1
				return
			}
			locker, err := locking.NewLocker(lockerOpt)
			if err != nil {
				slog.ErrorContext(ctx, "redis locker not properly setup", slog.Any("error", err))
				exitCode = 1
				return
			}
			defer locker.Close()
			opts = append(opts, student.WithLock(locking.NewLockingTaskExecutor(locker,
				locking.WithNamePrefix(appConfig.Env+":"),
				locking.WithClock(clk),
			)))
		}
		if err := student.NewSeeder(studentApp, opts...).Run(ctx); err != nil {
			slog.WarnContext(ctx, "seeding demo data failed, continuing", slog.Any("error", err))
		}
	}

	coaches := coach.DefaultRegistry()
	myCoach, err := coaches.Resolve(appConfig.Coach.Primary)
	if err != nil {
		slog.ErrorContext(ctx, "coach wiring error", slog.Any("error", err))
		exitCode = 1
		return
	}
	anotherCoach, err := coaches.Resolve(appConfig.Coach.Another)
	if err != nil {
		slog.ErrorContext(ctx, "coach wiring error", slog.Any("error", err))
		exitCode = 1
		return
	}

	// --- http ---

	mux := http.NewServeMux()

	rateLimitMiddleware, err := newRateLimitMiddleware(appConfig, clk, redisClient, mux)
	if err != nil {
		slog.ErrorContext(ctx, "ratelimit config not properly parsed", slog.Any("error", err))
		exitCode = 1
		return
	}

	httpMetrics, err := telemetry.NewHTTPMetrics(appConfig.Otel.ServiceName)
	if err != nil {
		slog.WarnContext(ctx, "failed to initialize HTTP metrics, continuing without metrics", slog.Any("error", err))
		httpMetrics = nil
	}

	doc, err := middleware.LoadOpenAPI(ctx, api.FS, api.SpecPath)
	if err != nil {
		slog.ErrorContext(ctx, "openapi document error", slog.Any("error", err))
		exitCode = 1
		return
	}

	crudSvc := services.NewCrudAPIService(doc,
		rest.NewAPI(employeeApp, employee.Resource),
		rest.NewAPI(studentApp, student.Resource, rest.WithQueryFilter(student.LastNameParam, "lastName")),
	)

	srv, err := server.New(
		appConfig.HTTP.Host, appConfig.HTTP.Port,
		server.WithMux(mux),
		server.WithWriteTimeout(appConfig.HTTP.WriteTimeout),
		server.WithReadTimeout(appConfig.HTTP.ReadTimeout),
		server.WithGlobalMiddlewares(
			requestid.Middleware,
			middleware.Telemetry(httpMetrics, mux),
			middleware.Recovery(nil),
			rateLimitMiddleware,
		),
		server.WithServices(crudSvc, coach.NewDemoAPI(myCoach, anotherCoach)),
	)
	if err != nil {
		slog.ErrorContext(ctx, "init server error", slog.Any("error", err))
		exitCode = 1
		return
	}

	if err := srv.Run(ctx); err != nil {
		slog.ErrorContext(ctx, "running server error", slog.Any("error", err))
		exitCode = 1
		return
	}
}

// newRepository picks the storage backend for T and puts the Redis cache in
// front of it when enabled.
func newRepository[T domain.Entity[T]](
	ctx context.Context,
	cfg *appconfig.Config,
	pool db.ConnectionPool,
	redisClient rueidis.Client,
	table pg.Table,
	schema memdb.Schema,
) (domain.Repository[T], error) {
	var repo domain.Repository[T]
	switch cfg.StorageBackend {
	case appconfig.StoragePostgres:
		r, err := pg.NewRepository[T](ctx, pool, table)
		if err != nil {
			return nil, err
		}
		repo = r
	case appconfig.StorageMemory:
		r, err := memdb.NewRepository[T](schema)
		if err != nil {
			return nil, err
		}
		repo = r
	default:
		return nil, errors.New("unknown storage backend " + string(cfg.StorageBackend))
	}

	if cfg.Cache.Enabled && redisClient != nil {
		opts := []redis.RedisKVOption{
			redis.WithKeyPrefix(cfg.Env + ":" + table.Name),
			redis.WithDefaultTTL(cfg.Cache.TTL),
		}
		if cfg.Cache.ClientSide {
			opts = append(opts, redis.WithClientSideCache())
		}
		kv := redis.NewRedisKV(redisClient, opts...)
		repo = cache.New(repo, kv)
	}
	return repo, nil
}

func newRateLimitMiddleware(
	cfg *appconfig.Config,
	clk clock.Clock,
	redisClient rueidis.Client,
	mux *http.ServeMux,
) (func(http.Handler) http.Handler, error) {
	factory := rl.TokenBucketFactory(clk)
	if cfg.RateLimitBackend == appconfig.RateLimitRedis {
		redisCounter := counter.NewRedisCounterStore(redisClient, cfg.Env)
		factory = rl.SlidingWindowFactory(clk, redisCounter, cfg.Env)
	}

	keyStrategies := map[ratelimit.KeyStrategyId]ratelimit.KeyFunc{
		"remote_ip": ratelimit.RemoteIpKeyFunc,
	}

	slog.Debug("app rate limit config", slog.Any("rate_limit_config", cfg.RateLimit))

	rtp, err := ratelimit.ParsePolicy(factory, &cfg.RateLimit, ratelimit.ServeMuxRouteInfo(mux), keyStrategies)
	if err != nil {
		return nil, err
	}
	return ratelimit.NewRateLimitMiddleware(rtp), nil
}

