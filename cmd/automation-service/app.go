package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/sync/errgroup"

	_ "github.com/lib/pq" // PostgreSQL driver

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"leadflow/internal/automation"
	"leadflow/internal/config"
	"leadflow/internal/config_handler"
	"leadflow/internal/constants"
	"leadflow/internal/deduplication"
	"leadflow/internal/enrichment"
	"leadflow/internal/events"
	"leadflow/internal/leads"
	"leadflow/internal/logger"
	"leadflow/internal/mailer"
	"leadflow/internal/management"
	"leadflow/internal/scheduler"
	"leadflow/internal/segments"
	"leadflow/internal/templating"
	"leadflow/pkg/bootstrap"
	"leadflow/pkg/circuitbreaker"
	"leadflow/pkg/health"
	"leadflow/pkg/logging"
	"leadflow/pkg/metrics"
	"leadflow/pkg/middleware"
	"leadflow/pkg/migrations"
	"leadflow/pkg/models"
	"leadflow/pkg/ratelimit"
	"leadflow/pkg/tracing"
)

type App struct {
	*bootstrap.Base
	dbConnector    *bootstrap.DatabaseConnector
	db             *sql.DB
	redis          *redis.Client
	mongoClient    *mongo.Client
	tracerProvider *tracing.TracerProvider

	ruleCache    *automation.RuleCache
	scheduler    *scheduler.Scheduler
	ingress      *leads.IngressHandler
	configEvents *config_handler.Handler
	rateStore    *ratelimit.MemoryStore
	health       *health.CheckerRegistry

	router *gin.Engine
	server *http.Server
}

func NewApp(cfg *config.Config, log logger.Logger) *App {
	if sugaredLogger, ok := log.(*logger.SugaredLogger); ok {
		sugaredLogger.SetServiceName(constants.ServiceName)
	}
	return &App{
		Base:        bootstrap.NewBase(cfg, log),
		dbConnector: bootstrap.NewDatabaseConnector(cfg, log),
		health:      health.NewCheckerRegistry(),
	}
}

func (a *App) Initialize(ctx context.Context) error {
	if err := a.initDatabases(ctx); err != nil {
		return fmt.Errorf("failed to initialize databases: %w", err)
	}

	if a.Config.Broker.Type != "" {
		if err := a.InitBroker(constants.ServiceName); err != nil {
			return fmt.Errorf("failed to initialize broker: %w", err)
		}
	}

	tp, err := tracing.Init(a.Config.Tracing, constants.ServiceName)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	a.tracerProvider = tp

	metrics.RegisterAutomationMetrics()
	metrics.RegisterSchedulerMetrics()
	metrics.RegisterEmailMetrics()
	metrics.RegisterEnrichmentMetrics()
	metrics.RegisterBrokerMetrics()
	metrics.RegisterCircuitBreakerMetrics()
	metrics.RegisterManagementMetrics()

	if err := a.initServices(ctx); err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}

	a.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:      a.router,
		ReadTimeout:  a.Config.Server.ReadTimeoutSeconds,
		WriteTimeout: a.Config.Server.WriteTimeoutSeconds,
	}
	return nil
}

func (a *App) initDatabases(ctx context.Context) error {
	db, err := a.dbConnector.InitPostgreSQL(ctx)
	if err != nil {
		return err
	}
	a.db = db
	a.health.Register(health.NewPostgreSQLChecker(db))

	if a.Config.Database.RunMigrations {
		if err := migrations.MigratePostgresUp(db); err != nil {
			return err
		}
		a.Logger.InfowCtx(ctx, "PostgreSQL migrations applied")
	}

	rdb, err := a.dbConnector.InitRedis(ctx)
	if err != nil {
		a.Logger.WarnwCtx(ctx, "Redis unavailable, continuing without dedup and caches", "error", err)
	} else if rdb != nil {
		a.redis = rdb
		a.health.Register(health.NewRedisChecker(rdb))
	}

	mongoCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	mongoClient, err := a.dbConnector.InitMongoDB(mongoCtx)
	if err != nil {
		return err
	}
	if mongoClient == nil {
		return fmt.Errorf("mongodb uri is not configured")
	}
	a.mongoClient = mongoClient
	a.health.Register(health.NewMongoDBChecker(mongoClient))

	if err := migrations.EnsureMongoIndexes(mongoCtx, a.dbConnector.MongoDatabase(mongoClient)); err != nil {
		return err
	}
	return nil
}

func (a *App) initServices(ctx context.Context) error {
	log := a.Logger
	mgmtRepo := management.NewRepository(a.db)
	leadRepo := leads.NewRepository(a.db)
	eventLog := events.NewRepository(a.dbConnector.MongoDatabase(a.mongoClient))

	var templates automation.TemplateStore = mgmtRepo
	var templateCache *templating.CachedStore
	if a.redis != nil {
		templateCache = templating.NewCachedStore(mgmtRepo, a.redis, a.Config.Management.TemplateCacheTTL, log.Named("templates"))
		templates = templateCache
	}

	email, err := a.newEmailGateway(ctx)
	if err != nil {
		return err
	}

	if a.Config.Automation.RuleCache.Enabled {
		a.ruleCache = automation.NewRuleCache(mgmtRepo, a.Config.Automation.RuleReloadInterval(), log.Named("rules"))
	}

	var executorOpts []automation.ExecutorOption
	if a.Producer != nil && a.Config.Broker.Kafka.NotificationsTopic != "" {
		executorOpts = append(executorOpts, automation.WithTeamNotifier(
			management.NewKafkaTeamNotifier(a.Producer, a.Config.Broker.Kafka.NotificationsTopic),
		))
	}
	executor := automation.NewExecutor(templates, leadRepo, mgmtRepo, email, log.Named("executor"), executorOpts...)
	dispatcher := automation.NewDispatcher(ruleSource(a.ruleCache, mgmtRepo), executor, log.Named("dispatcher"),
		automation.WithRunRecorder(mgmtRepo),
	)

	var enricher *enrichment.Lookup
	if a.Config.Enrichment.Enabled {
		enricher = enrichment.NewLookup(
			enrichment.NewProvider(a.Config.Enrichment, a.Config.CircuitBreaker, a.redis, log.Named("enrichment")),
			log.Named("enrichment"),
		)
	}

	leadOpts := []leads.ServiceOption{leads.WithLogger(log.Named("leads"))}
	if enricher != nil {
		leadOpts = append(leadOpts, leads.WithEnricher(enricher))
	}
	leadService := leads.NewService(leadRepo, eventLog, dispatcher, leadOpts...)

	if a.Config.Automation.Scheduler.Enabled {
		a.scheduler = scheduler.New(mgmtRepo, mgmtRepo, templates, email, log,
			scheduler.WithInterval(a.Config.Automation.SchedulerInterval()),
			scheduler.WithRunRecorder(mgmtRepo),
		)
	}

	mgmtOpts := []management.ServiceOption{
		management.WithLogger(log.Named("management")),
	}
	if a.ruleCache != nil {
		mgmtOpts = append(mgmtOpts, management.WithRuleCache(a.ruleCache))
	}
	if templateCache != nil {
		mgmtOpts = append(mgmtOpts, management.WithTemplateCache(templateCache))
	}
	if a.Producer != nil && a.Config.Broker.Kafka.ConfigUpdateTopic != "" {
		mgmtOpts = append(mgmtOpts, management.WithConfigEvents(
			management.NewConfigEventProducer(a.Producer, a.Config.Broker.Kafka.ConfigUpdateTopic),
		))
	}
	if a.ruleCache != nil && a.Config.Broker.Kafka.ConfigUpdateTopic != "" {
		a.configEvents = config_handler.NewHandler(models.EventTypeAutomationRuleUpdated, a.ruleCache, log.Named("config"))
	}
	mgmtService := management.NewService(mgmtRepo, mgmtOpts...)

	if a.Consumer != nil && a.Config.Automation.Ingest.Enabled {
		var claims leads.Claimer
		if a.redis != nil {
			dedupRepo := deduplication.NewCircuitBreakerRepository(deduplication.NewRepository(a.redis), a.Config.CircuitBreaker)
			claims = deduplication.NewService(dedupRepo, a.Config.Deduplication, log.Named("dedup"))
			a.health.Register(health.NewBreakerChecker("redis-dedup", dedupRepo.State))
		}
		a.ingress = leads.NewIngressHandler(leadService, claims, log.Named("ingress"))
	}

	segmentService, err := segments.NewService(leadRepo, eventLog, log.Named("segments"))
	if err != nil {
		return err
	}

	a.router = a.newRouter()
	management.NewHandler(mgmtService, log).RegisterRoutes(a.router)
	leads.NewHandler(leadService, log).RegisterRoutes(a.router)
	segments.NewHandler(segmentService, log).RegisterRoutes(a.router)
	if enricher != nil {
		enrichment.NewHandler(enrichment.NewService(enricher, leadService, log), log).RegisterRoutes(a.router)
	}
	return nil
}

// ruleSource serves rules from the cache when one is configured and straight
// from the store otherwise.
func ruleSource(cache *automation.RuleCache, store automation.RuleSource) automation.RuleSource {
	if cache == nil {
		return store
	}
	return cache
}

func (a *App) newEmailGateway(ctx context.Context) (*mailer.Gateway, error) {
	sender, err := mailer.NewSender(ctx, a.Config.Email, a.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create email sender: %w", err)
	}

	var breaker *circuitbreaker.Wrapper
	if a.Config.CircuitBreaker.Enabled {
		breaker = circuitbreaker.NewWrapper(circuitbreaker.FromSettings("email", a.Config.CircuitBreaker))
		a.health.Register(health.NewBreakerChecker("email", func() string { return breaker.State().String() }))
	}
	return mailer.NewGateway(sender, a.Config.Email.Sender, breaker, a.Logger), nil
}

func (a *App) newRouter() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	if a.Config.Tracing.Enabled {
		router.Use(tracing.GinMiddleware(constants.ServiceName))
	}

	router.Use(middleware.RecoveryMiddleware(a.Logger))
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggerMiddleware(a.Logger))

	router.GET("/health", a.health.Handler())
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	if settings := a.Config.Management.RateLimit; settings.Enabled {
		store := ratelimit.NewStore(settings, a.redis)
		if memory, ok := store.(*ratelimit.MemoryStore); ok {
			a.rateStore = memory
		}
		cfg := ratelimit.FromSettings(settings)
		router.Use(ratelimit.Middleware(store, cfg, a.Logger))
		a.Logger.InfowCtx(context.Background(), "Rate limiting enabled",
			"store", settings.Store,
			"rps", cfg.RPS,
			"burst", cfg.Burst,
		)
	}
	return router
}

func (a *App) Run(ctx context.Context) error {
	g, gCtx := errgroup.WithContext(ctx)
	runCtx := logging.WithServiceName(gCtx, constants.ServiceName)

	g.Go(func() error {
		a.Logger.InfowCtx(runCtx, "HTTP server starting", "port", a.Config.Server.Port)
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
		defer cancel()
		return a.server.Shutdown(shutdownCtx)
	})

	if a.ruleCache != nil {
		g.Go(func() error {
			return ignoreCanceled(a.ruleCache.StartReloader(runCtx))
		})
	}

	if a.scheduler != nil {
		g.Go(func() error {
			return ignoreCanceled(a.scheduler.Run(runCtx))
		})
	}

	if a.rateStore != nil {
		g.Go(func() error {
			a.rateStore.Run(runCtx)
			return nil
		})
	}

	if a.ingress != nil {
		topic := a.Config.Broker.Kafka.LeadEventsTopic
		if topic == "" {
			topic = constants.DefaultLeadEventsTopic
		}
		g.Go(func() error {
			a.Logger.InfowCtx(runCtx, "Starting lead event consumer", "topic", topic)
			return ignoreCanceled(a.Consumer.Consume(runCtx, topic, a.ingress.HandleLeadEvent))
		})
	}

	if a.configEvents != nil && a.ConfigConsumer != nil {
		topic := a.Config.Broker.Kafka.ConfigUpdateTopic
		g.Go(func() error {
			a.Logger.InfowCtx(runCtx, "Starting config update event consumer", "topic", topic)
			return ignoreCanceled(a.ConfigConsumer.Consume(runCtx, topic, a.configEvents.HandleConfigUpdateEvent))
		})
	}

	return g.Wait()
}

func (a *App) Shutdown(ctx context.Context) error {
	shutdownCtx := logging.WithServiceName(ctx, constants.ServiceName)

	additionalShutdown := func(ctx context.Context) []error {
		var errs []error

		if a.tracerProvider != nil {
			if err := a.tracerProvider.Shutdown(ctx); err != nil {
				errs = append(errs, fmt.Errorf("tracer provider shutdown error: %w", err))
			}
		}

		errs = append(errs, a.dbConnector.ShutdownDatabases(ctx, a.redis, a.db, a.mongoClient)...)
		return errs
	}

	return a.Base.Shutdown(shutdownCtx, additionalShutdown)
}

func ignoreCanceled(err error) error {
	if err == context.Canceled {
		return nil
	}
	return err
}
