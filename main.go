package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"newsroom/domain/model"
	"newsroom/domain/repository"
	"newsroom/infrastructure/cache"
	"newsroom/infrastructure/clients/ai"
	"newsroom/infrastructure/clients/oauthflow"
	"newsroom/infrastructure/clients/social"
	"newsroom/infrastructure/configuration"
	"newsroom/infrastructure/logger"
	"newsroom/infrastructure/persistence"
	"newsroom/infrastructure/persistence/memory"
	"newsroom/infrastructure/pubsub"
	"newsroom/infrastructure/realtime"
	"newsroom/infrastructure/servicebus"
	"newsroom/infrastructure/vault"
	httpHandler "newsroom/interfaces/http"
	"newsroom/server"
	"newsroom/usecase"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

func recoverPanic() {
	if err := recover(); err != nil {
		logger.GetLogger().WithField("error", err).Error("Application panic recovered")
	}
}

// repositories is the set of stores the usecases run on, either Postgres or in-memory.
type repositories struct {
	credentials repository.ICredential
	setups      repository.IAppCredentialSetup
	conns       repository.IOAuthConnection
	attempts    repository.IPublishAttempt
	quota       repository.IQuota
	settings    repository.ISettings
	articles    repository.IArticle
	jobs        repository.IGenerationJob
	states      repository.IOAuthState
}

func main() {
	defer recoverPanic()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(interrupt)

	configuration.LoadEnvFromFile("config.env", ".env")
	configuration.Load()
	app := configuration.C.App

	credentialVault, err := vault.New(configuration.C.Vault.MasterKey)
	if err != nil {
		logger.GetLogger().WithField("error", err).Fatal("Vault master key missing or invalid; refusing to start")
	}

	defaults := quotaDefaults(configuration.C.Quota)
	backends := map[string]string{}

	var repos repositories
	psqlDb, err := persistence.NewPostgreSQLDB()
	if err != nil {
		logger.GetLogger().WithField("error", err).Warn("PostgreSQL not available - using in-memory stores")
		repos = memoryRepositories(defaults)
		backends["database"] = "memory"
	} else {
		defer psqlDb.Close()
		if err := persistence.EnsureSchema(psqlDb); err != nil {
			logger.GetLogger().WithField("error", err).Fatal("Failed ensuring schema")
		}
		repos = postgresRepositories(psqlDb)
		backends["database"] = "postgres"
	}

	var redisClient *redis.Client
	if configuration.C.RedisClient.Host != "" {
		redisClient, err = cache.NewCache(
			ctx,
			fmt.Sprintf("%s:%s", configuration.C.RedisClient.Host, configuration.C.RedisClient.Port),
			configuration.C.RedisClient.Username,
			configuration.C.RedisClient.Password,
		)
		if err != nil {
			logger.GetLogger().WithField("error", err).Warn("Redis not reachable")
			redisClient = nil
		}
	}
	if redisClient == nil {
		logger.GetLogger().Warn("Redis not available - generation jobs and OAuth state kept in memory")
		repos.jobs = memory.NewJobStore()
		repos.states = memory.NewStateStore()
		backends["cache"] = "memory"
	} else {
		defer redisClient.Close()
		repos.jobs = cache.NewGenerationJobCache(redisClient, time.Duration(configuration.C.Generation.JobTTLHours)*time.Hour)
		repos.states = cache.NewOAuthStateCache(redisClient)
		backends["cache"] = "redis"
	}

	hub := realtime.NewStatusHub()
	forwarders := []func(model.StatusEvent){hub.Broadcast}

	if configuration.C.Pubsub.ProjectID != "" {
		pubSubClient, err := pubsub.NewPubSub(ctx, configuration.C.Pubsub.ProjectID)
		if err != nil {
			logger.GetLogger().WithField("error", err).Warn("PubSub not available - continuing without status export")
		} else {
			defer pubSubClient.Close()
			forwarders = append(forwarders, pubsub.NewStatusPublisher(pubSubClient, configuration.C.Pubsub.Topic).Forward)
			backends["pubsub"] = configuration.C.Pubsub.Topic
		}
	}
	if configuration.C.ServiceBus.Namespace != "" {
		sbClient, err := servicebus.NewServiceBus(ctx, configuration.C.ServiceBus.Namespace)
		if err != nil {
			logger.GetLogger().WithField("error", err).Warn("Azure Service Bus not available - continuing without status export")
		} else {
			defer func() { _ = sbClient.Close(context.Background()) }()
			forwarders = append(forwarders, servicebus.NewStatusSender(sbClient, configuration.C.ServiceBus.Queue).Forward)
			backends["servicebus"] = configuration.C.ServiceBus.Queue
		}
	}
	broadcast := func(evt model.StatusEvent) {
		for _, fwd := range forwarders {
			fwd(evt)
		}
	}

	httpClient := &http.Client{Timeout: 30 * time.Second}
	flows := oauthflow.NewFlows(configuration.C.OAuth, httpClient)
	publishers := social.NewPublishers(configuration.C.OAuth, httpClient)
	aiClient := ai.NewClient(configuration.C.AI.BaseURL)

	reconcilerUsecase := usecase.NewReconcilerUsecase(repos.setups, repos.conns, flows)
	platforms := reconcilerUsecase.Platforms()
	logger.GetLogger().WithField("platforms", platforms).Info("OAuth platforms enabled")

	settingsUsecase := usecase.NewSettingsUsecase(repos.settings)
	quotaUsecase := usecase.NewQuotaUsecase(repos.quota, settingsUsecase, defaults)
	credentialUsecase := usecase.NewCredentialUsecase(credentialVault, repos.credentials, repos.setups, platforms)
	oauthUsecase := usecase.NewOAuthUsecase(flows, credentialUsecase, repos.conns, repos.states,
		time.Duration(configuration.C.OAuth.StateTTLSeconds)*time.Second)
	generationUsecase := usecase.NewGenerationUsecase(
		repos.jobs, repos.articles, credentialUsecase, quotaUsecase, settingsUsecase, aiClient, platforms,
		usecase.GenerationConfig{
			Concurrency:  configuration.C.Generation.Concurrency,
			CallTimeout:  time.Duration(configuration.C.Generation.CallTimeoutSeconds) * time.Second,
			DefaultModel: configuration.C.AI.DefaultModel,
		},
		usecase.WithBroadcaster(broadcast),
	)
	publishUsecase := usecase.NewPublishUsecase(
		repos.jobs, reconcilerUsecase, credentialUsecase, repos.conns, repos.attempts, publishers, quotaUsecase,
		time.Duration(configuration.C.Publish.CallTimeoutSeconds)*time.Second,
		usecase.WithPublishBroadcaster(broadcast),
	)

	router := server.InitiateRouter(server.Handlers{
		Health:     httpHandler.NewHealthHandler(backends),
		Credential: httpHandler.NewCredentialHandler(credentialUsecase),
		OAuth:      httpHandler.NewOAuthHandler(oauthUsecase),
		Connection: httpHandler.NewConnectionHandler(reconcilerUsecase),
		Generation: httpHandler.NewGenerationHandler(generationUsecase),
		Publish:    httpHandler.NewPublishHandler(publishUsecase),
		Quota:      httpHandler.NewQuotaHandler(quotaUsecase),
		Stream:     hub.Serve,
	}, app.SecretKey, app.CorsOrigins)

	g, ctx := errgroup.WithContext(ctx)

	// Units left running by a crashed process are marked timed out.
	g.Go(func() error {
		ticker := time.NewTicker(time.Duration(configuration.C.Generation.SweepIntervalSeconds) * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				n, err := generationUsecase.SweepStale(ctx)
				if err != nil {
					logger.GetLogger().WithField("error", err).Error("Error while sweeping stale generation units")
				} else if n > 0 {
					logger.GetLogger().WithField("units", n).Info("Swept stale generation units")
				}
			}
		}
	})

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", app.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	logger.GetLogger().WithFields(map[string]interface{}{"port": app.Port, "tls": app.TLSEnabled, "backends": backends}).Info("Starting application")
	g.Go(func() error {
		var err error
		if app.TLSEnabled && app.TLSCertFile != "" && app.TLSKeyFile != "" {
			err = httpServer.ListenAndServeTLS(app.TLSCertFile, app.TLSKeyFile)
		} else {
			if app.TLSEnabled {
				logger.GetLogger().Error("TLS enabled but cert or key path empty; falling back to HTTP")
			}
			err = httpServer.ListenAndServe()
		}
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	select {
	case <-interrupt:
		logger.GetLogger().Info("Application shutdown requested")
	case <-ctx.Done():
	}

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.GetLogger().WithField("error", err).Error("HTTP server shutdown")
	}
	if err := generationUsecase.Shutdown(shutdownCtx); err != nil {
		logger.GetLogger().WithField("error", err).Warn("Generation units still running at shutdown")
	}

	if err := g.Wait(); err != nil {
		logger.GetLogger().WithField("error", err).Error("Server returned an error")
		os.Exit(2)
	}
}

func quotaDefaults(q configuration.Quota) model.Settings {
	s := model.DefaultSettings()
	for tier, limit := range map[model.Tier]int{
		model.TierGuest: q.GuestLimit,
		model.TierFree:  q.FreeLimit,
		model.TierPaid:  q.PaidLimit,
	} {
		if limit > 0 {
			s.TierLimits[tier] = limit
		}
	}
	return s
}

func postgresRepositories(db *sql.DB) repositories {
	return repositories{
		credentials: persistence.NewCredentialRepository(db),
		setups:      persistence.NewAppSetupRepository(db),
		conns:       persistence.NewOAuthConnectionRepository(db),
		attempts:    persistence.NewPublishAttemptRepository(db),
		quota:       persistence.NewQuotaRepository(db),
		settings:    persistence.NewSettingsRepository(db),
		articles:    persistence.NewArticleRepository(db),
	}
}

func memoryRepositories(defaults model.Settings) repositories {
	return repositories{
		credentials: memory.NewCredentialStore(),
		setups:      memory.NewSetupStore(),
		conns:       memory.NewConnectionStore(),
		attempts:    memory.NewAttemptStore(),
		quota:       memory.NewQuotaStore(),
		settings:    memory.NewSettingsStore(&defaults),
		articles:    memory.NewArticleStore(),
	}
}
