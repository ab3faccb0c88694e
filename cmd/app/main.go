package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/suchimauz/delivery-date-availability/internal/adapters/in/http"
	rabbitmqin "github.com/suchimauz/delivery-date-availability/internal/adapters/in/rabbitmq"
	"github.com/suchimauz/delivery-date-availability/internal/adapters/out/cache"
	"github.com/suchimauz/delivery-date-availability/internal/adapters/out/logger"
	"github.com/suchimauz/delivery-date-availability/internal/adapters/out/metafield"
	rabbitmqout "github.com/suchimauz/delivery-date-availability/internal/adapters/out/rabbitmq"
	"github.com/suchimauz/delivery-date-availability/internal/adapters/out/sqlite"
	"github.com/suchimauz/delivery-date-availability/internal/config"
	"github.com/suchimauz/delivery-date-availability/internal/core/ports/out"
	"github.com/suchimauz/delivery-date-availability/internal/core/services"
)

func main() {
	// Загрузка конфигурации
	cfg, err := config.NewConfig()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Инициализация логгера с таймзоной
	mainLogger, err := logger.NewConsoleLogger(cfg.App.Timezone, logger.WithMinLevel(out.ParseLogLevel(cfg.App.LogLevel)))
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logger := mainLogger.WithModule("Main")

	logger.Info("app.starting", out.LogFields{
		"version":         cfg.App.Version,
		"env":             cfg.App.Env,
		"timezone":        cfg.App.Timezone,
		"rulesBackend":    cfg.Rules.Backend,
		"rabbitmqEnabled": cfg.RabbitMQ.Enabled,
		"cacheEnabled":    cfg.Cache.Enabled,
	})

	// Настройка Gin в зависимости от окружения
	if cfg.IsNotLocal() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Хранилище правил
	var rulesStore out.RulesStorePort
	switch cfg.Rules.Backend {
	case config.RulesBackendMetafield:
		rulesStore = metafield.NewMetafieldAdapter(cfg, mainLogger)
	default:
		sqliteStore, err := sqlite.NewMetafieldStore(cfg.SQLite.Path, mainLogger)
		if err != nil {
			logger.Error("app.sqlite.init_failed", out.LogFields{
				"path":  cfg.SQLite.Path,
				"error": err.Error(),
			})
			os.Exit(1)
		}
		defer sqliteStore.Close()
		rulesStore = sqliteStore
	}

	// Кэш и публикация изменений подключаются только если включены,
	// в RulesLoader уходит nil интерфейс, а не nil указатель
	var cacheAdapter out.CachePort
	if cfg.Cache.Enabled {
		adapter, err := cache.NewCacheAdapter(cfg, mainLogger)
		if err != nil {
			logger.Error("app.cache.init_failed", out.LogFields{
				"error": err.Error(),
			})
			os.Exit(1)
		}
		if adapter != nil {
			cacheAdapter = adapter
		}
	}

	var notifier out.RulesNotifierPort
	if cfg.RabbitMQ.Enabled {
		publisher, err := rabbitmqout.NewRulesPublisher(cfg, mainLogger)
		if err != nil {
			logger.Error("app.rabbitmq.publisher.init_failed", out.LogFields{
				"error": err.Error(),
			})
			os.Exit(1)
		}
		if publisher != nil {
			notifier = publisher
			defer func() {
				if err := publisher.Close(); err != nil {
					logger.Error("app.rabbitmq.publisher.close_failed", out.LogFields{
						"error": err.Error(),
					})
				}
			}()
		}
	}

	selections, err := cache.NewSelectionStore(cfg, mainLogger)
	if err != nil {
		logger.Error("app.selections.init_failed", out.LogFields{
			"error": err.Error(),
		})
		os.Exit(1)
	}

	// Инициализация сервисов
	rulesLoader := services.NewRulesLoader(
		rulesStore,
		cacheAdapter,
		notifier,
		cfg.Rules.Namespace,
		cfg.Rules.Key,
		mainLogger,
	)

	checkoutService, err := services.NewCheckoutService(ctx, rulesLoader, selections, cfg, mainLogger)
	if err != nil {
		logger.Error("app.checkout.init_failed", out.LogFields{
			"error": err.Error(),
		})
		os.Exit(1)
	}
	defer checkoutService.Close()

	ruleEditorService, err := services.NewRuleEditorService(
		rulesLoader,
		cfg,
		mainLogger,
		services.WithSavedHook(func(ctx context.Context) {
			checkoutService.RefreshSessions(ctx)
		}),
	)
	if err != nil {
		logger.Error("app.editor.init_failed", out.LogFields{
			"error": err.Error(),
		})
		os.Exit(1)
	}

	// Настройка HTTP сервера
	router := gin.Default()
	http.RegisterHealthRoutes(router, cfg)
	http.NewRuleEditorController(ruleEditorService, cfg, mainLogger).RegisterRoutes(router)
	http.NewCheckoutController(checkoutService).RegisterRoutes(router)

	// Настройка RabbitMQ слушателя только если он включен
	if cfg.RabbitMQ.Enabled {
		listener, err := rabbitmqin.NewRulesChangedListener(
			ruleEditorService,
			checkoutService,
			cfg,
			mainLogger,
		)
		if err != nil {
			logger.Error("app.rabbitmq.init_failed", out.LogFields{
				"error": err.Error(),
			})
			os.Exit(1)
		}

		if err := listener.Start(ctx); err != nil {
			logger.Error("app.rabbitmq.start_failed", out.LogFields{
				"error": err.Error(),
			})
			os.Exit(1)
		}

		defer func() {
			if err := listener.Stop(); err != nil {
				logger.Error("app.rabbitmq.stop_failed", out.LogFields{
					"error": err.Error(),
				})
			}
		}()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("app.http.starting", out.LogFields{
			"host": cfg.HTTP.Host,
			"port": cfg.HTTP.Port,
		})

		if err := router.Run(cfg.HTTP.Host + ":" + cfg.HTTP.Port); err != nil {
			logger.Error("app.http.failed", out.LogFields{
				"error": err.Error(),
			})
			sigChan <- syscall.SIGTERM
		}
	}()

	// Дополнительное логирование для разработки
	if cfg.IsLocal() {
		logger.Debug("app.config.debug", out.LogFields{
			"config": map[string]interface{}{
				"http": map[string]string{
					"host": cfg.HTTP.Host,
					"port": cfg.HTTP.Port,
				},
				"rules": map[string]interface{}{
					"namespace":    cfg.Rules.Namespace,
					"key":          cfg.Rules.Key,
					"backend":      cfg.Rules.Backend,
					"pollInterval": cfg.Rules.PollInterval.String(),
				},
				"metafield": map[string]string{
					"url":      cfg.Metafield.URL,
					"username": cfg.Metafield.Username,
				},
				"rabbitmq": map[string]interface{}{
					"enabled":  cfg.RabbitMQ.Enabled,
					"url":      cfg.RabbitMQ.URL,
					"exchange": cfg.RabbitMQ.Exchange,
					"queue":    cfg.RabbitMQ.Queue,
				},
				"cache": map[string]interface{}{
					"enabled":       cfg.Cache.Enabled,
					"snapshotTtl":   cfg.Cache.SnapshotTTL.String(),
					"sessionsSize":  cfg.Cache.SessionsSize,
					"selectionSize": cfg.Checkout.SelectionsSize,
				},
			},
		})
	}

	sig := <-sigChan
	logger.Info("app.shutdown.initiated", out.LogFields{
		"signal": sig.String(),
	})
}
