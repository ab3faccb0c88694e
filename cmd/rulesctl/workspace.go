package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/suchimauz/delivery-date-availability/internal/adapters/out/logger"
	"github.com/suchimauz/delivery-date-availability/internal/adapters/out/rabbitmq"
	"github.com/suchimauz/delivery-date-availability/internal/adapters/out/sqlite"
	"github.com/suchimauz/delivery-date-availability/internal/config"
	"github.com/suchimauz/delivery-date-availability/internal/core/domain"
	"github.com/suchimauz/delivery-date-availability/internal/core/ports/out"
	"github.com/suchimauz/delivery-date-availability/internal/core/services"
	"github.com/suchimauz/delivery-date-availability/internal/core/services/rule_store"
)

var ErrMalformedRules = errors.New("stored rules are malformed")

// workspace это открытая база и рабочая копия правил одной команды
type workspace struct {
	cfg       *config.Config
	store     *sqlite.MetafieldStore
	loader    *services.RulesLoader
	publisher *rabbitmq.RulesPublisher
	rules     *rule_store.RuleStore
	logger    out.LoggerPort
}

func openWorkspace(ctx context.Context, opts *rootOptions) (*workspace, error) {
	cfg, err := config.NewConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if opts.dbPath != "" {
		cfg.SQLite.Path = opts.dbPath
	}
	if opts.namespace != "" {
		cfg.Rules.Namespace = opts.namespace
	}
	if opts.key != "" {
		cfg.Rules.Key = opts.key
	}

	var log out.LoggerPort = logger.NewNopLogger()
	if opts.verbose {
		consoleLogger, err := logger.NewConsoleLogger(cfg.App.Timezone,
			logger.WithWriter(os.Stderr),
			logger.WithMinLevel(out.LogLevelDebug),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize logger: %w", err)
		}
		log = consoleLogger
	}

	store, err := sqlite.NewMetafieldStore(cfg.SQLite.Path, log)
	if err != nil {
		return nil, err
	}

	w := &workspace{
		cfg:    cfg,
		store:  store,
		logger: log.WithModule("rulesctl"),
	}

	var notifier out.RulesNotifierPort
	if opts.notify && cfg.RabbitMQ.Enabled {
		publisher, err := rabbitmq.NewRulesPublisher(cfg, log)
		if err != nil {
			_ = store.Close()
			return nil, err
		}
		if publisher != nil {
			w.publisher = publisher
			notifier = publisher
		}
	}

	w.loader = services.NewRulesLoader(store, nil, notifier, cfg.Rules.Namespace, cfg.Rules.Key, log)

	baseline, err := w.read(ctx)
	if err != nil {
		w.Close()
		return nil, err
	}
	w.rules = rule_store.NewRuleStore(baseline)

	return w, nil
}

// read в отличие от RulesLoader не прячет ошибки: править поверх
// нечитаемого значения нельзя, иначе сохранение его затрет
func (w *workspace) read(ctx context.Context) (domain.RuleConfig, error) {
	value, found, err := w.store.Get(ctx, w.cfg.Rules.Namespace, w.cfg.Rules.Key)
	if err != nil {
		return domain.RuleConfig{}, fmt.Errorf("failed to read rules: %w", err)
	}
	if !found || value == "" {
		return domain.EmptyRuleConfig(), nil
	}

	ruleConfig, err := domain.ParseRuleConfig(value)
	if err != nil {
		return domain.RuleConfig{}, fmt.Errorf("%w: %s", ErrMalformedRules, err.Error())
	}
	return ruleConfig, nil
}

// save пишет рабочую копию, если она отличается от прочитанной
func (w *workspace) save(ctx context.Context) (string, bool, error) {
	if !w.rules.Dirty() {
		return w.rules.Fingerprint(), false, nil
	}

	current := w.rules.Current()
	fingerprint, err := w.loader.SaveRules(ctx, current)
	if err != nil {
		return "", false, err
	}
	w.rules.MarkSaved(current)

	w.logger.Info("rulesctl.rules.saved", out.LogFields{
		"fingerprint": fingerprint,
	})
	return fingerprint, true, nil
}

func (w *workspace) Close() {
	if w.publisher != nil {
		if err := w.publisher.Close(); err != nil {
			w.logger.Error("rulesctl.publisher.close_failed", out.LogFields{
				"error": err.Error(),
			})
		}
	}
	if err := w.store.Close(); err != nil {
		w.logger.Error("rulesctl.store.close_failed", out.LogFields{
			"error": err.Error(),
		})
	}
}
