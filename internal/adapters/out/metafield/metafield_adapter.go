package metafield

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	nurl "net/url"
	"strings"

	"github.com/suchimauz/delivery-date-availability/internal/config"
	"github.com/suchimauz/delivery-date-availability/internal/core/ports/out"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

// Metafield это значение в удаленном хранилище ключ/значение
type Metafield struct {
	Namespace string `json:"namespace"`
	Key       string `json:"key"`
	Value     string `json:"value"`
}

// MetafieldAdapter читает и пишет правила в удаленное хранилище по HTTP.
// Одновременные чтения одного ключа из разных сессий склеиваются в один запрос.
type MetafieldAdapter struct {
	client   *http.Client
	baseURL  string
	username string
	password string
	limiter  *rate.Limiter
	group    singleflight.Group
	logger   out.LoggerPort
}

type getResult struct {
	value string
	found bool
}

func NewMetafieldAdapter(cfg *config.Config, logger out.LoggerPort) *MetafieldAdapter {
	rps := cfg.Metafield.RequestsPerSecond
	limit := rate.Inf
	burst := 1
	if rps > 0 {
		limit = rate.Limit(rps)
		burst = int(rps)
		if burst < 1 {
			burst = 1
		}
	}

	return &MetafieldAdapter{
		client:   &http.Client{Timeout: cfg.Metafield.Timeout},
		baseURL:  strings.TrimRight(cfg.Metafield.URL, "/"),
		username: cfg.Metafield.Username,
		password: cfg.Metafield.Password,
		limiter:  rate.NewLimiter(limit, burst),
		logger:   logger.WithModule("MetafieldAdapter"),
	}
}

func (a *MetafieldAdapter) url(namespace, key string) string {
	return fmt.Sprintf("%s/namespaces/%s/metafields/%s", a.baseURL, nurl.PathEscape(namespace), nurl.PathEscape(key))
}

func (a *MetafieldAdapter) Get(ctx context.Context, namespace, key string) (string, bool, error) {
	// Общий запрос не привязан к контексту первого вызвавшего: его отмена
	// не должна обрывать чтение для остальных сессий. Время ограничено
	// таймаутом клиента.
	ch := a.group.DoChan(namespace+"/"+key, func() (interface{}, error) {
		return a.get(context.WithoutCancel(ctx), namespace, key)
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return "", false, ctx.Err()
	case res = <-ch:
	}
	if res.Err != nil {
		return "", false, res.Err
	}

	if res.Shared {
		a.logger.Debug("metafield.get.shared", out.LogFields{
			"namespace": namespace,
			"key":       key,
		})
	}

	value := res.Val.(getResult)
	return value.value, value.found, nil
}

func (a *MetafieldAdapter) get(ctx context.Context, namespace, key string) (getResult, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return getResult{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.url(namespace, key), nil)
	if err != nil {
		return getResult{}, err
	}
	req.SetBasicAuth(a.username, a.password)
	req.Header.Set("Accept", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		a.logger.Error("metafield.get.failed", out.LogFields{
			"namespace": namespace,
			"key":       key,
			"error":     err.Error(),
		})
		return getResult{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return getResult{}, nil
	}

	if resp.StatusCode != http.StatusOK {
		a.logger.Error("metafield.get.failed", out.LogFields{
			"namespace": namespace,
			"key":       key,
			"status":    resp.StatusCode,
		})
		return getResult{}, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var metafield Metafield
	if err := json.NewDecoder(resp.Body).Decode(&metafield); err != nil {
		a.logger.Error("metafield.get.decode_failed", out.LogFields{
			"namespace": namespace,
			"key":       key,
			"error":     err.Error(),
		})
		return getResult{}, err
	}

	return getResult{value: metafield.Value, found: true}, nil
}

func (a *MetafieldAdapter) Set(ctx context.Context, namespace, key, value string) error {
	if err := a.limiter.Wait(ctx); err != nil {
		return err
	}

	body, err := json.Marshal(Metafield{Namespace: namespace, Key: key, Value: value})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, a.url(namespace, key), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.SetBasicAuth(a.username, a.password)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		a.logger.Error("metafield.set.failed", out.LogFields{
			"namespace": namespace,
			"key":       key,
			"error":     err.Error(),
		})
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusNoContent {
		a.logger.Error("metafield.set.failed", out.LogFields{
			"namespace": namespace,
			"key":       key,
			"status":    resp.StatusCode,
		})
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	a.logger.Debug("metafield.set.success", out.LogFields{
		"namespace": namespace,
		"key":       key,
	})
	return nil
}

var _ out.RulesStorePort = (*MetafieldAdapter)(nil)
