package checkout_session

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/suchimauz/delivery-date-availability/internal/core/domain"
	"github.com/suchimauz/delivery-date-availability/internal/core/ports/out"
)

type SnapshotFetcher interface {
	FetchRules(ctx context.Context) domain.RuleConfig
}

type SnapshotApplier interface {
	ApplySnapshot(ctx context.Context, ruleConfig domain.RuleConfig)
}

// Reconciler периодически перечитывает правила и отдает их сессии.
// Если предыдущее чтение еще не завершилось, тик пропускается, а
// внеочередная сверка откладывается до его завершения.
type Reconciler struct {
	fetcher  SnapshotFetcher
	applier  SnapshotApplier
	interval time.Duration
	logger   out.LoggerPort

	fetching atomic.Bool
	pending  atomic.Bool
	mu       sync.Mutex
	loopCtx  context.Context
	cancel   context.CancelFunc
	loopDone chan struct{}
	inflight sync.WaitGroup
}

func NewReconciler(
	fetcher SnapshotFetcher,
	applier SnapshotApplier,
	interval time.Duration,
	logger out.LoggerPort,
) *Reconciler {
	return &Reconciler{
		fetcher:  fetcher,
		applier:  applier,
		interval: interval,
		logger:   logger.WithModule("Reconciler"),
	}
}

// Start выполняет первую сверку синхронно и запускает периодическую.
// Повторный вызов ничего не делает.
func (r *Reconciler) Start(ctx context.Context) {
	r.mu.Lock()
	if r.cancel != nil {
		r.mu.Unlock()
		return
	}
	loopCtx, cancel := context.WithCancel(ctx)
	r.loopCtx = loopCtx
	r.cancel = cancel
	r.loopDone = make(chan struct{})
	r.mu.Unlock()

	r.Reconcile(loopCtx)

	go r.loop(loopCtx)
}

func (r *Reconciler) loop(ctx context.Context) {
	defer close(r.loopDone)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.inflight.Add(1)
			go func() {
				defer r.inflight.Done()
				r.Reconcile(ctx)
			}()
		}
	}
}

// Reconcile читает правила и применяет их. Возвращает false, если
// чтение уже идет или контекст отменен.
func (r *Reconciler) Reconcile(ctx context.Context) bool {
	return r.reconcile(ctx, false)
}

// Recheck запускает внеочередную сверку в контексте цикла, Stop дожидается
// ее завершения. Если чтение уже идет, после него выполняется еще одно.
// Возвращает false, если сверка остановлена или ctx отменен.
func (r *Reconciler) Recheck(ctx context.Context) bool {
	r.mu.Lock()
	if r.loopCtx == nil || r.loopCtx.Err() != nil {
		r.mu.Unlock()
		return false
	}
	loopCtx := r.loopCtx
	r.inflight.Add(1)
	r.mu.Unlock()
	defer r.inflight.Done()

	recheckCtx, cancel := context.WithCancel(loopCtx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	return r.reconcile(recheckCtx, true)
}

func (r *Reconciler) reconcile(ctx context.Context, recheck bool) bool {
	if !r.fetching.CompareAndSwap(false, true) {
		if recheck {
			r.pending.Store(true)
			r.logger.Debug("reconcile.recheck.deferred", out.LogFields{
				"reason": "fetch in flight",
			})
			return true
		}
		r.logger.Debug("reconcile.tick.skipped", out.LogFields{
			"reason": "fetch in flight",
		})
		return false
	}

	applied := false
	for {
		r.pending.Store(false)
		if r.reconcileOnce(ctx) {
			applied = true
		}
		r.fetching.Store(false)

		// запрос на сверку пришел во время чтения, которое могло вернуть
		// старый снимок
		if !r.pending.Load() || ctx.Err() != nil || !r.fetching.CompareAndSwap(false, true) {
			return applied
		}
	}
}

func (r *Reconciler) reconcileOnce(ctx context.Context) bool {
	if ctx.Err() != nil {
		return false
	}

	ruleConfig := r.fetcher.FetchRules(ctx)

	// сессия могла закрыться, пока шло чтение
	if ctx.Err() != nil {
		return false
	}

	r.applier.ApplySnapshot(ctx, ruleConfig)
	return true
}

// Stop отменяет таймер и ждет завершения цикла и текущей сверки
func (r *Reconciler) Stop() {
	r.mu.Lock()
	cancel := r.cancel
	loopDone := r.loopDone
	if cancel != nil {
		cancel()
	}
	r.mu.Unlock()

	if cancel == nil {
		return
	}

	<-loopDone
	r.inflight.Wait()
}
