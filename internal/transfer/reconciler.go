package transfer

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/zjoart/go-intouch-transfer/pkg/logger"
)

// ReconcilePending re-polls the provider for transfers that have been pending
// longer than minAge. It returns how many of them settled.
func (s *Service) ReconcilePending(ctx context.Context, minAge time.Duration, batch int) (int, error) {
	stale, err := s.repo.ListPendingBefore(ctx, s.now().Add(-minAge), batch)
	if err != nil {
		return 0, err
	}

	settled := 0
	for i := range stale {
		if ctx.Err() != nil {
			break
		}
		if updated := s.reconcile(ctx, &stale[i], SourceReconcile); updated.Status.IsTerminal() {
			settled++
		}
	}
	return settled, nil
}

// Reconciler runs ReconcilePending on a cron schedule. It is a safety net for
// webhooks the provider never delivered.
type Reconciler struct {
	service *Service
	cron    *cron.Cron
	minAge  time.Duration
	batch   int
	timeout time.Duration
}

func NewReconciler(service *Service, minAge time.Duration, batch int) *Reconciler {
	c := cron.New(cron.WithChain(cron.Recover(cronLogger{}), cron.SkipIfStillRunning(cronLogger{})))
	return &Reconciler{
		service: service,
		cron:    c,
		minAge:  minAge,
		batch:   batch,
		timeout: 5 * time.Minute,
	}
}

func (r *Reconciler) Start(schedule string) error {
	if _, err := r.cron.AddFunc(schedule, r.run); err != nil {
		return fmt.Errorf("invalid reconcile schedule %q: %w", schedule, err)
	}
	r.cron.Start()
	logger.Info("Pending transfer reconciler started", logger.Fields{"schedule": schedule, "min_age": r.minAge.String()})
	return nil
}

func (r *Reconciler) Stop() context.Context {
	return r.cron.Stop()
}

func (r *Reconciler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	settled, err := r.service.ReconcilePending(ctx, r.minAge, r.batch)
	if err != nil {
		logger.Error("Reconciler: failed to load pending transfers", logger.WithError(err))
		return
	}
	if settled > 0 {
		logger.Info("Reconciler: settled pending transfers", logger.Fields{"count": settled})
	}
}

type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	logger.Debug("cron: "+msg, kvFields(keysAndValues))
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	logger.Error("cron: "+msg, logger.Merge(kvFields(keysAndValues), logger.WithError(err)))
}

func kvFields(kv []interface{}) logger.Fields {
	fields := logger.Fields{}
	for i := 0; i+1 < len(kv); i += 2 {
		fields[fmt.Sprint(kv[i])] = kv[i+1]
	}
	return fields
}
