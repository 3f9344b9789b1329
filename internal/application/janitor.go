package application

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	repo "github.com/oksasatya/go-auth-service/internal/domain/repository"
	"github.com/oksasatya/go-auth-service/pkg/helpers"
)

// Janitor periodically clears verification and reset tokens past their expiry.
type Janitor struct {
	Repo     repo.UserRepository
	Interval time.Duration
	Logger   *logrus.Logger

	clock  func() time.Time
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewJanitor(r repo.UserRepository, interval time.Duration, logger *logrus.Logger) *Janitor {
	return &Janitor{Repo: r, Interval: interval, Logger: logger, clock: time.Now}
}

// Sweep runs one purge cycle and returns the number of tokens cleared.
func (j *Janitor) Sweep(ctx context.Context) (int64, error) {
	n, err := j.Repo.PurgeExpiredTokens(ctx, j.clock())
	if err != nil {
		return 0, infraError("purgeExpiredTokens", err)
	}
	if n > 0 && j.Logger != nil {
		j.Logger.WithField("count", n).Info("purged expired tokens")
	}
	return n, nil
}

// Start runs Sweep immediately and then every Interval until Stop.
// A non-positive Interval disables the janitor.
func (j *Janitor) Start(ctx context.Context) {
	if j.Interval <= 0 {
		return
	}
	ctx, j.cancel = context.WithCancel(ctx)
	j.wg.Add(1)
	go j.run(ctx)
}

func (j *Janitor) Stop() {
	if j.cancel != nil {
		j.cancel()
	}
	j.wg.Wait()
}

func (j *Janitor) run(ctx context.Context) {
	defer j.wg.Done()

	ticker := time.NewTicker(j.Interval)
	defer ticker.Stop()

	j.sweepLogged(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.sweepLogged(ctx)
		}
	}
}

func (j *Janitor) sweepLogged(ctx context.Context) {
	if _, err := j.Sweep(ctx); err != nil && ctx.Err() == nil {
		helpers.LogError(j.Logger, "token sweep failed", err, nil)
	}
}
