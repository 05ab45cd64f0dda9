// Package telemetry buffers command-usage records and flushes them to the
// datastore in one batched insert per interval.
package telemetry

import (
	"context"
	"sync"
	"time"

	"warden/internal/storage"

	"go.uber.org/zap"
)

type Recorder struct {
	store    *storage.Store
	logger   *zap.Logger
	interval time.Duration

	mu     sync.Mutex
	buffer []storage.CommandUse

	stop chan struct{}
	done chan struct{}
	once sync.Once
}

func NewRecorder(store *storage.Store, logger *zap.Logger, interval time.Duration) *Recorder {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &Recorder{
		store:    store,
		logger:   logger,
		interval: interval,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func (r *Recorder) Record(guildID, userID, command string) {
	use := storage.CommandUse{
		GuildID: guildID,
		UserID:  userID,
		Command: command,
		UsedAt:  time.Now(),
	}
	r.mu.Lock()
	r.buffer = append(r.buffer, use)
	r.mu.Unlock()
}

// Start launches the periodic flush loop. Call Close to stop it; the final
// flush happens there.
func (r *Recorder) Start() {
	go func() {
		defer close(r.done)
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				r.Flush(context.Background())
			case <-r.stop:
				return
			}
		}
	}()
}

func (r *Recorder) Flush(ctx context.Context) {
	r.mu.Lock()
	batch := r.buffer
	r.buffer = nil
	r.mu.Unlock()

	if len(batch) == 0 {
		return
	}
	if err := r.store.InsertCommandUses(ctx, batch); err != nil {
		r.logger.Warn("command stats flush failed", zap.Int("batch", len(batch)), zap.Error(err))
	}
}

func (r *Recorder) Close(ctx context.Context) {
	r.once.Do(func() {
		close(r.stop)
		<-r.done
		r.Flush(ctx)
	})
}

// Pending reports the current buffer size.
func (r *Recorder) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.buffer)
}
