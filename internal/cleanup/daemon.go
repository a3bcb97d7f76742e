package cleanup

import (
	"sync"
	"time"

	"fastsize/internal/logging"
	"fastsize/internal/storage"
)

const DefaultInterval = 5 * time.Minute

// Daemon periodically drops expired probe cache rows.
type Daemon struct {
	db       *storage.DB
	interval time.Duration
	now      func() time.Time

	stop chan struct{}
	done chan struct{}
	once sync.Once
}

func NewDaemon(db *storage.DB, interval time.Duration) *Daemon {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Daemon{
		db:       db,
		interval: interval,
		now:      time.Now,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func (d *Daemon) Start() {
	go func() {
		defer close(d.done)
		ticker := time.NewTicker(d.interval)
		defer ticker.Stop()

		// Run immediately on start
		d.cleanup()

		for {
			select {
			case <-ticker.C:
				d.cleanup()
			case <-d.stop:
				return
			}
		}
	}()
}

// Stop ends the loop and waits for a running pass to finish. It must only be
// called after Start.
func (d *Daemon) Stop() {
	d.once.Do(func() { close(d.stop) })
	<-d.done
}

func (d *Daemon) cleanup() int64 {
	deleted, err := d.db.DeleteExpired(d.now())
	if err != nil {
		logging.Get("cleanup").Printf("cleanup: failed to delete expired probes: %v", err)
		return 0
	}
	if deleted > 0 {
		logging.Get("cleanup").Printf("cleanup: deleted %d expired probes", deleted)
	}
	return deleted
}
