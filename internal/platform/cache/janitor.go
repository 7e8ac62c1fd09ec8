package cache

import (
	"context"
	"sync"
	"time"
)

// Janitor purges expired entries from its stores on a fixed interval. Get only
// evicts the key it reads, so write-mostly stores rely on this to stay bounded.
type Janitor struct {
	Stores   []*Store
	interval time.Duration
	stop     chan struct{}
	done     chan struct{}
	once     sync.Once
}

// StartJanitor starts purging stores every interval. Nil stores are skipped.
func StartJanitor(interval time.Duration, stores ...*Store) *Janitor {
	j := &Janitor{
		interval: interval,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, s := range stores {
		if s != nil {
			j.Stores = append(j.Stores, s)
		}
	}
	if interval <= 0 || len(j.Stores) == 0 {
		close(j.done)
		return j
	}
	go j.run()
	return j
}

func (j *Janitor) run() {
	defer close(j.done)
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	ctx := context.Background()
	for {
		select {
		case <-j.stop:
			return
		case <-ticker.C:
			for _, s := range j.Stores {
				s.Purge(ctx)
			}
		}
	}
}

// Stop ends the purge loop and waits for it. Safe to call more than once.
func (j *Janitor) Stop() error {
	j.once.Do(func() { close(j.stop) })
	<-j.done
	return nil
}
