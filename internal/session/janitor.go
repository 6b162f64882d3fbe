package session

import (
	"context"
	"log"
	"time"

	"github.com/ytget/tg-downloader/internal/model"
)

// StartJanitor sweeps stale sessions every interval until ctx is done.
// onExpired is called outside the store lock for each swept session.
func (s *Store) StartJanitor(ctx context.Context, interval time.Duration, onExpired func(model.Session)) {
	ticker := time.NewTicker(interval)

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				expired := s.Sweep()
				if len(expired) == 0 {
					continue
				}
				log.Printf("🧹 Janitor: expired %d session(s)", len(expired))
				for _, sess := range expired {
					if onExpired != nil {
						onExpired(sess)
					}
				}
			}
		}
	}()
}
