package earning

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// Clearer periodically promotes pending earnings whose dispute window has
// elapsed. Run in a goroutine.
type Clearer struct {
	service  *Service
	interval time.Duration
	stop     chan struct{}
}

func NewClearer(service *Service) *Clearer {
	return &Clearer{
		service:  service,
		interval: 10 * time.Minute,
		stop:     make(chan struct{}),
	}
}

func (c *Clearer) Start(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stop:
			return
		case <-ticker.C:
			count, err := c.service.ClearDue(ctx)
			if err != nil {
				log.Warn().Err(err).Msg("failed to clear due earnings")
				continue
			}
			if count > 0 {
				log.Info().Int("count", count).Msg("earnings cleared for withdrawal")
			}
		}
	}
}

// Stop terminates Start. Call at most once.
func (c *Clearer) Stop() {
	close(c.stop)
}
