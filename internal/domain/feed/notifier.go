package feed

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/starclip/starclip-api/internal/domain/wallet"
)

// RedisChannel carries serialized ledger events for other services.
const RedisChannel = "ledger:events"

// Notifier fans committed ledger mutations out to in-process subscribers and,
// when Redis is configured, to the ledger:events channel. Delivery is
// fire-and-forget and at-least-once; subscribers dedupe by event ID and never
// treat the feed as a source of truth.
type Notifier struct {
	mu     sync.RWMutex
	subs   map[int]func(wallet.LedgerEvent)
	nextID int

	redis *redis.Client
}

func NewNotifier(redisClient *redis.Client) *Notifier {
	return &Notifier{
		subs:  make(map[int]func(wallet.LedgerEvent)),
		redis: redisClient,
	}
}

// PublishLedgerEvent implements wallet.EventPublisher.
func (n *Notifier) PublishLedgerEvent(ctx context.Context, ev wallet.LedgerEvent) {
	if n.redis != nil {
		payload, err := json.Marshal(ev)
		if err == nil {
			if err := n.redis.Publish(ctx, RedisChannel, payload).Err(); err != nil {
				log.Warn().Err(err).Str("event_id", ev.ID.String()).Msg("redis ledger event publish failed")
			}
		}
	}

	n.mu.RLock()
	subs := make([]func(wallet.LedgerEvent), 0, len(n.subs))
	for _, fn := range n.subs {
		subs = append(subs, fn)
	}
	n.mu.RUnlock()

	for _, fn := range subs {
		go fn(ev)
	}
}

// Subscribe registers an in-process callback. The returned function cancels
// the subscription.
func (n *Notifier) Subscribe(fn func(wallet.LedgerEvent)) func() {
	n.mu.Lock()
	id := n.nextID
	n.nextID++
	n.subs[id] = fn
	n.mu.Unlock()

	return func() {
		n.mu.Lock()
		delete(n.subs, id)
		n.mu.Unlock()
	}
}
