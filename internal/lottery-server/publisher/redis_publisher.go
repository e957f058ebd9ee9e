package publisher

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/radieske/lottery-agency-poc/pkg/contracts/events"
	"github.com/radieske/lottery-agency-poc/pkg/contracts/topics"
)

// RedisPublisher grava os ganhadores por agência no Redis e faz broadcast do resultado via Pub/Sub
// Client: cliente Redis
// TTL: tempo de expiração das listas de ganhadores
type RedisPublisher struct {
	Client  *redis.Client
	TTL     time.Duration
	Channel string
}

func NewRedisPublisher(c *redis.Client, ttl time.Duration) *RedisPublisher {
	return &RedisPublisher{Client: c, TTL: ttl, Channel: topics.DrawBroadcastChannel}
}

func (r *RedisPublisher) Name() string { return "redis" }

// WinnersKey gera a chave da lista de ganhadores de uma agência
func WinnersKey(agency int) string { return "lottery:winners:" + strconv.Itoa(agency) }

// LatestDrawKey guarda o último DrawCompleted em JSON
const LatestDrawKey = "lottery:draw:latest"

// PublishDraw substitui as listas de ganhadores numa transação e depois publica o evento
func (r *RedisPublisher) PublishDraw(ctx context.Context, ev events.DrawCompleted) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	_, err = r.Client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for agency, docs := range ev.Winners {
			key := WinnersKey(agency)
			pipe.Del(ctx, key)
			if len(docs) == 0 {
				continue
			}
			vals := make([]any, len(docs))
			for i, d := range docs {
				vals[i] = d
			}
			pipe.RPush(ctx, key, vals...)
			if r.TTL > 0 {
				pipe.Expire(ctx, key, r.TTL)
			}
		}
		pipe.Set(ctx, LatestDrawKey, b, r.TTL)
		return nil
	})
	if err != nil {
		return err
	}

	return r.Client.Publish(ctx, r.Channel, b).Err()
}

// Winners lê os ganhadores publicados de uma agência (lista vazia se não houver)
func (r *RedisPublisher) Winners(ctx context.Context, agency int) ([]string, error) {
	docs, err := r.Client.LRange(ctx, WinnersKey(agency), 0, -1).Result()
	if err == redis.Nil {
		return []string{}, nil
	}
	return docs, err
}
