package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/MuhammadMuizzsuddin/PilkadaJateng/internal/core/domain"
)

// Schéma Redis :
//   channel:<id>   HASH  name
//   channel:index  ZSET  score = date de création, membre = id
const (
	channelKeyPrefix = "channel:"
	channelIndexKey  = "channel:index"
)

type RedisChannelRepo struct {
	client *redis.Client
}

func NewRedisChannelRepo(client *redis.Client) *RedisChannelRepo {
	return &RedisChannelRepo{client: client}
}

func (r *RedisChannelRepo) CreateChannel(ctx context.Context, name string) (string, error) {
	id := uuid.New().String()

	pipe := r.client.TxPipeline()
	pipe.HSet(ctx, channelKeyPrefix+id, "name", name)
	pipe.ZAdd(ctx, channelIndexKey, redis.Z{
		Score:  float64(time.Now().UnixNano()),
		Member: id,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return "", fmt.Errorf("create channel: %w", err)
	}
	return id, nil
}

// ListChannels retourne tous les channels, du plus ancien au plus récent.
func (r *RedisChannelRepo) ListChannels(ctx context.Context) ([]domain.Channel, error) {
	ids, err := r.client.ZRange(ctx, channelIndexKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list channels: %w", err)
	}

	pipe := r.client.Pipeline()
	cmds := make([]*redis.StringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.HGet(ctx, channelKeyPrefix+id, "name")
	}
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return nil, fmt.Errorf("list channels: %w", err)
	}

	out := make([]domain.Channel, 0, len(ids))
	for i, id := range ids {
		name, err := cmds[i].Result()
		if err != nil {
			continue
		}
		out = append(out, domain.Channel{ID: id, Name: name})
	}
	return out, nil
}
