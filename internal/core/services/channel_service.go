package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/MuhammadMuizzsuddin/PilkadaJateng/internal/core/domain"
	"github.com/MuhammadMuizzsuddin/PilkadaJateng/internal/core/ports"
)

// ChannelService gère la liste vivante des channels de discussion.
// L'entité n'a ni photo ni likes : pas de pipeline de résolution, juste un
// backfill + une subscription added, dédupliquée par id.
type ChannelService struct {
	repo   ports.ChannelRepository
	stream ports.EventStream

	mu       sync.RWMutex
	channels []domain.Channel
	index    map[string]int
	observer func()

	subMu sync.Mutex
	sub   ports.Subscription
	live  *atomic.Bool
}

func NewChannelService(repo ports.ChannelRepository, stream ports.EventStream) *ChannelService {
	return &ChannelService{
		repo:   repo,
		stream: stream,
		index:  make(map[string]int),
	}
}

type channelPayload struct {
	Name string `json:"name"`
}

// BeginListening recharge la liste puis écoute les créations. Idempotent.
func (s *ChannelService) BeginListening(ctx context.Context) error {
	s.subMu.Lock()
	if s.sub != nil {
		s.subMu.Unlock()
		return nil
	}
	live := &atomic.Bool{}
	live.Store(true)

	sub, err := s.stream.SubscribeChannelAdded(func(_ context.Context, key string, value []byte) {
		if !live.Load() {
			return
		}
		var payload channelPayload
		if err := json.Unmarshal(value, &payload); err != nil {
			slog.Warn("⚠️ Dropping malformed channel event", "key", key, "error", err)
			return
		}
		s.add(domain.Channel{ID: key, Name: payload.Name})
	})
	if err != nil {
		s.subMu.Unlock()
		return fmt.Errorf("subscribe channel.added: %w", err)
	}
	s.sub = sub
	s.live = live
	s.subMu.Unlock()

	existing, err := s.repo.ListChannels(ctx)
	if err != nil {
		return fmt.Errorf("%w: list channels: %v", domain.ErrRemoteRead, err)
	}
	for _, ch := range existing {
		s.add(ch)
	}
	return nil
}

func (s *ChannelService) EndListening() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	if s.sub == nil {
		return
	}
	s.live.Store(false)
	if err := s.sub.Unsubscribe(); err != nil {
		slog.Warn("⚠️ Failed to unsubscribe channel.added", "error", err)
	}
	s.sub = nil
}

// CreateChannel crée le record distant et publie l'event. La liste locale
// n'est mise à jour que quand l'event revient par la subscription.
func (s *ChannelService) CreateChannel(ctx context.Context, name string) (string, error) {
	key, err := s.repo.CreateChannel(ctx, name)
	if err != nil {
		return "", fmt.Errorf("%w: create channel: %v", domain.ErrRemoteWrite, err)
	}
	if err := s.stream.PublishChannelAdded(ctx, key, name); err != nil {
		slog.Error("❌ Failed to publish channel.added", "key", key, "error", err)
	}
	return key, nil
}

// Channels retourne une copie de la liste, ordre d'insertion.
func (s *ChannelService) Channels() []domain.Channel {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Channel, len(s.channels))
	copy(out, s.channels)
	return out
}

func (s *ChannelService) SetObserver(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observer = fn
}

func (s *ChannelService) add(ch domain.Channel) {
	s.mu.Lock()
	if i, ok := s.index[ch.ID]; ok {
		s.channels[i] = ch
	} else {
		s.index[ch.ID] = len(s.channels)
		s.channels = append(s.channels, ch)
	}
	observer := s.observer
	s.mu.Unlock()

	if observer != nil {
		observer()
	}
}
