package services

import (
	"sync"

	"github.com/MuhammadMuizzsuddin/PilkadaJateng/internal/core/domain"
)

// FeedStore maintient l'ensemble ordonné et dédupliqué des posts en mémoire.
// Invariants :
//   - au plus un post par ID ;
//   - l'ordre externe est anté-chronologique d'INSERTION : un update remplace
//     les champs sur place, il ne déplace jamais le post.
//
// Les deux subscriptions (added / changed) livrent sur des goroutines
// indépendantes, donc toute mutation passe sous mutex.
type FeedStore struct {
	mu       sync.RWMutex
	posts    []domain.TimelinePost // ordre d'insertion, le plus ancien en tête
	index    map[string]int        // post ID -> position dans posts
	observer func()
}

func NewFeedStore() *FeedStore {
	return &FeedStore{index: make(map[string]int)}
}

// Upsert insère le post si l'ID est inconnu, sinon remplace l'entrée existante
// à sa position d'origine. Ne peut pas échouer. L'observer est notifié
// exactement une fois, de façon synchrone, après application de la mutation.
func (s *FeedStore) Upsert(post domain.TimelinePost) {
	s.mu.Lock()
	if i, ok := s.index[post.ID]; ok {
		s.posts[i] = post
	} else {
		s.index[post.ID] = len(s.posts)
		s.posts = append(s.posts, post)
	}
	observer := s.observer
	s.mu.Unlock()

	// Hors du lock : l'observer a le droit de relire via Snapshot().
	if observer != nil {
		observer()
	}
}

// Snapshot retourne une copie de l'état courant, le plus récemment inséré en
// premier. Lecture pure, pas d'effet de bord.
func (s *FeedStore) Snapshot() []domain.TimelinePost {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.TimelinePost, len(s.posts))
	for i, p := range s.posts {
		out[len(s.posts)-1-i] = p
	}
	return out
}

// SetObserver enregistre l'unique observer (le dernier inscrit gagne).
// Le callback ne transporte aucune donnée : "quelque chose a changé",
// le consommateur relit via Snapshot().
func (s *FeedStore) SetObserver(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observer = fn
}

// Len est utilisé par les surfaces d'affichage (nombre de cellules).
func (s *FeedStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.posts)
}
