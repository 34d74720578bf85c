package ports

import (
	"context"
	"image"

	"github.com/MuhammadMuizzsuddin/PilkadaJateng/internal/core/domain"
)

// --- DRIVING (Ce que le core expose) ---

// TimelineService est le moteur de synchronisation : il transforme les events
// bruts du backend en TimelinePost validés et alimente le FeedStore.
type TimelineService interface {
	// FetchPosts rejoue la fenêtre bornée (les N derniers posts) puis écoute
	// les events "added". onEvent est invoqué une fois par event traité
	// (nil en cas de succès, erreur typée sinon).
	FetchPosts(ctx context.Context, onEvent func(error)) error
	EndPostFetching()

	// BeginListening écoute les events "changed" sur la même fenêtre.
	// Les deux cycles de vie (added / changed) sont indépendants.
	BeginListening(ctx context.Context, onEvent func(error)) error
	EndListening()

	// Posts retourne l'état courant, ordre anté-chronologique d'insertion.
	Posts() []domain.TimelinePost

	SendPost(ctx context.Context, userID, userName, caption string) (string, error)
	UpdateCaption(ctx context.Context, postID, caption string) error
	SetPhotoURL(ctx context.Context, postID, url string) error
	ToggleLike(ctx context.Context, postID string, user domain.User) error

	UploadPhoto(ctx context.Context, data []byte, path string) (string, error)
	UploadPhotoFile(ctx context.Context, filePath, objectPath string) (string, error)
	FetchPhoto(ctx context.Context, url string) (image.Image, error)
}

// ChannelService gère l'entité sœur. Volontairement minimal : pas de
// résolution, pas de merge, juste une liste vivante.
type ChannelService interface {
	BeginListening(ctx context.Context) error
	EndListening()
	CreateChannel(ctx context.Context, name string) (string, error)
	Channels() []domain.Channel
	SetObserver(fn func())
}
