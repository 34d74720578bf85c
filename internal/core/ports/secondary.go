package ports

import (
	"context"

	"github.com/MuhammadMuizzsuddin/PilkadaJateng/internal/core/domain"
)

// --- DRIVEN (Ce dont le core a besoin) ---

// KeyedRecord associe une clé générée par le backend à son payload brut.
type KeyedRecord struct {
	Key    string
	Record *domain.TimelineRecord
}

// TimelineRepository est le store distant ordonné et adressé par clé.
// Le backend génère les clés ; l'ordre externe observé est l'ordre d'insertion.
type TimelineRepository interface {
	// CreatePost crée le record complet et retourne la clé générée.
	CreatePost(ctx context.Context, rec *domain.TimelineRecord) (string, error)

	// GetPost est une lecture ponctuelle (pas l'état live de la subscription).
	GetPost(ctx context.Context, postID string) (*domain.TimelineRecord, error)

	// SetPostField met à jour UN champ du record (photoUrl, caption) et
	// retourne le record résultant, pour que l'appelant publie l'event changed.
	SetPostField(ctx context.Context, postID, field, value string) (*domain.TimelineRecord, error)

	// ToggleLike bascule l'appartenance de user.ID dans le mapping likes,
	// de façon atomique côté backend (pas de read-modify-write perdable).
	ToggleLike(ctx context.Context, postID string, user domain.User) (*domain.TimelineRecord, bool, error)

	// ListWindow retourne les n records les plus récents, du plus ancien au
	// plus récent (l'ordre dans lequel une subscription "added" les livrerait).
	ListWindow(ctx context.Context, n int64) ([]KeyedRecord, error)
}

type ChannelRepository interface {
	CreateChannel(ctx context.Context, name string) (string, error)
	ListChannels(ctx context.Context) ([]domain.Channel, error)
}

// EventHandler reçoit un event (key, value) d'une subscription live.
// Le ctx porte le contexte de trace extrait du transport.
type EventHandler func(ctx context.Context, key string, value []byte)

// Subscription est le handle d'annulation d'une subscription live.
type Subscription interface {
	Unsubscribe() error
}

// EventStream est le fil de notifications de changement du store distant.
// Les writers publient après l'écriture ; les listeners reçoivent (key, value).
type EventStream interface {
	PublishPostAdded(ctx context.Context, key string, rec *domain.TimelineRecord) error
	PublishPostChanged(ctx context.Context, key string, rec *domain.TimelineRecord) error
	PublishChannelAdded(ctx context.Context, key, name string) error

	SubscribePostAdded(handler EventHandler) (Subscription, error)
	SubscribePostChanged(handler EventHandler) (Subscription, error)
	SubscribeChannelAdded(handler EventHandler) (Subscription, error)
}

// BlobStore est le store de blobs distant (photos).
type BlobStore interface {
	// Upload écrit data sous path et retourne la location adressable
	// (ex: "s3://bucket/path"), celle qu'on écrit ensuite dans photoUrl.
	Upload(ctx context.Context, data []byte, path, contentType string) (string, error)
	UploadFile(ctx context.Context, filePath, path, contentType string) (string, error)

	// ResolveURL traduit un path relatif en URL téléchargeable à durée limitée.
	ResolveURL(ctx context.Context, path string) (string, error)

	// Download récupère les bytes, borné à maxBytes.
	Download(ctx context.Context, url string, maxBytes int64) ([]byte, error)

	// ContentType retourne le content-type des métadonnées du blob.
	ContentType(ctx context.Context, url string) (string, error)
}

// Session fournit l'utilisateur actif. Lecture seule pour ce core.
type Session interface {
	CurrentUser() domain.User
}
