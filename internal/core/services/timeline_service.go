package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/disintegration/imaging"
	gonanoid "github.com/matoous/go-nanoid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/MuhammadMuizzsuddin/PilkadaJateng/internal/core/domain"
	"github.com/MuhammadMuizzsuddin/PilkadaJateng/internal/core/ports"
)

const (
	// WindowSize est la borne de la fenêtre live : on ne synchronise que les
	// N posts les plus récents.
	WindowSize = 20

	// MaxPhotoBytes borne le téléchargement d'une photo.
	MaxPhotoBytes = 10 << 20

	photoContentType = "image/jpeg"
)

// TimelineSync fait le pont entre les change-events bruts du backend et le
// FeedStore : validation du payload, résolution photoUrl -> URL téléchargeable,
// merge idempotent. Il possède ses handles de subscription ; les callbacks en
// vol après annulation sont neutralisés par un flag de vivacité.
type TimelineSync struct {
	store   *FeedStore
	repo    ports.TimelineRepository
	stream  ports.EventStream
	blobs   ports.BlobStore
	session ports.Session

	// storagePrefix est le préfixe bien connu des locations du blob store
	// (ex: "s3://pilkada-jateng/"), retiré de photoUrl pour obtenir le path.
	storagePrefix string
	window        int64

	mu          sync.Mutex
	addedSub    ports.Subscription
	addedLive   *atomic.Bool
	changedSub  ports.Subscription
	changedLive *atomic.Bool

	dropped atomic.Int64
	tracer  trace.Tracer
}

func NewTimelineSync(
	store *FeedStore,
	repo ports.TimelineRepository,
	stream ports.EventStream,
	blobs ports.BlobStore,
	session ports.Session,
	storagePrefix string,
) *TimelineSync {
	return &TimelineSync{
		store:         store,
		repo:          repo,
		stream:        stream,
		blobs:         blobs,
		session:       session,
		storagePrefix: storagePrefix,
		window:        WindowSize,
		tracer:        otel.Tracer("timeline-service"),
	}
}

// --- SUBSCRIPTIONS ---

// FetchPosts rejoue la fenêtre bornée à travers le pipeline de parse, puis
// écoute les events "added". Idempotent : un second appel pendant qu'une
// subscription est vivante est un no-op (aucun handle ne peut fuir).
func (s *TimelineSync) FetchPosts(ctx context.Context, onEvent func(error)) error {
	s.mu.Lock()
	if s.addedSub != nil {
		s.mu.Unlock()
		return nil
	}
	live := &atomic.Bool{}
	live.Store(true)

	// On s'abonne AVANT le backfill : un post créé entre les deux arrive par
	// le live et le doublon éventuel est absorbé par l'upsert.
	sub, err := s.stream.SubscribePostAdded(s.eventHandler(live, onEvent))
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("subscribe post.added: %w", err)
	}
	s.addedSub = sub
	s.addedLive = live
	s.mu.Unlock()

	window, err := s.repo.ListWindow(ctx, s.window)
	if err != nil {
		// On relâche la subscription : l'appelant doit pouvoir réessayer
		// FetchPosts sans tomber sur le garde d'idempotence.
		s.EndPostFetching()
		return fmt.Errorf("%w: list window: %v", domain.ErrRemoteRead, err)
	}
	for _, kr := range window {
		value, err := json.Marshal(kr.Record)
		if err != nil {
			continue
		}
		s.processEvent(ctx, kr.Key, value, onEvent)
	}
	return nil
}

func (s *TimelineSync) EndPostFetching() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.addedSub == nil {
		return
	}
	s.addedLive.Store(false)
	if err := s.addedSub.Unsubscribe(); err != nil {
		slog.Warn("⚠️ Failed to unsubscribe post.added", "error", err)
	}
	s.addedSub = nil
}

// BeginListening écoute les events "changed". Cycle de vie indépendant de
// FetchPosts ; mêmes garanties d'idempotence.
func (s *TimelineSync) BeginListening(ctx context.Context, onEvent func(error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.changedSub != nil {
		return nil
	}
	live := &atomic.Bool{}
	live.Store(true)

	sub, err := s.stream.SubscribePostChanged(s.eventHandler(live, onEvent))
	if err != nil {
		return fmt.Errorf("subscribe post.changed: %w", err)
	}
	s.changedSub = sub
	s.changedLive = live
	return nil
}

func (s *TimelineSync) EndListening() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.changedSub == nil {
		return
	}
	s.changedLive.Store(false)
	if err := s.changedSub.Unsubscribe(); err != nil {
		slog.Warn("⚠️ Failed to unsubscribe post.changed", "error", err)
	}
	s.changedSub = nil
}

func (s *TimelineSync) eventHandler(live *atomic.Bool, onEvent func(error)) ports.EventHandler {
	return func(ctx context.Context, key string, value []byte) {
		// Subscription annulée entre livraison et traitement : on ne touche
		// plus ni au store ni au callback.
		if !live.Load() {
			return
		}
		s.processEvent(ctx, key, value, onEvent)
	}
}

// processEvent déroule le pipeline pour un event et propage le résultat au
// callback de la subscription. Un event écarté (payload incomplet, sentinelle)
// n'invoque PAS le callback, comme dans le comportement d'origine.
func (s *TimelineSync) processEvent(ctx context.Context, key string, value []byte, onEvent func(error)) {
	ctx, span := s.tracer.Start(ctx, "process_timeline_event", trace.WithSpanKind(trace.SpanKindConsumer))
	defer span.End()

	processed, err := s.ParseEvent(ctx, key, value)
	if err != nil {
		span.RecordError(err)
	}
	if (processed || err != nil) && onEvent != nil {
		onEvent(err)
	}
}

// --- PARSE PIPELINE ---

// ParseEvent valide le payload brut, résout la photo et merge le post.
// Retourne (true, nil) si un post a été upserté, (false, nil) si l'event est
// écarté (champ requis manquant, sentinelle URL_NOT_SET), (false, err) si une
// résolution a échoué — le store n'est alors pas touché.
func (s *TimelineSync) ParseEvent(ctx context.Context, key string, value []byte) (bool, error) {
	var payload map[string]any
	if err := json.Unmarshal(value, &payload); err != nil {
		return false, s.drop(key, "invalid json")
	}

	photoURL, okPhoto := payload["photoUrl"].(string)
	caption, okCaption := payload["caption"].(string)
	user, okUser := payload["user"].(map[string]any)
	if !okPhoto || !okCaption || !okUser {
		return false, s.drop(key, "missing required field")
	}
	userID, okID := user["id"].(string)
	userName, okName := user["name"].(string)
	if !okID || !okName {
		return false, s.drop(key, "missing user field")
	}

	likes := make(map[string]string)
	if raw, ok := payload["likes"].(map[string]any); ok {
		for id, name := range raw {
			if n, ok := name.(string); ok {
				likes[id] = n
			}
		}
	}

	// Sentinelle : l'upload n'est pas terminé. État valide, pas une erreur ;
	// le post reste simplement invisible jusqu'au prochain event changed.
	if photoURL == domain.URLNotSet {
		slog.Debug("⏳ Post not ready yet", "key", key)
		return false, nil
	}

	path := strings.TrimPrefix(photoURL, s.storagePrefix)
	imageURL, err := s.blobs.ResolveURL(ctx, path)
	if err != nil {
		return false, fmt.Errorf("%w: %v", domain.ErrStorageResolution, err)
	}

	current := s.session.CurrentUser()
	_, liked := likes[current.ID]

	s.store.Upsert(domain.TimelinePost{
		ID:                 key,
		ImageURL:           imageURL,
		Caption:            caption,
		AuthorID:           userID,
		AuthorName:         userName,
		Likes:              likes,
		LikedByCurrentUser: liked,
	})
	return true, nil
}

// drop comptabilise et journalise un payload malformé. Le comportement
// d'origine l'avalait en silence ; on garde le filtrage mais on le rend
// observable.
func (s *TimelineSync) drop(key, reason string) error {
	s.dropped.Add(1)
	slog.Warn("⚠️ Dropping malformed timeline event", "key", key, "reason", reason)
	return nil
}

// DroppedEvents retourne le nombre d'events écartés pour payload malformé.
func (s *TimelineSync) DroppedEvents() int64 {
	return s.dropped.Load()
}

// Posts retourne l'état courant du feed, le plus récent en premier.
func (s *TimelineSync) Posts() []domain.TimelinePost {
	return s.store.Snapshot()
}

// --- WRITES ---

// SendPost crée le record distant avec la sentinelle photoUrl et des likes
// vides, publie l'event added et retourne la clé générée. Pas d'écho local :
// le post n'apparaît que quand l'event revient par ParseEvent (et reste
// invisible tant que la photo n'est pas uploadée).
func (s *TimelineSync) SendPost(ctx context.Context, userID, userName, caption string) (string, error) {
	rec := &domain.TimelineRecord{
		PhotoURL: domain.URLNotSet,
		Caption:  caption,
		User:     domain.RecordUser{ID: userID, Name: userName},
		Likes:    map[string]string{},
	}

	key, err := s.repo.CreatePost(ctx, rec)
	if err != nil {
		return "", fmt.Errorf("%w: create post: %v", domain.ErrRemoteWrite, err)
	}

	// La donnée est sauvée : un échec de publication ne fait pas échouer
	// l'appel utilisateur. Idéalement : retry en background.
	if err := s.stream.PublishPostAdded(ctx, key, rec); err != nil {
		slog.Error("❌ Failed to publish post.added", "key", key, "error", err)
	}
	return key, nil
}

// SetPhotoURL met à jour le seul champ photoUrl du record distant.
func (s *TimelineSync) SetPhotoURL(ctx context.Context, postID, url string) error {
	return s.setField(ctx, postID, "photoUrl", url)
}

// UpdateCaption met à jour le seul champ caption du record distant.
func (s *TimelineSync) UpdateCaption(ctx context.Context, postID, caption string) error {
	return s.setField(ctx, postID, "caption", caption)
}

func (s *TimelineSync) setField(ctx context.Context, postID, field, value string) error {
	rec, err := s.repo.SetPostField(ctx, postID, field, value)
	if err != nil {
		return fmt.Errorf("%w: set %s: %v", domain.ErrRemoteWrite, field, err)
	}
	if err := s.stream.PublishPostChanged(ctx, postID, rec); err != nil {
		slog.Error("❌ Failed to publish post.changed", "key", postID, "error", err)
	}
	return nil
}

// ToggleLike bascule l'appartenance de user.ID dans le mapping likes du post.
// Le basculement est atomique côté backend : deux utilisateurs qui togglent le
// même post en concurrence ne peuvent pas se perdre mutuellement.
func (s *TimelineSync) ToggleLike(ctx context.Context, postID string, user domain.User) error {
	rec, liked, err := s.repo.ToggleLike(ctx, postID, user)
	if err != nil {
		return fmt.Errorf("%w: toggle like: %v", domain.ErrRemoteWrite, err)
	}
	slog.Debug("👍 Like toggled", "post_id", postID, "user_id", user.ID, "liked", liked)

	if err := s.stream.PublishPostChanged(ctx, postID, rec); err != nil {
		slog.Error("❌ Failed to publish post.changed", "key", postID, "error", err)
	}
	return nil
}

// --- PHOTOS ---

// UploadPhoto écrit les bytes sous path et retourne la location adressable à
// écrire ensuite via SetPhotoURL. Aucun état partiel en cas d'échec.
func (s *TimelineSync) UploadPhoto(ctx context.Context, data []byte, path string) (string, error) {
	location, err := s.blobs.Upload(ctx, data, path, photoContentType)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrUploadFailed, err)
	}
	return location, nil
}

// UploadPhotoFile est la variante fichier local (photo prise par l'appareil).
func (s *TimelineSync) UploadPhotoFile(ctx context.Context, filePath, objectPath string) (string, error) {
	location, err := s.blobs.UploadFile(ctx, filePath, objectPath, photoContentType)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrUploadFailed, err)
	}
	return location, nil
}

// FetchPhoto télécharge et décode une photo. Le content-type est revérifié via
// les métadonnées : tout autre chose qu'un image/jpeg est refusé.
func (s *TimelineSync) FetchPhoto(ctx context.Context, url string) (image.Image, error) {
	if !hasKnownScheme(url) {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedScheme, url)
	}

	data, err := s.blobs.Download(ctx, url, MaxPhotoBytes)
	if err != nil {
		return nil, fmt.Errorf("%w: download: %v", domain.ErrRemoteRead, err)
	}

	contentType, err := s.blobs.ContentType(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("%w: metadata: %v", domain.ErrRemoteRead, err)
	}
	if contentType != photoContentType {
		return nil, fmt.Errorf("%w: got %q", domain.ErrUnsupportedContentType, contentType)
	}

	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode photo: %w", err)
	}
	return img, nil
}

func hasKnownScheme(url string) bool {
	return strings.HasPrefix(url, "s3://") ||
		strings.HasPrefix(url, "https://") ||
		strings.HasPrefix(url, "http://")
}

// PhotoPath construit le path d'upload d'une nouvelle photo : un segment par
// appareil, un nom de fichier imprévisible.
func PhotoPath(device string) (string, error) {
	id, err := gonanoid.Nanoid()
	if err != nil {
		return "", fmt.Errorf("generate photo id: %w", err)
	}
	return fmt.Sprintf("%s/%s.jpg", device, id), nil
}
