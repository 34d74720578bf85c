package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/MuhammadMuizzsuddin/PilkadaJateng/internal/core/domain"
	"github.com/MuhammadMuizzsuddin/PilkadaJateng/internal/core/ports"
)

// Schéma Redis :
//   timeline:post:<id>  HASH  photoUrl, caption, user (JSON), likes (JSON)
//   timeline:index      ZSET  score = date de création, membre = id
//
// Le hash donne la mise à jour partielle par champ (contrat du store distant),
// le sorted set donne l'ordre d'insertion et la fenêtre bornée.
const (
	postKeyPrefix = "timeline:post:"
	postIndexKey  = "timeline:index"
)

// toggleLikeScript bascule l'appartenance de l'user dans le mapping likes en
// une seule opération côté serveur : deux toggles concurrents ne peuvent pas
// s'écraser (c'est le correctif du read-modify-write de l'app d'origine).
var toggleLikeScript = redis.NewScript(`
local likes = redis.call('HGET', KEYS[1], 'likes')
if not likes or likes == '' then likes = '{}' end
local t = cjson.decode(likes)
local liked
if t[ARGV[1]] then
  t[ARGV[1]] = nil
  liked = 0
else
  t[ARGV[1]] = ARGV[2]
  liked = 1
end
local encoded
if next(t) == nil then
  encoded = '{}'
else
  encoded = cjson.encode(t)
end
redis.call('HSET', KEYS[1], 'likes', encoded)
return liked
`)

type RedisTimelineRepo struct {
	client *redis.Client
}

func NewRedisTimelineRepo(client *redis.Client) *RedisTimelineRepo {
	return &RedisTimelineRepo{client: client}
}

// CreatePost écrit le record complet et l'indexe, clé générée côté client
// (le backend d'origine génère des push-ids ; ici un uuid fait ce travail).
func (r *RedisTimelineRepo) CreatePost(ctx context.Context, rec *domain.TimelineRecord) (string, error) {
	id := uuid.New().String()

	fields, err := hashFromRecord(rec)
	if err != nil {
		return "", err
	}

	// Écriture + indexation dans la même transaction.
	pipe := r.client.TxPipeline()
	pipe.HSet(ctx, postKeyPrefix+id, fields)
	pipe.ZAdd(ctx, postIndexKey, redis.Z{
		Score:  float64(time.Now().UnixNano()),
		Member: id,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return "", fmt.Errorf("create post: %w", err)
	}
	return id, nil
}

// GetPost est la lecture ponctuelle d'une clé (hors subscription live).
func (r *RedisTimelineRepo) GetPost(ctx context.Context, postID string) (*domain.TimelineRecord, error) {
	m, err := r.client.HGetAll(ctx, postKeyPrefix+postID).Result()
	if err != nil {
		return nil, fmt.Errorf("get post %s: %w", postID, err)
	}
	if len(m) == 0 {
		return nil, domain.ErrPostNotFound
	}
	return recordFromHash(m)
}

// SetPostField met à jour un seul champ scalaire du record (photoUrl, caption)
// et retourne le record résultant.
func (r *RedisTimelineRepo) SetPostField(ctx context.Context, postID, field, value string) (*domain.TimelineRecord, error) {
	key := postKeyPrefix + postID

	exists, err := r.client.Exists(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("set %s on %s: %w", field, postID, err)
	}
	if exists == 0 {
		return nil, domain.ErrPostNotFound
	}

	if err := r.client.HSet(ctx, key, field, value).Err(); err != nil {
		return nil, fmt.Errorf("set %s on %s: %w", field, postID, err)
	}
	return r.GetPost(ctx, postID)
}

// ToggleLike délègue le basculement au script Lua (atomique côté Redis).
func (r *RedisTimelineRepo) ToggleLike(ctx context.Context, postID string, user domain.User) (*domain.TimelineRecord, bool, error) {
	key := postKeyPrefix + postID

	exists, err := r.client.Exists(ctx, key).Result()
	if err != nil {
		return nil, false, fmt.Errorf("toggle like on %s: %w", postID, err)
	}
	if exists == 0 {
		return nil, false, domain.ErrPostNotFound
	}

	liked, err := toggleLikeScript.Run(ctx, r.client, []string{key}, user.ID, user.Name).Int()
	if err != nil {
		return nil, false, fmt.Errorf("toggle like on %s: %w", postID, err)
	}

	rec, err := r.GetPost(ctx, postID)
	if err != nil {
		return nil, false, err
	}
	return rec, liked == 1, nil
}

// ListWindow retourne les n records les plus récents, du plus ancien au plus
// récent (l'ordre de livraison d'un backfill de subscription).
func (r *RedisTimelineRepo) ListWindow(ctx context.Context, n int64) ([]ports.KeyedRecord, error) {
	// Les n derniers membres du zset, déjà en ordre chronologique.
	ids, err := r.client.ZRange(ctx, postIndexKey, -n, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list window: %w", err)
	}

	// Lecture batch des hashes (pipeline, un aller-retour).
	pipe := r.client.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.HGetAll(ctx, postKeyPrefix+id)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("list window: %w", err)
	}

	out := make([]ports.KeyedRecord, 0, len(ids))
	for i, id := range ids {
		m := cmds[i].Val()
		if len(m) == 0 {
			// Index orphelin (record expiré ou purgé) : on saute.
			continue
		}
		rec, err := recordFromHash(m)
		if err != nil {
			continue
		}
		out = append(out, ports.KeyedRecord{Key: id, Record: rec})
	}
	return out, nil
}

// --- Mapping hash <-> record ---

func hashFromRecord(rec *domain.TimelineRecord) (map[string]string, error) {
	userJSON, err := json.Marshal(rec.User)
	if err != nil {
		return nil, fmt.Errorf("marshal user: %w", err)
	}
	likes := rec.Likes
	if likes == nil {
		likes = map[string]string{}
	}
	likesJSON, err := json.Marshal(likes)
	if err != nil {
		return nil, fmt.Errorf("marshal likes: %w", err)
	}
	return map[string]string{
		"photoUrl": rec.PhotoURL,
		"caption":  rec.Caption,
		"user":     string(userJSON),
		"likes":    string(likesJSON),
	}, nil
}

func recordFromHash(m map[string]string) (*domain.TimelineRecord, error) {
	rec := &domain.TimelineRecord{
		PhotoURL: m["photoUrl"],
		Caption:  m["caption"],
		Likes:    map[string]string{},
	}
	if raw, ok := m["user"]; ok && raw != "" {
		if err := json.Unmarshal([]byte(raw), &rec.User); err != nil {
			return nil, fmt.Errorf("unmarshal user: %w", err)
		}
	}
	if raw, ok := m["likes"]; ok && raw != "" {
		if err := json.Unmarshal([]byte(raw), &rec.Likes); err != nil {
			return nil, fmt.Errorf("unmarshal likes: %w", err)
		}
	}
	return rec, nil
}
