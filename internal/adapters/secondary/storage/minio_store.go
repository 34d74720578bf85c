package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
)

// MinioBlobStore adapte le store d'objets au contrat du core :
// upload adressé par path, résolution path -> URL signée à durée limitée,
// téléchargement borné, métadonnées de content-type.
type MinioBlobStore struct {
	client        *minio.Client
	bucket        string
	httpClient    *http.Client
	presignExpiry time.Duration
}

func NewMinioBlobStore(client *minio.Client, bucket string) *MinioBlobStore {
	return &MinioBlobStore{
		client:        client,
		bucket:        bucket,
		httpClient:    &http.Client{Timeout: 30 * time.Second},
		presignExpiry: 1 * time.Hour,
	}
}

// LocationPrefix est le préfixe bien connu des locations retournées par Upload,
// celui que le pipeline de parse retire pour retrouver le path relatif.
func (s *MinioBlobStore) LocationPrefix() string {
	return fmt.Sprintf("s3://%s/", s.bucket)
}

// Upload écrit data sous path. Échec = aucun état partiel exposé (l'objet
// n'est visible qu'une fois le PutObject complet).
func (s *MinioBlobStore) Upload(ctx context.Context, data []byte, path, contentType string) (string, error) {
	_, err := s.client.PutObject(ctx, s.bucket, path,
		bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType},
	)
	if err != nil {
		return "", fmt.Errorf("put object %s: %w", path, err)
	}
	return s.LocationPrefix() + path, nil
}

// UploadFile est la variante fichier local.
func (s *MinioBlobStore) UploadFile(ctx context.Context, filePath, path, contentType string) (string, error) {
	_, err := s.client.FPutObject(ctx, s.bucket, path, filePath,
		minio.PutObjectOptions{ContentType: contentType},
	)
	if err != nil {
		return "", fmt.Errorf("put object %s from %s: %w", path, filePath, err)
	}
	return s.LocationPrefix() + path, nil
}

// ResolveURL traduit un path relatif en URL GET signée à durée limitée.
func (s *MinioBlobStore) ResolveURL(ctx context.Context, path string) (string, error) {
	u, err := s.client.PresignedGetObject(ctx, s.bucket, path, s.presignExpiry, nil)
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", path, err)
	}
	return u.String(), nil
}

// Download récupère les bytes d'une location s3:// ou d'une URL http(s)
// (typiquement une URL signée), borné à maxBytes.
func (s *MinioBlobStore) Download(ctx context.Context, url string, maxBytes int64) ([]byte, error) {
	if strings.HasPrefix(url, "s3://") {
		bucket, object, err := splitS3URL(url)
		if err != nil {
			return nil, err
		}
		obj, err := s.client.GetObject(ctx, bucket, object, minio.GetObjectOptions{})
		if err != nil {
			return nil, fmt.Errorf("get object %s: %w", object, err)
		}
		defer obj.Close()
		data, err := io.ReadAll(io.LimitReader(obj, maxBytes))
		if err != nil {
			return nil, fmt.Errorf("read object %s: %w", object, err)
		}
		return data, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download %s: unexpected status %d", url, resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return data, nil
}

// ContentType relit les métadonnées du blob, indépendamment du download.
func (s *MinioBlobStore) ContentType(ctx context.Context, url string) (string, error) {
	if strings.HasPrefix(url, "s3://") {
		bucket, object, err := splitS3URL(url)
		if err != nil {
			return "", err
		}
		info, err := s.client.StatObject(ctx, bucket, object, minio.StatObjectOptions{})
		if err != nil {
			return "", fmt.Errorf("stat object %s: %w", object, err)
		}
		return info.ContentType, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("head %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("head %s: unexpected status %d", url, resp.StatusCode)
	}

	// "image/jpeg; charset=..." -> "image/jpeg"
	contentType := resp.Header.Get("Content-Type")
	if i := strings.Index(contentType, ";"); i >= 0 {
		contentType = contentType[:i]
	}
	return strings.TrimSpace(contentType), nil
}

func splitS3URL(url string) (bucket, object string, err error) {
	rest := strings.TrimPrefix(url, "s3://")
	parts := strings.SplitN(rest, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("malformed s3 url: %q", url)
	}
	return parts[0], parts[1], nil
}
