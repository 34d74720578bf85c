package domain

import "errors"

// Erreurs métier. On les garde dans le domaine pour que le core ne dépende
// jamais des erreurs des drivers (redis, nats, minio).
var (
	// ErrMalformedPayload : champ requis manquant dans un event distant.
	// L'event est écarté (comptabilisé), jamais fatal pour la subscription.
	ErrMalformedPayload = errors.New("malformed timeline payload")

	// ErrStorageResolution : la résolution path -> URL téléchargeable a échoué.
	ErrStorageResolution = errors.New("storage url resolution failed")

	// ErrUploadFailed : l'upload du blob a échoué, aucun état partiel commité.
	ErrUploadFailed = errors.New("photo upload failed")

	// ErrUnsupportedScheme : l'URL de photo n'utilise aucun des schémas connus.
	ErrUnsupportedScheme = errors.New("unsupported photo url scheme")

	// ErrUnsupportedContentType : le blob téléchargé n'est pas un image/jpeg.
	ErrUnsupportedContentType = errors.New("unsupported content type")

	// ErrRemoteRead / ErrRemoteWrite : I/O vers le store distant.
	ErrRemoteRead  = errors.New("remote read failed")
	ErrRemoteWrite = errors.New("remote write failed")

	// ErrPostNotFound : lecture ponctuelle d'une clé inconnue.
	ErrPostNotFound = errors.New("post not found")
)
