package domain

// URLNotSet est la valeur sentinelle stockée dans photoUrl tant que l'upload
// de la photo n'est pas terminé. Distinct de "champ absent" : le record existe
// déjà côté backend, il n'est juste pas encore affichable.
const URLNotSet = "URL_NOT_SET"

// TimelinePost est l'entité affichable : le record brut, résolu et enrichi
// (URL téléchargeable, like de l'utilisateur courant).
type TimelinePost struct {
	ID                 string
	ImageURL           string
	Caption            string
	AuthorID           string
	AuthorName         string
	Likes              map[string]string // user-id -> display-name
	LikedByCurrentUser bool
}

// RecordUser est l'objet user imbriqué dans le payload distant.
type RecordUser struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// TimelineRecord est le payload tel qu'il vit dans le store distant et sur le
// fil d'événements (contrat implicite entre writers et listeners).
type TimelineRecord struct {
	PhotoURL string            `json:"photoUrl"`
	Caption  string            `json:"caption"`
	User     RecordUser        `json:"user"`
	Likes    map[string]string `json:"likes"`
}

// User représente l'utilisateur de la session active (lecture seule ici).
type User struct {
	ID   string
	Name string
}
