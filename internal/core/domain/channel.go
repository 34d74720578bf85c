package domain

// Channel est l'entité sœur, volontairement triviale : un nom et un id
// auto-généré, aucune étape de résolution.
type Channel struct {
	ID   string
	Name string
}
