package core

// Ref is the minimal identity of a related entity embedded in read models.
type Ref struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}
