package domain

// Represents a single entry of the cabin directory.
// Coordinates are nil when the item has not been geocoded yet.
type DirectoryItem struct {
	ID           string
	Name         string
	Municipality string
	Coordinates  *Coordinates
}
