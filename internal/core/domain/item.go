package domain

type ItemID string

type ItemKind struct {
	ID          ItemID
	Name        string
	Description string
	MaxStack    int // 1 means not stackable
}

// Valid reports whether the kind can be held by an inventory.
func (k ItemKind) Valid() bool {
	return k.ID != "" && k.MaxStack > 0
}

// StackChange is published after every inventory entry mutation.
// Count 0 means the entry was removed.
type StackChange struct {
	Item  ItemKind
	Count int
}
