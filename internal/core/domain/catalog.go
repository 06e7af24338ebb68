package domain

// StockUnlimited marks a catalog entry that never sells out.
const StockUnlimited = -1

// CatalogEntry is a purchasable offer. Only Stock changes at runtime,
// and only through the purchase coordinator.
type CatalogEntry struct {
	ID    string
	Item  ItemKind
	Costs []CostLine
	Stock int
}

func (e *CatalogEntry) SoldOut() bool {
	return e.Stock == 0
}

func (e *CatalogEntry) Unlimited() bool {
	return e.Stock == StockUnlimited
}

// Catalog keeps entries in configuration order.
type Catalog struct {
	entries []*CatalogEntry
	byID    map[string]*CatalogEntry
}

func NewCatalog(entries ...*CatalogEntry) *Catalog {
	c := &Catalog{
		entries: make([]*CatalogEntry, 0, len(entries)),
		byID:    make(map[string]*CatalogEntry, len(entries)),
	}
	for _, e := range entries {
		c.entries = append(c.entries, e)
		c.byID[e.ID] = e
	}
	return c
}

// Lookup returns nil for unknown ids.
func (c *Catalog) Lookup(id string) *CatalogEntry {
	if c == nil {
		return nil
	}
	return c.byID[id]
}

func (c *Catalog) Entries() []*CatalogEntry {
	if c == nil {
		return nil
	}
	out := make([]*CatalogEntry, len(c.entries))
	copy(out, c.entries)
	return out
}
