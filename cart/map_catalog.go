package cart

// MapCatalog is a Catalog backed by a map; the services build one from a
// single menu query.
type MapCatalog map[uint]Item

func (m MapCatalog) Lookup(menuID uint) (Item, bool) {
	item, ok := m[menuID]
	return item, ok
}
