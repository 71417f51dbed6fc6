package localstore

// Fixed keys the storefront owns. Key names are part of the stored data's
// contract; renaming one orphans every record written under it.
const (
	cartKeyPrefix    = "royaliq_cart:"
	catalogKeyPrefix = "royaliq_catalog:"
	ReconcileKey     = "royaliq_reconcile"
)

// CartKey addresses one visitor's persisted cart lines.
func CartKey(visitorID string) string {
	return cartKeyPrefix + visitorID
}

// CatalogKey addresses one cached catalog query.
func CatalogKey(suffix string) string {
	return catalogKeyPrefix + suffix
}
