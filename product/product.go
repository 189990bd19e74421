package product

import (
	"github.com/BharatRVala/rupie-times-sub001/subscription"
)

// Product describes a purchasable publication in the catalog. The catalog
// is the source of Variants; once a Variant is copied onto a Subscription
// it is frozen there and later catalog edits do not touch it.
type Product struct {
	ID          string                 `json:"id"`
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Variants    []subscription.Variant `json:"variants"`
	Retired     bool                   `json:"retired"` // no longer purchasable, existing subscriptions unaffected
}

func (p *Product) findVariantByLabel(label string) *subscription.Variant {
	for k, v := range p.Variants {
		if v.DurationLabel == label {
			return &p.Variants[k]
		}
	}
	return nil
}
