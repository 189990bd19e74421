package product

import (
	"encoding/json"
	"fmt"
	"io/ioutil"

	"github.com/BharatRVala/rupie-times-sub001/subscription"

	extErrors "github.com/pkg/errors"
	"go.uber.org/zap"
)

// ManagerOptions provides initialization parameters for the catalog Manager
type ManagerOptions struct {
	Logger            *zap.Logger
	PathToProductJSON string
}

// Manager holds the product catalog loaded at startup
type Manager struct {
	ManagerOptions
	productArray      []Product
	productIDIndexMap map[string]int
}

// NewManager loads the catalog from the products JSON file.
// Note, if you change a Variant's duration or price, existing
// subscriptions keep the snapshot they were sold with; only new
// assignments see the edit.
func NewManager(option ManagerOptions) (*Manager, error) {
	if option.Logger == nil {
		return nil, fmt.Errorf("nil Logger is invalid")
	}
	if len(option.PathToProductJSON) == 0 {
		return nil, fmt.Errorf("empty PathToProductJSON is invalid")
	}

	products, err := loadProductsFromFile(option.PathToProductJSON)
	if err != nil {
		return nil, extErrors.Wrap(err, "Cannot populate defined Products")
	}

	productMap := make(map[string]int)
	for index, p := range products {
		if len(p.ID) == 0 {
			return nil, fmt.Errorf("product at index %d has no id", index)
		}
		productMap[p.ID] = index + 1
	}

	return &Manager{
		ManagerOptions:    option,
		productArray:      products,
		productIDIndexMap: productMap,
	}, nil
}

func loadProductsFromFile(filename string) ([]Product, error) {
	jsonBytes, err := ioutil.ReadFile(filename)
	if err != nil {
		return nil, extErrors.Wrap(err, "Cannot open products JSON file")
	}
	products := make([]Product, 0, 1)
	if err := json.Unmarshal(jsonBytes, &products); err != nil {
		return nil, extErrors.Wrap(err, "Invalid products JSON file")
	}
	return products, nil
}

// ListDefinedProducts returns the catalog as loaded
func (m *Manager) ListDefinedProducts() []Product {
	return m.productArray
}

// GetDefinedProductByID looks up one product by its catalog id
func (m *Manager) GetDefinedProductByID(productID string) (Product, bool) {
	index := m.productIDIndexMap[productID]
	if index == 0 {
		return Product{}, false
	}
	return m.productArray[index-1], true
}

// GetVariant resolves the variant sold under durationLabel for a product
func (m *Manager) GetVariant(productID, durationLabel string) (subscription.Variant, bool) {
	p, ok := m.GetDefinedProductByID(productID)
	if !ok {
		return subscription.Variant{}, false
	}
	v := p.findVariantByLabel(durationLabel)
	if v == nil {
		return subscription.Variant{}, false
	}
	return *v, true
}
