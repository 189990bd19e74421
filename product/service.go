package product

import (
	"fmt"
	"net/http"

	resp "github.com/BharatRVala/rupie-times-sub001/response"

	"github.com/go-chi/chi"
	"go.uber.org/zap"
)

// ServiceOptions contains the configuration for Service router
type ServiceOptions struct {
	ProductManager *Manager
	Logger         *zap.Logger
}

// Service is the catalog API router
type Service struct {
	ServiceOptions
}

// NewService will create an instance of the catalog API router
func NewService(option ServiceOptions) (*Service, error) {
	if option.ProductManager == nil {
		return nil, fmt.Errorf("nil ProductManager is invalid")
	}
	if option.Logger == nil {
		return nil, fmt.Errorf("nil Logger is invalid")
	}
	return &Service{
		ServiceOptions: option,
	}, nil
}

func (s *Service) listProducts(w http.ResponseWriter, r *http.Request) {
	products := s.ProductManager.ListDefinedProducts()
	purchasable := make([]Product, 0, len(products))
	for _, p := range products {
		if !p.Retired {
			purchasable = append(purchasable, p)
		}
	}
	resp.WriteResponse(w, r, purchasable)
}

func (s *Service) getProduct(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "id")
	p, ok := s.ProductManager.GetDefinedProductByID(productID)
	if !ok {
		resp.WriteError(w, r, resp.ErrNotFound().AddMessages("Cannot find product with specific ID"))
		return
	}
	resp.WriteResponse(w, r, p)
}

// Router will return the routes under catalog API
func (s *Service) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/", s.listProducts)
	r.Get("/{id}", s.getProduct)

	return r
}
