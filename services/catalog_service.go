package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/buildmart/marketplace-api/models"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProductFilter narrows ListProducts. Zero values mean "no filter".
type ProductFilter struct {
	Category    string
	SupplierID  uint
	Search      string
	InStockOnly bool
}

// ProductInput is the full set of supplier-editable product fields
type ProductInput struct {
	Name           string
	Category       string
	Description    string
	Price          decimal.Decimal
	Unit           models.ProductUnit
	Stock          int
	MinStock       int
	MinOrder       int
	Specifications []string
	Images         []string
}

// ProductPatch carries the fields of a partial product update; nil means unchanged
type ProductPatch struct {
	Name           *string
	Category       *string
	Description    *string
	Price          *decimal.Decimal
	Unit           *models.ProductUnit
	Stock          *int
	MinStock       *int
	MinOrder       *int
	Specifications []string
	Images         []string
}

// CatalogService owns product records and is the only code that changes stock
type CatalogService struct {
	db *gorm.DB
}

// NewCatalogService creates a catalog service backed by db
func NewCatalogService(db *gorm.DB) *CatalogService {
	return &CatalogService{db: db}
}

// GetProduct loads a product with its supplier summary
func (s *CatalogService) GetProduct(ctx context.Context, id uint) (*models.Product, error) {
	var product models.Product
	if err := s.db.WithContext(ctx).Preload("Supplier").First(&product, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("load product %d: %w", id, err)
	}
	return &product, nil
}

// ListProducts returns catalog products matching the filter, newest first
func (s *CatalogService) ListProducts(ctx context.Context, filter ProductFilter) ([]models.Product, error) {
	query := s.db.WithContext(ctx).Preload("Supplier").Order("created_at DESC")
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if filter.SupplierID != 0 {
		query = query.Where("supplier_id = ?", filter.SupplierID)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		query = query.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(search)+"%")
	}
	if filter.InStockOnly {
		query = query.Where("stock > 0 AND stock >= min_order")
	}

	products := []models.Product{}
	if err := query.Find(&products).Error; err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return products, nil
}

// DecrementStock atomically removes qty units from a product's stock. It
// fails with ErrInsufficientStock rather than clamping when qty > stock.
func (s *CatalogService) DecrementStock(ctx context.Context, id uint, qty int) (*models.Product, error) {
	var product *models.Product
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		product, err = decrementStock(tx, id, qty)
		return err
	})
	if err != nil {
		return nil, err
	}
	return product, nil
}

// decrementStock runs the conditional update inside the caller's transaction
func decrementStock(tx *gorm.DB, id uint, qty int) (*models.Product, error) {
	if qty <= 0 {
		return nil, ErrInvalidQuantity
	}

	result := tx.Model(&models.Product{}).
		Where("id = ? AND stock >= ?", id, qty).
		UpdateColumn("stock", gorm.Expr("stock - ?", qty))
	if result.Error != nil {
		return nil, fmt.Errorf("decrement stock of product %d: %w", id, result.Error)
	}

	var product models.Product
	if err := tx.First(&product, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("reload product %d: %w", id, err)
	}

	if result.RowsAffected == 0 {
		return nil, ErrInsufficientStock.WithMessage(
			"Only %d %s of %s available, requested %d", product.Stock, product.Unit, product.Name, qty)
	}
	return &product, nil
}

// incrementStock returns units to stock; used when cancelled orders restock
func incrementStock(tx *gorm.DB, id uint, qty int) error {
	result := tx.Model(&models.Product{}).
		Where("id = ?", id).
		UpdateColumn("stock", gorm.Expr("stock + ?", qty))
	if result.Error != nil {
		return fmt.Errorf("increment stock of product %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrProductNotFound
	}
	return nil
}

// SupplierFor returns the supplier profile owned by the principal
func (s *CatalogService) SupplierFor(ctx context.Context, p Principal) (*models.Supplier, error) {
	return supplierFor(s.db.WithContext(ctx), p.UserID)
}

func supplierFor(db *gorm.DB, userID uint) (*models.Supplier, error) {
	var supplier models.Supplier
	if err := db.Where("owner_id = ?", userID).First(&supplier).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSupplierProfileRequired
		}
		return nil, fmt.Errorf("load supplier for user %d: %w", userID, err)
	}
	return &supplier, nil
}

// CreateSupplier registers the principal as a supplier
func (s *CatalogService) CreateSupplier(ctx context.Context, p Principal, companyName, location, contactNumber string) (*models.Supplier, error) {
	companyName = strings.TrimSpace(companyName)
	if companyName == "" {
		return nil, ErrMissingField.WithMessage("company_name is required")
	}

	var existing int64
	if err := s.db.WithContext(ctx).Model(&models.Supplier{}).Where("owner_id = ?", p.UserID).Count(&existing).Error; err != nil {
		return nil, fmt.Errorf("check supplier profile: %w", err)
	}
	if existing > 0 {
		return nil, ErrDuplicateProfile.WithMessage("A supplier profile already exists for this user")
	}

	supplier := models.Supplier{
		OwnerID:       p.UserID,
		CompanyName:   companyName,
		Location:      strings.TrimSpace(location),
		ContactNumber: strings.TrimSpace(contactNumber),
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&supplier).Error; err != nil {
			return fmt.Errorf("create supplier: %w", err)
		}
		return tx.Model(&models.User{}).Where("id = ?", p.UserID).Update("role", models.RoleSupplier).Error
	})
	if err != nil {
		return nil, err
	}
	return &supplier, nil
}

// ListSupplierProducts returns the products owned by the principal's supplier profile
func (s *CatalogService) ListSupplierProducts(ctx context.Context, p Principal) ([]models.Product, error) {
	supplier, err := s.SupplierFor(ctx, p)
	if err != nil {
		return nil, err
	}
	return s.ListProducts(ctx, ProductFilter{SupplierID: supplier.ID})
}

// CreateProduct adds a product to the principal's supplier catalog
func (s *CatalogService) CreateProduct(ctx context.Context, p Principal, in ProductInput) (*models.Product, error) {
	supplier, err := s.SupplierFor(ctx, p)
	if err != nil {
		return nil, err
	}

	if in.Unit == "" {
		in.Unit = models.UnitPiece
	}
	if in.MinOrder == 0 {
		in.MinOrder = 1
	}
	product := models.Product{
		Name:           strings.TrimSpace(in.Name),
		Category:       strings.TrimSpace(in.Category),
		Description:    in.Description,
		Price:          in.Price,
		Unit:           in.Unit,
		Stock:          in.Stock,
		MinStock:       in.MinStock,
		MinOrder:       in.MinOrder,
		Specifications: nonNil(in.Specifications),
		Images:         nonNil(in.Images),
		SupplierID:     supplier.ID,
	}
	if err := validateProduct(product); err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Create(&product).Error; err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}
	product.Supplier = supplier

	log.Info().Uint("product_id", product.ID).Uint("supplier_id", supplier.ID).Msg("product created")
	return &product, nil
}

// UpdateProduct applies a patch to a product owned by the principal's supplier
// profile. The owning supplier can never change. Only patched columns are
// written, and a stock edit applies only while stock still holds the value
// that was read.
func (s *CatalogService) UpdateProduct(ctx context.Context, p Principal, id uint, patch ProductPatch) (*models.Product, error) {
	product, err := s.OwnedProduct(ctx, p, id)
	if err != nil {
		return nil, err
	}
	readStock := product.Stock

	updates := map[string]interface{}{}
	if patch.Name != nil {
		product.Name = strings.TrimSpace(*patch.Name)
		updates["name"] = product.Name
	}
	if patch.Category != nil {
		product.Category = strings.TrimSpace(*patch.Category)
		updates["category"] = product.Category
	}
	if patch.Description != nil {
		product.Description = *patch.Description
		updates["description"] = product.Description
	}
	if patch.Price != nil {
		product.Price = *patch.Price
		updates["price"] = product.Price
	}
	if patch.Unit != nil {
		product.Unit = *patch.Unit
		updates["unit"] = product.Unit
	}
	if patch.Stock != nil {
		product.Stock = *patch.Stock
		updates["stock"] = product.Stock
	}
	if patch.MinStock != nil {
		product.MinStock = *patch.MinStock
		updates["min_stock"] = product.MinStock
	}
	if patch.MinOrder != nil {
		product.MinOrder = *patch.MinOrder
		updates["min_order"] = product.MinOrder
	}
	if patch.Specifications != nil {
		product.Specifications = patch.Specifications
		updates["specifications"] = product.Specifications
	}
	if patch.Images != nil {
		product.Images = patch.Images
		updates["images"] = product.Images
	}
	if err := validateProduct(*product); err != nil {
		return nil, err
	}
	if len(updates) == 0 {
		return product, nil
	}

	query := s.db.WithContext(ctx).Model(&models.Product{}).Where("id = ?", product.ID)
	if patch.Stock != nil {
		query = query.Where("stock = ?", readStock)
	}
	result := query.Updates(updates)
	if result.Error != nil {
		return nil, fmt.Errorf("update product %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		if patch.Stock == nil {
			return nil, ErrProductNotFound
		}
		return nil, ErrStockChanged.WithMessage(
			"Stock of %s changed from %d while it was being edited; reload and retry", product.Name, readStock)
	}
	return s.GetProduct(ctx, id)
}

// DeleteProduct soft-deletes a product owned by the principal. Existing orders
// keep their reference and frozen prices.
func (s *CatalogService) DeleteProduct(ctx context.Context, p Principal, id uint) error {
	product, err := s.OwnedProduct(ctx, p, id)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Delete(product).Error; err != nil {
		return fmt.Errorf("delete product %d: %w", id, err)
	}
	return nil
}

// AddProductImage appends a stored image key to a product the principal owns
func (s *CatalogService) AddProductImage(ctx context.Context, p Principal, id uint, imageKey string) (*models.Product, error) {
	product, err := s.OwnedProduct(ctx, p, id)
	if err != nil {
		return nil, err
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var locked models.Product
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Select("id", "images").First(&locked, product.ID).Error; err != nil {
			return fmt.Errorf("lock product %d: %w", id, err)
		}
		images := datatypes.JSONSlice[string](append(nonNil(locked.Images), imageKey))
		return tx.Model(&models.Product{}).Where("id = ?", product.ID).Update("images", images).Error
	})
	if err != nil {
		return nil, fmt.Errorf("add image to product %d: %w", id, err)
	}
	return s.GetProduct(ctx, id)
}

// OwnedProduct returns a product only when the principal's supplier profile owns it
func (s *CatalogService) OwnedProduct(ctx context.Context, p Principal, id uint) (*models.Product, error) {
	supplier, err := s.SupplierFor(ctx, p)
	if err != nil {
		return nil, err
	}
	product, err := s.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	if product.SupplierID != supplier.ID {
		return nil, ErrForbidden.WithMessage("Product %d belongs to another supplier", id)
	}
	return product, nil
}

func validateProduct(p models.Product) error {
	switch {
	case p.Name == "":
		return ErrMissingField.WithMessage("name is required")
	case p.Category == "":
		return ErrMissingField.WithMessage("category is required")
	case !p.Price.IsPositive():
		return ErrInvalidProduct.WithMessage("price must be greater than zero")
	case !p.Unit.Valid():
		return ErrInvalidProduct.WithMessage("unknown unit %q", p.Unit)
	case p.Stock < 0:
		return ErrInvalidProduct.WithMessage("stock cannot be negative")
	case p.MinStock < 0:
		return ErrInvalidProduct.WithMessage("min_stock cannot be negative")
	case p.MinOrder < 1:
		return ErrInvalidProduct.WithMessage("min_order must be at least 1")
	}
	return nil
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
