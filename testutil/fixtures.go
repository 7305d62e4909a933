package testutil

import (
	"testing"

	"github.com/buildmart/marketplace-api/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CreateUser stores a user whose Auth0 ID is "auth0|<name>"
func CreateUser(t *testing.T, db *gorm.DB, name string, role models.UserRole) models.User {
	t.Helper()

	user := models.User{
		Auth0ID: "auth0|" + name,
		Name:    name,
		Email:   name + "@buildmart.test",
		Role:    role,
	}
	mustCreate(t, db, &user)
	return user
}

// CreateSupplier stores a supplier user together with its supplier profile
func CreateSupplier(t *testing.T, db *gorm.DB, name string) (models.User, models.Supplier) {
	t.Helper()

	owner := CreateUser(t, db, name, models.RoleSupplier)
	supplier := models.Supplier{
		OwnerID:       owner.ID,
		CompanyName:   name + " Building Supplies",
		Location:      "Nairobi",
		ContactNumber: "+254700000000",
	}
	mustCreate(t, db, &supplier)
	return owner, supplier
}

// ProductOption adjusts a product fixture before it is stored
type ProductOption func(*models.Product)

// WithStock sets stock and minimum order quantity
func WithStock(stock, minOrder int) ProductOption {
	return func(p *models.Product) {
		p.Stock = stock
		p.MinOrder = minOrder
	}
}

// WithPrice sets the unit price
func WithPrice(price string) ProductOption {
	return func(p *models.Product) {
		p.Price = decimal.RequireFromString(price)
	}
}

// CreateProduct stores a cement product for the supplier
func CreateProduct(t *testing.T, db *gorm.DB, supplierID uint, opts ...ProductOption) models.Product {
	t.Helper()

	product := models.Product{
		Name:           "Portland Cement 50kg",
		Category:       "Cement",
		Description:    "General purpose cement",
		Price:          decimal.RequireFromString("950"),
		Unit:           models.UnitBag,
		Stock:          1000,
		MinStock:       50,
		MinOrder:       10,
		Specifications: []string{"Grade 42.5N", "50kg bag"},
		Images:         []string{},
		SupplierID:     supplierID,
	}
	for _, opt := range opts {
		opt(&product)
	}
	mustCreate(t, db, &product)
	return product
}

// CreateAddress stores a delivery address for the user
func CreateAddress(t *testing.T, db *gorm.DB, userID uint) models.Address {
	t.Helper()

	address := models.Address{
		UserID:        userID,
		AddressName:   "Site office",
		FullAddress:   "Plot 12, Mombasa Road",
		ContactName:   "Site Manager",
		ContactNumber: "+254711111111",
		IsDefault:     true,
	}
	mustCreate(t, db, &address)
	return address
}

// CreateProject stores a project owned by ownerID, with a budget when budget != ""
func CreateProject(t *testing.T, db *gorm.DB, ownerID uint, budget string) models.Project {
	t.Helper()

	project := models.Project{
		OwnerID:  ownerID,
		Name:     "Riverside Apartments",
		Location: "Nairobi",
		Status:   models.ProjectActive,
	}
	if budget != "" {
		project.Budget = decimal.NewNullDecimal(decimal.RequireFromString(budget))
	}
	mustCreate(t, db, &project)
	return project
}

// AddMember adds a user to a project
func AddMember(t *testing.T, db *gorm.DB, projectID, userID uint) {
	t.Helper()
	mustCreate(t, db, &models.ProjectMember{ProjectID: projectID, UserID: userID})
}

func mustCreate(t *testing.T, db *gorm.DB, value interface{}) {
	t.Helper()
	if err := db.Create(value).Error; err != nil {
		t.Fatalf("failed to create %T fixture: %v", value, err)
	}
}
