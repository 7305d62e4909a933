package services

import (
	"context"
	"testing"

	"github.com/buildmart/marketplace-api/models"
	"github.com/buildmart/marketplace-api/testutil"
	"gorm.io/gorm"
)

// marketplace is a small seeded marketplace: one buyer with an address and a
// project, one supplier with one product
type marketplace struct {
	db  *gorm.DB
	ctx context.Context

	buyer    Principal
	seller   Principal
	supplier models.Supplier
	product  models.Product
	address  models.Address
	project  models.Project
}

func newMarketplace(t *testing.T, opts ...testutil.ProductOption) *marketplace {
	t.Helper()
	testutil.RequireTestEnvironment(t)

	db := testutil.NewTestDB(t)
	buyer := testutil.CreateUser(t, db, "buyer", models.RoleCustomer)
	seller, supplier := testutil.CreateSupplier(t, db, "seller")

	return &marketplace{
		db:       db,
		ctx:      context.Background(),
		buyer:    PrincipalFor(buyer),
		seller:   PrincipalFor(seller),
		supplier: supplier,
		product:  testutil.CreateProduct(t, db, supplier.ID, opts...),
		address:  testutil.CreateAddress(t, db, buyer.ID),
		project:  testutil.CreateProject(t, db, buyer.ID, "10000"),
	}
}

func (m *marketplace) stockOf(t *testing.T, productID uint) int {
	t.Helper()
	var product models.Product
	if err := m.db.Unscoped().First(&product, productID).Error; err != nil {
		t.Fatalf("reload product: %v", err)
	}
	return product.Stock
}

func (m *marketplace) orderInput(qty int) PlaceOrderInput {
	return PlaceOrderInput{
		ProductID:     m.product.ID,
		AddressID:     m.address.ID,
		PaymentMethod: models.PaymentInvoice,
		Quantity:      qty,
	}
}

func strPtr(s string) *string { return &s }

func uintPtr(v uint) *uint { return &v }
