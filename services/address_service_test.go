package services

import (
	"fmt"
	"sync"
	"testing"

	"github.com/buildmart/marketplace-api/models"
	"github.com/buildmart/marketplace-api/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func siteAddress(name string, isDefault bool) AddressInput {
	return AddressInput{
		AddressName:   name,
		FullAddress:   "Plot 4, Thika Road",
		ContactName:   "Foreman",
		ContactNumber: "+254722000000",
		IsDefault:     isDefault,
	}
}

func TestAddressService_FirstAddressIsDefault(t *testing.T) {
	db := testutil.NewTestDB(t)
	user := testutil.CreateUser(t, db, "contractor", models.RoleCustomer)
	addresses := NewAddressService(db)
	p := PrincipalFor(user)

	first, err := addresses.AddAddress(t.Context(), p, siteAddress("Yard", false))
	require.NoError(t, err)
	assert.True(t, first.IsDefault)

	second, err := addresses.AddAddress(t.Context(), p, siteAddress("Site B", false))
	require.NoError(t, err)
	assert.False(t, second.IsDefault)

	third, err := addresses.AddAddress(t.Context(), p, siteAddress("Site C", true))
	require.NoError(t, err)
	assert.True(t, third.IsDefault)

	list, err := addresses.ListAddresses(t.Context(), p)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "Site C", list[0].AddressName)
	defaults := 0
	for _, a := range list {
		if a.IsDefault {
			defaults++
		}
	}
	assert.Equal(t, 1, defaults)
}

func TestAddressService_RequiresEveryField(t *testing.T) {
	db := testutil.NewTestDB(t)
	user := testutil.CreateUser(t, db, "contractor", models.RoleCustomer)
	addresses := NewAddressService(db)

	for _, blank := range []func(*AddressInput){
		func(in *AddressInput) { in.AddressName = "" },
		func(in *AddressInput) { in.FullAddress = " " },
		func(in *AddressInput) { in.ContactName = "" },
		func(in *AddressInput) { in.ContactNumber = "" },
	} {
		in := siteAddress("Yard", true)
		blank(&in)
		_, err := addresses.AddAddress(t.Context(), PrincipalFor(user), in)
		assert.ErrorIs(t, err, ErrMissingField)
	}
}

func TestAddressService_ConcurrentDefaultsLeaveOneDefault(t *testing.T) {
	db := testutil.NewTestDB(t)
	user := testutil.CreateUser(t, db, "contractor", models.RoleCustomer)
	addresses := NewAddressService(db)
	p := PrincipalFor(user)

	var wg sync.WaitGroup
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := addresses.AddAddress(t.Context(), p, siteAddress(fmt.Sprintf("Site %d", i), true))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	var defaults int64
	require.NoError(t, db.Model(&models.Address{}).Where("user_id = ? AND is_default = ?", user.ID, true).Count(&defaults).Error)
	assert.Equal(t, int64(1), defaults)

	list, err := addresses.ListAddresses(t.Context(), p)
	require.NoError(t, err)
	assert.Len(t, list, 6)
}

func TestAddress_OneDefaultPerUserIndex(t *testing.T) {
	db := testutil.NewTestDB(t)
	user := testutil.CreateUser(t, db, "contractor", models.RoleCustomer)
	testutil.CreateAddress(t, db, user.ID)

	second := models.Address{
		UserID: user.ID, AddressName: "Second", FullAddress: "Plot 9", ContactName: "Clerk", ContactNumber: "+254700000000", IsDefault: true,
	}
	assert.Error(t, db.Create(&second).Error, "a second default address is rejected by the database")

	second.ID = 0
	second.IsDefault = false
	assert.NoError(t, db.Create(&second).Error)
}
