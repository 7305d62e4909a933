package controllers

import (
	"net/http"

	"github.com/buildmart/marketplace-api/config"
	"github.com/buildmart/marketplace-api/services"
	"github.com/gin-gonic/gin"
)

// AddressRequest is the body of POST /marketplace/addNewAddress
type AddressRequest struct {
	AddressName   string `json:"addressName" binding:"required"`
	FullAddress   string `json:"fullAddress" binding:"required"`
	ContactName   string `json:"contactName" binding:"required"`
	ContactNumber string `json:"contactNumber" binding:"required"`
	IsDefault     bool   `json:"isDefault"`
}

// AddNewAddress handles POST /marketplace/addNewAddress
func AddNewAddress(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var req AddressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		validationError(c, err)
		return
	}

	address, err := services.NewAddressService(config.GetDB()).AddAddress(c.Request.Context(), p, services.AddressInput{
		AddressName:   req.AddressName,
		FullAddress:   req.FullAddress,
		ContactName:   req.ContactName,
		ContactNumber: req.ContactNumber,
		IsDefault:     req.IsDefault,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusCreated, address)
}

// GetAddresses handles GET /marketplace/getAddresses
func GetAddresses(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	addresses, err := services.NewAddressService(config.GetDB()).ListAddresses(c.Request.Context(), p)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, addresses)
}
