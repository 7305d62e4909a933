package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// SupplierProfileRequest is the body of POST /supplier/createProfile
type SupplierProfileRequest struct {
	CompanyName   string `json:"companyName" binding:"required"`
	Location      string `json:"location"`
	ContactNumber string `json:"contactNumber"`
}

// CreateSupplierProfile handles POST /supplier/createProfile. The caller
// becomes a supplier.
func CreateSupplierProfile(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var req SupplierProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		validationError(c, err)
		return
	}

	supplier, err := catalogService().CreateSupplier(c.Request.Context(), p, req.CompanyName, req.Location, req.ContactNumber)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusCreated, supplier)
}
