package controllers

import (
	"net/http"

	"github.com/buildmart/marketplace-api/config"
	"github.com/buildmart/marketplace-api/models"
	"github.com/buildmart/marketplace-api/services"
	"github.com/buildmart/marketplace-api/utils"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// GetProducts handles GET /marketplace/getProducts - lists the catalog.
// Optional query filters: category, supplierId, search, inStock.
func GetProducts(c *gin.Context) {
	filter := services.ProductFilter{
		Category:    c.Query("category"),
		Search:      c.Query("search"),
		InStockOnly: utils.ParseBool(c.Query("inStock")),
	}
	if raw := c.Query("supplierId"); raw != "" {
		supplierID, err := utils.ParseID(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "INVALID_ID",
					"message": "Invalid supplierId",
				},
			})
			return
		}
		filter.SupplierID = supplierID
	}

	products, err := catalogService().ListProducts(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, products)
}

// GetProductByID handles GET /marketplace/getProductByid/:id. Besides the
// product it returns the caller's projects and addresses for the checkout form.
func GetProductByID(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := idParam(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	product, err := catalogService().GetProduct(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}
	projects, err := services.NewProjectService(config.GetDB()).ListMyProjects(ctx, p)
	if err != nil {
		respondError(c, err)
		return
	}
	addresses, err := services.NewAddressService(config.GetDB()).ListAddresses(ctx, p)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"data":     product,
		"projects": projects,
		"address":  addresses,
	})
}

// ProductRequest is the body of POST /supplier/createProduct
type ProductRequest struct {
	Name           string             `json:"name" binding:"required"`
	Category       string             `json:"category" binding:"required"`
	Description    string             `json:"description"`
	Price          *decimal.Decimal   `json:"price" binding:"required"`
	Unit           models.ProductUnit `json:"unit"`
	Stock          int                `json:"stock" binding:"gte=0"`
	MinStock       int                `json:"minStock" binding:"gte=0"`
	MinOrder       int                `json:"minOrder" binding:"gte=0"`
	Specifications []string           `json:"specifications"`
	Images         []string           `json:"images"`
}

// UpdateProductRequest is the body of PUT /supplier/updateProduct/:id; absent fields are unchanged
type UpdateProductRequest struct {
	Name           *string             `json:"name"`
	Category       *string             `json:"category"`
	Description    *string             `json:"description"`
	Price          *decimal.Decimal    `json:"price"`
	Unit           *models.ProductUnit `json:"unit"`
	Stock          *int                `json:"stock"`
	MinStock       *int                `json:"minStock"`
	MinOrder       *int                `json:"minOrder"`
	Specifications []string            `json:"specifications"`
	Images         []string            `json:"images"`
}

// GetSupplierProducts handles GET /supplier/getProduct - the caller's own products
func GetSupplierProducts(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	products, err := catalogService().ListSupplierProducts(c.Request.Context(), p)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, products)
}

// CreateProduct handles POST /supplier/createProduct
func CreateProduct(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	var req ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		validationError(c, err)
		return
	}

	product, err := catalogService().CreateProduct(c.Request.Context(), p, services.ProductInput{
		Name:           req.Name,
		Category:       req.Category,
		Description:    req.Description,
		Price:          *req.Price,
		Unit:           req.Unit,
		Stock:          req.Stock,
		MinStock:       req.MinStock,
		MinOrder:       req.MinOrder,
		Specifications: req.Specifications,
		Images:         req.Images,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusCreated, product)
}

// UpdateProduct handles PUT /supplier/updateProduct/:id
func UpdateProduct(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := idParam(c)
	if !ok {
		return
	}
	var req UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		validationError(c, err)
		return
	}

	patch := services.ProductPatch{
		Name:           req.Name,
		Category:       req.Category,
		Description:    req.Description,
		Unit:           req.Unit,
		Stock:          req.Stock,
		MinStock:       req.MinStock,
		MinOrder:       req.MinOrder,
		Specifications: req.Specifications,
		Price:          req.Price,
		Images:         req.Images,
	}

	product, err := catalogService().UpdateProduct(c.Request.Context(), p, id, patch)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, product)
}

// DeleteProduct handles DELETE /supplier/deleteProduct/:id. Orders keep
// referencing the soft-deleted product.
func DeleteProduct(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := idParam(c)
	if !ok {
		return
	}
	if err := catalogService().DeleteProduct(c.Request.Context(), p, id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Product deleted",
	})
}
