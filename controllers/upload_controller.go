package controllers

import (
	"net/http"

	"github.com/buildmart/marketplace-api/services"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// UploadProductImage handles POST /supplier/uploadProductImage/:id. The
// multipart field "image" is stored and its key appended to the product.
func UploadProductImage(c *gin.Context) {
	p, ok := principal(c)
	if !ok {
		return
	}
	id, ok := idParam(c)
	if !ok {
		return
	}

	fileHeader, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "MISSING_FILE",
				"message": "An image file is required in the 'image' field",
			},
		})
		return
	}

	imageService := services.GetImageService()
	if imageService == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "STORAGE_UNAVAILABLE",
				"message": "Image storage is not configured",
			},
		})
		return
	}

	ctx := c.Request.Context()
	catalog := catalogService()
	// ownership is checked before anything is stored
	if _, err := catalog.OwnedProduct(ctx, p, id); err != nil {
		respondError(c, err)
		return
	}

	key, err := imageService.UploadProductImage(ctx, id, fileHeader)
	if err != nil {
		respondError(c, err)
		return
	}
	product, err := catalog.AddProductImage(ctx, p, id, key)
	if err != nil {
		if deleteErr := imageService.DeleteImage(ctx, key); deleteErr != nil {
			log.Warn().Err(deleteErr).Str("key", key).Msg("failed to remove orphaned image")
		}
		respondError(c, err)
		return
	}

	url, err := imageService.GetImageURL(ctx, key)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    product,
		"image": gin.H{
			"key": key,
			"url": url,
		},
	})
}
