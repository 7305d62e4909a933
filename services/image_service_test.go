package services

import (
	"bytes"
	"mime/multipart"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/buildmart/marketplace-api/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newFileHeader builds a multipart file header the way gin receives one
func newFileHeader(t *testing.T, filename string, content []byte) *multipart.FileHeader {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("image", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest("POST", "/upload", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	require.NoError(t, req.ParseMultipartForm(utils.MaxFileSize))
	return req.MultipartForm.File["image"][0]
}

func TestS3ImageService_Upload(t *testing.T) {
	store := NewMockS3Service()
	images := InitImageService(store)
	t.Cleanup(func() { SetImageService(nil) })

	key, err := images.UploadProductImage(t.Context(), 12, newFileHeader(t, "Rebar Bundle.PNG", []byte("png-bytes")))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(key, "products/12/"), key)
	assert.True(t, strings.HasSuffix(key, ".png"), key)
	assert.True(t, store.FileExists(key))
	assert.Equal(t, "image/png", store.ContentType(key))

	url, err := images.GetImageURL(t.Context(), key)
	require.NoError(t, err)
	assert.Contains(t, url, key)

	require.NoError(t, images.DeleteImage(t.Context(), key))
	assert.False(t, store.FileExists(key))
	_, err = images.GetImageURL(t.Context(), key)
	assert.Error(t, err)
}

func TestS3ImageService_RejectsBadFiles(t *testing.T) {
	store := NewMockS3Service()
	images := &S3ImageService{s3Service: store}

	_, err := images.UploadProductImage(t.Context(), 1, newFileHeader(t, "invoice.pdf", []byte("%PDF")))
	var uploadErr *utils.FileUploadError
	require.ErrorAs(t, err, &uploadErr)

	url, err := images.GetImageURL(t.Context(), "")
	require.NoError(t, err)
	assert.Empty(t, url)
}

func TestMockImageService(t *testing.T) {
	mock := NewMockImageService()
	mock.SetAsMockForTesting()
	t.Cleanup(func() { SetImageService(nil) })

	key, err := GetImageService().UploadProductImage(t.Context(), 3, newFileHeader(t, "tiles.jpg", []byte("jpg")))
	require.NoError(t, err)
	assert.Equal(t, "products/3/mock_tiles.jpg", key)
	assert.True(t, mock.ImageExists(key))

	mock.Clear()
	assert.False(t, mock.ImageExists(key))
}
