package helpers

import (
	"fmt"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// UploadsURLPrefix is where the server exposes UploadConfig.UploadBasePath.
const UploadsURLPrefix = "/uploads"

type UploadConfig struct {
	MaxSizeBytes     int64
	AllowedMimeTypes []string
	UploadBasePath   string
}

var DefaultImageUploadConfig = UploadConfig{
	MaxSizeBytes: 5 * 1024 * 1024, // 5MB
	AllowedMimeTypes: []string{
		"image/jpeg",
		"image/png",
		"image/gif",
		"image/webp",
	},
	UploadBasePath: "./uploads/",
}

// ImageUploadConfig is DefaultImageUploadConfig stored under basePath.
func ImageUploadConfig(basePath string) UploadConfig {
	cfg := DefaultImageUploadConfig
	if basePath != "" {
		cfg.UploadBasePath = basePath
	}
	return cfg
}

// UploadFile sniffs the content type, stores the file under
// UploadBasePath/uploadType and returns its public URL path.
func UploadFile(c *gin.Context, fileHeader *multipart.FileHeader, uploadType string, configs ...UploadConfig) (string, error) {
	config := DefaultImageUploadConfig
	if len(configs) > 0 {
		config = configs[0]
	}

	if fileHeader.Size > config.MaxSizeBytes {
		return "", fmt.Errorf("file size exceeds maximum limit of %d MB", config.MaxSizeBytes/(1024*1024))
	}

	src, err := fileHeader.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	mtype, err := mimetype.DetectReader(src)
	if err != nil {
		return "", err
	}
	if !mimetype.EqualsAny(mtype.String(), config.AllowedMimeTypes...) {
		return "", fmt.Errorf("invalid file type. Allowed types: %v", config.AllowedMimeTypes)
	}

	uploadPath := filepath.Join(config.UploadBasePath, uploadType)
	if err := os.MkdirAll(uploadPath, os.ModePerm); err != nil {
		return "", err
	}

	filename := uuid.New().String() + mtype.Extension()
	if err := c.SaveUploadedFile(fileHeader, filepath.Join(uploadPath, filename)); err != nil {
		return "", err
	}

	return path.Join(UploadsURLPrefix, uploadType, filename), nil
}

// DeleteFile removes a file previously returned by UploadFile.
func DeleteFile(basePath, url string) error {
	rel, err := filepath.Rel(UploadsURLPrefix, filepath.FromSlash(url))
	if err != nil {
		return err
	}
	if rel == "." || strings.HasPrefix(rel, "..") {
		return fmt.Errorf("%q is not an upload", url)
	}
	return os.Remove(filepath.Join(basePath, rel))
}
