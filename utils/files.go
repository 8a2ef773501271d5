package utils

import (
	"fmt"
	"mime/multipart"
	"os"
	"path/filepath"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"collabhub/config"
)

// SaveUpload validates a multipart upload against the configured size cap and
// stores it under UPLOAD_DIR/YYYY/MM/DD with a uuid-based name. Returns the
// stored path relative to the upload directory.
func SaveUpload(c *fiber.Ctx, file *multipart.FileHeader) (string, error) {
	maxBytes := config.AppConfig.MaxUploadBytes
	if file.Size > maxBytes {
		return "", fmt.Errorf("file size must not exceed %dMB, current size: %.2fMB",
			maxBytes/(1024*1024), float64(file.Size)/(1024*1024))
	}

	now := time.Now()
	relDir := filepath.Join(now.Format("2006"), now.Format("01"), now.Format("02"))
	dir := filepath.Join(config.AppConfig.UploadDir, relDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create upload directory: %w", err)
	}

	stored := uuid.NewString() + filepath.Ext(file.Filename)
	relPath := filepath.Join(relDir, stored)
	if err := c.SaveFile(file, filepath.Join(config.AppConfig.UploadDir, relPath)); err != nil {
		return "", fmt.Errorf("failed to store file: %w", err)
	}
	return relPath, nil
}

// AbsUploadPath resolves a stored path to its location on disk.
func AbsUploadPath(storedPath string) string {
	return filepath.Join(config.AppConfig.UploadDir, storedPath)
}

// DeleteStoredFile removes a stored file from disk. A missing file is not an
// error; anything else is logged and swallowed, mirroring the email policy.
func DeleteStoredFile(storedPath string) {
	if storedPath == "" {
		return
	}
	if err := os.Remove(AbsUploadPath(storedPath)); err != nil && !os.IsNotExist(err) {
		logrus.WithField("path", storedPath).WithError(err).Warn("Failed to delete stored file")
	}
}

// DeleteStoredFiles removes a batch of stored files. Call after the deleting
// transaction has committed so an aborted delete keeps its files.
func DeleteStoredFiles(paths []string) {
	for _, p := range paths {
		DeleteStoredFile(p)
	}
}
