package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/mail"
	"strings"

	"github.com/Dosada05/alumni-network/storage"
	"github.com/google/uuid"
)

// --- Общие хелперы ---

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// trimOptional обрезает пробелы, пустая строка превращается в nil.
func trimOptional(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func isValidEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}

// --- Фото ---

var photoExtensions = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/webp": "webp",
}

// PhotoUpload - загружаемое изображение.
type PhotoUpload struct {
	Reader      io.Reader
	ContentType string
}

func photoKey(userID int, contentType string) (string, error) {
	ext, ok := photoExtensions[strings.ToLower(contentType)]
	if !ok {
		return "", validationFailed("photo", fmt.Sprintf("unsupported image type %q", contentType))
	}
	return fmt.Sprintf("alumni/%d/%s.%s", userID, uuid.NewString(), ext), nil
}

func uploadPhoto(ctx context.Context, uploader storage.FileUploader, userID int, photo PhotoUpload) (*storage.UploadResult, error) {
	if uploader == nil {
		return nil, fmt.Errorf("photo storage is not configured")
	}
	if photo.Reader == nil {
		return nil, validationFailed("photo", "must be provided")
	}
	key, err := photoKey(userID, photo.ContentType)
	if err != nil {
		return nil, err
	}
	result, err := uploader.Upload(ctx, key, strings.ToLower(photo.ContentType), photo.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to upload photo: %w", err)
	}
	return result, nil
}

func loggerOrDefault(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}
