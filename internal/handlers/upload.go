package handlers

import (
	"errors"
	"fmt"
	"path/filepath"

	"obrolan/server/internal/models"
	"obrolan/server/internal/storage"

	"github.com/gofiber/fiber/v2"
)

// saveUpload stores the multipart field as a blob of kind
func saveUpload(c *fiber.Ctx, field, kind string) (*storage.Blob, error) {
	file, err := c.FormFile(field)
	if err != nil {
		return nil, err
	}
	src, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer src.Close()

	return blobs.Save(kind, file.Filename, file.Size, src)
}

// uploadError maps a storage error to a response
func uploadError(c *fiber.Ctx, kind string, err error) error {
	switch {
	case errors.Is(err, storage.ErrTooLarge):
		limit := storage.MaxFileSize
		if kind == storage.KindAvatar {
			limit = storage.MaxAvatarSize
		}
		return fail(c, fiber.StatusBadRequest, fmt.Sprintf("File size exceeds limit of %dMB", limit/(1024*1024)))
	case errors.Is(err, storage.ErrExtension):
		return fail(c, fiber.StatusBadRequest, fmt.Sprintf("File extension not allowed for type %s", kind))
	case errors.Is(err, storage.ErrUnknownKind):
		return fail(c, fiber.StatusBadRequest, "Invalid file type. Must be: image, video, audio, or file")
	default:
		log.WithError(err).Error("upload failed")
		return fail(c, fiber.StatusInternalServerError, "Failed to save file")
	}
}

// UploadFile handles message attachment uploads
func UploadFile(c *fiber.Ctx) error {
	fileType := c.Query("type", storage.KindFile)
	if fileType == storage.KindAvatar {
		return fail(c, fiber.StatusBadRequest, "Invalid file type. Must be: image, video, audio, or file")
	}

	if _, err := c.FormFile("file"); err != nil {
		return fail(c, fiber.StatusBadRequest, "No file uploaded")
	}

	blob, err := saveUpload(c, "file", fileType)
	if err != nil {
		return uploadError(c, fileType, err)
	}
	return ok(c, fiber.StatusCreated, blob)
}

// UploadAvatar stores a new avatar and points the caller's profile at it
func UploadAvatar(c *fiber.Ctx) error {
	if _, err := c.FormFile("avatar"); err != nil {
		return fail(c, fiber.StatusBadRequest, "No avatar uploaded")
	}

	blob, err := saveUpload(c, "avatar", storage.KindAvatar)
	if err != nil {
		return uploadError(c, storage.KindAvatar, err)
	}

	profile, err := profiles.UpdateProfile(c.UserContext(), userID(c), models.ProfileUpdate{Avatar: &blob.URL})
	if err != nil {
		log.WithError(err).Error("avatar profile update failed")
		return fail(c, fiber.StatusInternalServerError, "Failed to update profile")
	}

	return ok(c, fiber.StatusCreated, fiber.Map{
		"url":     blob.URL,
		"profile": profile.ToResponse(),
	})
}

// GetFile serves uploaded files
func GetFile(c *fiber.Ctx) error {
	folder := c.Params("type")
	filename := c.Params("filename")

	file, info, err := blobs.Open(folder, filename)
	if errors.Is(err, storage.ErrNotFound) {
		return fail(c, fiber.StatusNotFound, "File not found")
	}
	if err != nil {
		log.WithError(err).Error("open upload failed")
		return fail(c, fiber.StatusInternalServerError, "Failed to open file")
	}

	c.Set(fiber.HeaderContentType, storage.ContentType(filepath.Ext(filename)))
	// The response body stream is closed by fasthttp once written.
	return c.SendStream(file, int(info.Size()))
}
