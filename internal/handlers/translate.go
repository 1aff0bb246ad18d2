package handlers

import (
	"errors"

	"obrolan/server/internal/translate"

	"github.com/gofiber/fiber/v2"
)

// TranslateRequest represents a translation request body
type TranslateRequest struct {
	Text       string `json:"text"`
	TargetLang string `json:"targetLang"`
}

// Translate renders a message in another language
func Translate(c *fiber.Ctx) error {
	if translator == nil || !translator.Enabled() {
		return fail(c, fiber.StatusServiceUnavailable, "Translation is not configured")
	}

	var req TranslateRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if len([]rune(req.Text)) > translate.MaxTextLength {
		return fail(c, fiber.StatusBadRequest, "Text is too long")
	}

	out, err := translator.Translate(c.UserContext(), req.Text, req.TargetLang)
	switch {
	case errors.Is(err, translate.ErrEmptyInput):
		return fail(c, fiber.StatusBadRequest, "Text and targetLang are required")
	case err != nil:
		log.WithError(err).Warn("translation failed")
		return fail(c, fiber.StatusBadGateway, "Translation failed")
	}

	return ok(c, fiber.StatusOK, fiber.Map{
		"text":       out,
		"targetLang": req.TargetLang,
	})
}
