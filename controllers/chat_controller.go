package controller

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"github.com/valyala/fasthttp"
	"gorm.io/gorm"

	"taskforge/ai"
	"taskforge/models"
	"taskforge/utils"
)

// ChatController streams tech stack advice. Model output is forwarded to the
// client chunk by chunk; once the full response is in, any SUGGESTIONS block
// is extracted and sent as a separate structured event.
type ChatController struct {
	DB     *gorm.DB
	AI     ai.Generator
	Logger *logrus.Logger
}

func NewChatController(db *gorm.DB, gen ai.Generator, logger *logrus.Logger) *ChatController {
	return &ChatController{
		DB:     db,
		AI:     gen,
		Logger: logger,
	}
}

func writeSSE(w *bufio.Writer, event string, payload interface{}) bool {
	data, err := json.Marshal(payload)
	if err != nil {
		return false
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data); err != nil {
		return false
	}
	return w.Flush() == nil
}

// Chat handles POST /api/teams/:teamId/stack-chat as an SSE stream with
// chunk, suggestions, done and error events.
func (cc *ChatController) Chat(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	teamID := c.Locals("teamID").(uint)

	var input struct {
		Message          string           `json:"message" validate:"required,min=1"`
		Conversation     []ai.ChatMessage `json:"conversation"`
		ForceSuggestions bool             `json:"force_suggestions"`
	}

	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if err := utils.ValidateStruct(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	var team models.Team
	if err := cc.DB.First(&team, teamID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Team not found",
		})
	}

	log := cc.Logger.WithFields(logrus.Fields{
		"team_id": teamID,
		"user_id": user.ID,
	})

	message := strings.TrimSpace(input.Message)
	prompt := ai.ChatPrompt(message, input.Conversation, team.TechStack, input.ForceSuggestions)

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
		defer cancel()

		// The model streams from its own goroutine inside the SDK iterator;
		// guard the writer so chunk forwarding stays ordered.
		var mu sync.Mutex
		clientGone := false

		full, err := cc.AI.GenerateStream(ctx, prompt, func(text string) {
			mu.Lock()
			defer mu.Unlock()
			if clientGone {
				return
			}
			if !writeSSE(w, "chunk", fiber.Map{"text": text}) {
				clientGone = true
				cancel()
			}
		})
		if err != nil {
			log.WithError(err).Error("Chat stream failed")
			sentry.CaptureException(err)
			mu.Lock()
			writeSSE(w, "error", fiber.Map{"message": "The AI service is unavailable. Please try again."})
			mu.Unlock()
			return
		}

		suggestions, final := ai.ExtractSuggestions(full)

		mu.Lock()
		defer mu.Unlock()
		if clientGone {
			return
		}
		// The suggestions event is always sent, even when the list is empty,
		// and done carries the response with the structured block stripped.
		writeSSE(w, "suggestions", fiber.Map{"suggestions": suggestions})
		writeSSE(w, "done", fiber.Map{"final": final})
		log.WithField("suggestions", len(suggestions)).Info("✅ Chat response complete")
	}))

	return nil
}

// ApplySuggestions handles POST /api/teams/:teamId/stack-suggestions: the
// client sends back the suggestions the user accepted and the team's tech
// stack is patched field by field.
func (cc *ChatController) ApplySuggestions(c *fiber.Ctx) error {
	teamID := c.Locals("teamID").(uint)

	var input struct {
		Suggestions []ai.StackSuggestion `json:"suggestions" validate:"required,min=1"`
	}

	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if err := utils.ValidateStruct(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	var team models.Team
	if err := cc.DB.First(&team, teamID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Team not found",
		})
	}

	if team.TechStack == nil {
		team.TechStack = &models.TechStack{}
	}

	applied := 0
	for _, s := range input.Suggestions {
		if team.TechStack.Apply(s.Category, s.Field, s.Value) {
			applied++
		}
	}

	if err := cc.DB.Save(&team).Error; err != nil {
		cc.Logger.WithError(err).Error("Failed to save tech stack")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to update tech stack",
		})
	}

	return c.JSON(fiber.Map{
		"team":    team,
		"applied": applied,
	})
}
