package controller

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"github.com/valyala/fasthttp"
	"gorm.io/gorm"

	"taskforge/ai"
	"taskforge/config"
	"taskforge/models"
	"taskforge/utils"
)

// GenerateController runs the AI task generation pipeline: prompt the model
// with the team goal and tech stack, repair and parse the response, then
// persist tasks one by one while streaming progress to the client.
type GenerateController struct {
	DB     *gorm.DB
	AI     ai.Generator
	Logger *logrus.Logger
}

func NewGenerateController(db *gorm.DB, gen ai.Generator, logger *logrus.Logger) *GenerateController {
	return &GenerateController{
		DB:     db,
		AI:     gen,
		Logger: logger,
	}
}

// progressEvent is one frame of the generation stream. Status is the
// discriminator: generating, parsing, creating, creating_task, task_created,
// complete, error.
type progressEvent struct {
	Status  string        `json:"status"`
	Message string        `json:"message,omitempty"`
	Index   int           `json:"index,omitempty"`
	Total   int           `json:"total,omitempty"`
	Title   string        `json:"title,omitempty"`
	Task    *models.Task  `json:"task,omitempty"`
	Tasks   []models.Task `json:"tasks,omitempty"`
	Count   int           `json:"count,omitempty"`
}

func writeProgress(w *bufio.Writer, ev progressEvent) bool {
	payload, err := json.Marshal(ev)
	if err != nil {
		return false
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
		return false
	}
	// Flush after every event so the client sees progress immediately
	return w.Flush() == nil
}

// GenerateTasks handles POST /api/teams/:teamId/generate-tasks. The response
// is a server-sent event stream of progressEvent frames.
func (gc *GenerateController) GenerateTasks(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	teamID := c.Locals("teamID").(uint)

	var input struct {
		Goal string `json:"goal" validate:"required,min=3"`
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
	goal := strings.TrimSpace(input.Goal)

	var team models.Team
	if err := gc.DB.First(&team, teamID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Team not found",
		})
	}

	log := gc.Logger.WithFields(logrus.Fields{
		"team_id": teamID,
		"user_id": user.ID,
		"goal":    utils.Truncate(goal, 80),
	})

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		gc.runPipeline(w, log, &team, user.ID, goal)
	}))

	return nil
}

func (gc *GenerateController) runPipeline(w *bufio.Writer, log *logrus.Entry, team *models.Team, userID uint, goal string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	log.Info("🚀 Starting task generation")
	if !writeProgress(w, progressEvent{Status: "generating", Message: "Generating tasks from your goal..."}) {
		return
	}

	prompt := ai.TaskGenerationPrompt(goal, team.TechStack)
	raw, err := gc.AI.Generate(ctx, prompt)
	if err != nil {
		log.WithError(err).Error("Model call failed")
		sentry.CaptureException(err)
		writeProgress(w, progressEvent{Status: "error", Message: "The AI service is unavailable. Please try again."})
		return
	}

	if !writeProgress(w, progressEvent{Status: "parsing", Message: "Processing the generated tasks..."}) {
		return
	}

	generated, err := ai.ParseTasks(raw)
	if err != nil {
		log.WithError(err).WithField("raw", utils.Truncate(raw, 200)).Error("Failed to parse model output")
		writeProgress(w, progressEvent{Status: "error", Message: "Could not understand the AI response. Please try again."})
		return
	}
	if len(generated) == 0 {
		writeProgress(w, progressEvent{Status: "error", Message: "The AI did not produce any tasks. Try rephrasing your goal."})
		return
	}

	if !writeProgress(w, progressEvent{
		Status:  "creating",
		Message: fmt.Sprintf("Creating %d tasks...", len(generated)),
		Total:   len(generated),
	}) {
		return
	}

	var startPos int
	gc.DB.Model(&models.Task{}).Where("team_id = ?", team.ID).
		Select("COALESCE(MAX(position), -1)").Scan(&startPos)
	startPos++

	delay := time.Duration(config.AppConfig.GenerateTaskDelayMS) * time.Millisecond
	now := time.Now()
	createdTasks := make([]models.Task, 0, len(generated))

	for i, gt := range generated {
		if !writeProgress(w, progressEvent{
			Status: "creating_task",
			Index:  i + 1,
			Total:  len(generated),
			Title:  gt.Title,
		}) {
			return
		}

		deadline := utils.BulkTaskDeadline(now, i)
		task := models.Task{
			TeamID:      team.ID,
			Title:       gt.Title,
			Description: gt.Description,
			Status:      models.TaskStatusTodo,
			Position:    startPos + i,
			Deadline:    &deadline,
			Tags:        ai.InferTags(ctx, gc.AI, gt.Title, gt.Description),
		}

		if err := gc.DB.Create(&task).Error; err != nil {
			// Skip this task but keep the batch going
			log.WithError(err).WithField("title", gt.Title).Warn("⚠️ Failed to insert task, skipping")
			continue
		}
		createdTasks = append(createdTasks, task)
		Board.Publish(BoardEvent{Type: "task_created", TeamID: team.ID, Data: task})

		if !writeProgress(w, progressEvent{
			Status: "task_created",
			Index:  i + 1,
			Total:  len(generated),
			Task:   &task,
		}) {
			return
		}

		if delay > 0 && i < len(generated)-1 {
			time.Sleep(delay)
		}
	}

	goalRecord := models.TeamGoal{
		TeamID:      team.ID,
		GoalText:    goal,
		CreatedBy:   userID,
		IsProcessed: true,
	}
	if err := gc.DB.Create(&goalRecord).Error; err != nil {
		log.WithError(err).Warn("Failed to record team goal")
	}

	log.WithField("created", len(createdTasks)).Info("✅ Task generation complete")
	writeProgress(w, progressEvent{
		Status:  "complete",
		Message: fmt.Sprintf("Created %d tasks", len(createdTasks)),
		Tasks:   createdTasks,
		Count:   len(createdTasks),
	})
}
