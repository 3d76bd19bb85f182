package controller

import (
	"context"
	"math/rand"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"taskforge/ai"
	"taskforge/models"
	"taskforge/utils"
)

// SubtaskGenerateController breaks a task into subtasks with the model and
// distributes them round-robin across the team.
type SubtaskGenerateController struct {
	DB     *gorm.DB
	AI     ai.Generator
	Logger *logrus.Logger
}

func NewSubtaskGenerateController(db *gorm.DB, gen ai.Generator, logger *logrus.Logger) *SubtaskGenerateController {
	return &SubtaskGenerateController{
		DB:     db,
		AI:     gen,
		Logger: logger,
	}
}

// GenerateSubtasks handles POST /api/teams/:teamId/tasks/:taskId/generate-subtasks.
// Unlike task generation this returns a single JSON response. The optional
// deadline_policy field selects sequential (default) or random spacing.
func (sgc *SubtaskGenerateController) GenerateSubtasks(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	teamID := c.Locals("teamID").(uint)

	taskID, ok := utils.ParseUint(c.Params("taskId"))
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid task ID",
		})
	}

	var input struct {
		DeadlinePolicy string `json:"deadline_policy" validate:"omitempty,oneof=sequential random"`
	}
	// Body is optional; an empty body means the defaults.
	if len(c.Body()) > 0 {
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
	}
	policy := utils.DeadlinePolicy(input.DeadlinePolicy)
	if policy == "" {
		policy = utils.DeadlineSequential
	}

	var task models.Task
	if err := sgc.DB.Where("id = ? AND team_id = ?", taskID, teamID).
		First(&task).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Task not found",
		})
	}

	log := sgc.Logger.WithFields(logrus.Fields{
		"team_id": teamID,
		"task_id": taskID,
		"user_id": user.ID,
	})

	var members []models.TeamMember
	if err := sgc.DB.Where("team_id = ?", teamID).Find(&members).Error; err != nil {
		log.WithError(err).Error("Failed to load team members")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load team members",
		})
	}
	roster := utils.Roster(members)
	if len(roster) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Team has no members to assign subtasks to",
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	raw, err := sgc.AI.Generate(ctx, ai.SubtaskGenerationPrompt(task.Title, task.Description))
	if err != nil {
		log.WithError(err).Error("Model call failed")
		sentry.CaptureException(err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": "The AI service is unavailable. Please try again.",
		})
	}

	generated, err := ai.ParseSubtasks(raw)
	if err != nil {
		log.WithError(err).WithField("raw", utils.Truncate(raw, 200)).Error("Failed to parse model output")
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error": "Could not understand the AI response. Please try again.",
		})
	}

	assignees, err := utils.PlanAssignments(roster, len(generated))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	var startPos int
	sgc.DB.Model(&models.Subtask{}).Where("task_id = ?", task.ID).
		Select("COALESCE(MAX(position), -1)").Scan(&startPos)
	startPos++

	now := time.Now()
	rng := rand.New(rand.NewSource(now.UnixNano()))

	var created []models.Subtask
	failed := 0
	for i, gs := range generated {
		var deadline time.Time
		if policy == utils.DeadlineRandom {
			deadline = utils.RandomSubtaskDeadline(now, rng)
		} else {
			// Each subtask gets its own stride based on its own content
			complex := utils.IsComplexSubtask(gs.Title, gs.Description)
			deadline = utils.SequentialSubtaskDeadline(now, i, complex)
		}

		assignee := assignees[i]
		subtask := models.Subtask{
			TaskID:      task.ID,
			Title:       gs.Title,
			Description: gs.Description,
			Status:      models.TaskStatusTodo,
			Priority:    "medium",
			Position:    startPos + i,
			Deadline:    &deadline,
			AssignedTo:  &assignee,
		}

		err := sgc.DB.Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(&subtask).Error; err != nil {
				return err
			}
			audit := models.SubtaskAssignment{
				SubtaskID:  subtask.ID,
				AssignedTo: assignee,
				AssignedBy: user.ID,
			}
			return tx.Create(&audit).Error
		})
		if err != nil {
			// Skip this subtask but keep going
			log.WithError(err).WithField("title", gs.Title).Warn("⚠️ Failed to insert subtask, skipping")
			failed++
			continue
		}
		created = append(created, subtask)
	}

	log.WithFields(logrus.Fields{
		"created": len(created),
		"failed":  failed,
	}).Info("✅ Subtask generation complete")

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"subtasks": created,
		"created":  len(created),
		"failed":   failed,
	})
}
