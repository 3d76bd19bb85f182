package controller

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"taskforge/ai"
	"taskforge/models"
	"taskforge/utils"
)

type TagController struct {
	DB     *gorm.DB
	AI     ai.Generator
	Logger *logrus.Logger
}

func NewTagController(db *gorm.DB, gen ai.Generator, logger *logrus.Logger) *TagController {
	return &TagController{
		DB:     db,
		AI:     gen,
		Logger: logger,
	}
}

// TagTask handles POST /api/teams/:teamId/tasks/:taskId/auto-tag: infers and
// stores tags for one task.
func (tgc *TagController) TagTask(c *fiber.Ctx) error {
	teamID := c.Locals("teamID").(uint)

	taskID, ok := utils.ParseUint(c.Params("taskId"))
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid task ID",
		})
	}

	var task models.Task
	if err := tgc.DB.Where("id = ? AND team_id = ?", taskID, teamID).
		First(&task).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Task not found",
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	task.Tags = ai.InferTags(ctx, tgc.AI, task.Title, task.Description)

	if err := tgc.DB.Save(&task).Error; err != nil {
		tgc.Logger.WithError(err).WithField("task_id", taskID).Error("Failed to store tags")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to save tags",
		})
	}

	return c.JSON(fiber.Map{
		"task_id": task.ID,
		"tags":    task.Tags,
	})
}

// AutoTagTasks handles PUT /api/teams/:teamId/auto-tag-tasks: re-tags every
// task on the board, replacing whatever tags are already there, and reports
// a tally. A tag failure on one task does not stop the batch.
func (tgc *TagController) AutoTagTasks(c *fiber.Ctx) error {
	teamID := c.Locals("teamID").(uint)

	log := tgc.Logger.WithField("team_id", teamID)

	var tasks []models.Task
	if err := tgc.DB.
		Where("team_id = ?", teamID).
		Order("position, id").
		Find(&tasks).Error; err != nil {
		log.WithError(err).Error("Failed to load tasks")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load tasks",
		})
	}

	if len(tasks) == 0 {
		return c.JSON(fiber.Map{
			"message": "Team has no tasks to tag",
			"tagged":  0,
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	tagged := 0
	failed := 0
	for i := range tasks {
		tasks[i].Tags = ai.InferTags(ctx, tgc.AI, tasks[i].Title, tasks[i].Description)
		if err := tgc.DB.Save(&tasks[i]).Error; err != nil {
			log.WithError(err).WithField("task_id", tasks[i].ID).Warn("⚠️ Failed to store tags, skipping")
			failed++
			continue
		}
		tagged++
	}

	log.WithFields(logrus.Fields{
		"tagged": tagged,
		"failed": failed,
	}).Info("✅ Bulk auto-tag complete")

	return c.JSON(fiber.Map{
		"tagged": tagged,
		"failed": failed,
		"total":  len(tasks),
	})
}
