package controller

import (
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"taskforge/models"
	"taskforge/utils"
)

type SubtaskController struct {
	DB     *gorm.DB
	Logger *log.Logger
}

func NewSubtaskController(db *gorm.DB, logger *log.Logger) *SubtaskController {
	return &SubtaskController{
		DB:     db,
		Logger: logger,
	}
}

func (sc *SubtaskController) loadTask(c *fiber.Ctx) (*models.Task, error) {
	teamID := c.Locals("teamID").(uint)

	taskID, ok := utils.ParseUint(c.Params("taskId"))
	if !ok {
		return nil, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid task ID",
		})
	}

	var task models.Task
	if err := sc.DB.Where("id = ? AND team_id = ?", taskID, teamID).
		First(&task).Error; err != nil {
		return nil, c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Task not found",
		})
	}
	return &task, nil
}

func (sc *SubtaskController) GetSubtasks(c *fiber.Ctx) error {
	task, errResp := sc.loadTask(c)
	if task == nil {
		return errResp
	}

	var subtasks []models.Subtask
	if err := sc.DB.Where("task_id = ?", task.ID).
		Order("position, id").Find(&subtasks).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch subtasks",
		})
	}

	return c.JSON(fiber.Map{"subtasks": subtasks})
}

func (sc *SubtaskController) CreateSubtask(c *fiber.Ctx) error {
	task, errResp := sc.loadTask(c)
	if task == nil {
		return errResp
	}

	var input struct {
		Title       string     `json:"title" validate:"required,min=1,max=255"`
		Description string     `json:"description"`
		Priority    string     `json:"priority" validate:"omitempty,oneof=low medium high"`
		Deadline    *time.Time `json:"deadline"`
		AssignedTo  *uint      `json:"assigned_to"`
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

	priority := input.Priority
	if priority == "" {
		priority = "medium"
	}

	var maxPos int
	sc.DB.Model(&models.Subtask{}).Where("task_id = ?", task.ID).
		Select("COALESCE(MAX(position), -1)").Scan(&maxPos)

	subtask := models.Subtask{
		TaskID:      task.ID,
		Title:       input.Title,
		Description: input.Description,
		Status:      models.TaskStatusTodo,
		Priority:    priority,
		Position:    maxPos + 1,
		Deadline:    input.Deadline,
		AssignedTo:  input.AssignedTo,
	}

	if err := sc.DB.Create(&subtask).Error; err != nil {
		sc.Logger.Printf("Failed to create subtask: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create subtask",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"subtask": subtask})
}

func (sc *SubtaskController) UpdateSubtask(c *fiber.Ctx) error {
	task, errResp := sc.loadTask(c)
	if task == nil {
		return errResp
	}

	subtaskID, ok := utils.ParseUint(c.Params("subtaskId"))
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid subtask ID",
		})
	}

	var subtask models.Subtask
	if err := sc.DB.Where("id = ? AND task_id = ?", subtaskID, task.ID).
		First(&subtask).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Subtask not found",
		})
	}

	var input struct {
		Title       *string    `json:"title"`
		Description *string    `json:"description"`
		Status      *string    `json:"status"`
		Priority    *string    `json:"priority"`
		IsCompleted *bool      `json:"is_completed"`
		Position    *int       `json:"position"`
		Deadline    *time.Time `json:"deadline"`
		AssignedTo  *uint      `json:"assigned_to"`
	}

	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if input.Title != nil {
		subtask.Title = *input.Title
	}
	if input.Description != nil {
		subtask.Description = *input.Description
	}
	if input.Status != nil {
		switch *input.Status {
		case models.TaskStatusTodo, models.TaskStatusInProgress, models.TaskStatusCompleted:
			subtask.Status = *input.Status
		default:
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid status",
			})
		}
		subtask.IsCompleted = *input.Status == models.TaskStatusCompleted
	}
	if input.Priority != nil {
		subtask.Priority = *input.Priority
	}
	if input.IsCompleted != nil {
		subtask.IsCompleted = *input.IsCompleted
		if *input.IsCompleted {
			subtask.Status = models.TaskStatusCompleted
		}
	}
	if input.Position != nil {
		subtask.Position = *input.Position
	}
	if input.Deadline != nil {
		subtask.Deadline = input.Deadline
	}
	if input.AssignedTo != nil {
		subtask.AssignedTo = input.AssignedTo
	}

	if err := sc.DB.Save(&subtask).Error; err != nil {
		sc.Logger.Printf("Failed to update subtask %d: %v", subtaskID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to update subtask",
		})
	}

	return c.JSON(fiber.Map{"subtask": subtask})
}

func (sc *SubtaskController) DeleteSubtask(c *fiber.Ctx) error {
	task, errResp := sc.loadTask(c)
	if task == nil {
		return errResp
	}

	subtaskID, ok := utils.ParseUint(c.Params("subtaskId"))
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid subtask ID",
		})
	}

	result := sc.DB.Where("id = ? AND task_id = ?", subtaskID, task.ID).
		Delete(&models.Subtask{})
	if result.Error != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to delete subtask",
		})
	}
	if result.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Subtask not found",
		})
	}

	return c.JSON(fiber.Map{"message": "Subtask deleted"})
}

type calendarSubtask struct {
	models.Subtask
	TaskTitle string `json:"task_title"`
}

// GetTeamSubtasks lists every subtask across the team's tasks with the
// parent task title attached, for the calendar view. Supports optional
// from/to date filters on the deadline.
func (sc *SubtaskController) GetTeamSubtasks(c *fiber.Ctx) error {
	teamID := c.Locals("teamID").(uint)

	query := sc.DB.Model(&models.Subtask{}).
		Select("subtasks.*, tasks.title AS task_title").
		Joins("JOIN tasks ON tasks.id = subtasks.task_id").
		Where("tasks.team_id = ?", teamID)

	if from := c.Query("from"); from != "" {
		t, err := time.Parse("2006-01-02", from)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid 'from' date, expected YYYY-MM-DD",
			})
		}
		query = query.Where("subtasks.deadline >= ?", t)
	}
	if to := c.Query("to"); to != "" {
		t, err := time.Parse("2006-01-02", to)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid 'to' date, expected YYYY-MM-DD",
			})
		}
		query = query.Where("subtasks.deadline < ?", t.AddDate(0, 0, 1))
	}

	var subtasks []calendarSubtask
	if err := query.Order("subtasks.deadline, subtasks.id").Scan(&subtasks).Error; err != nil {
		sc.Logger.Printf("Failed to fetch team subtasks for team %d: %v", teamID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch subtasks",
		})
	}

	return c.JSON(fiber.Map{"subtasks": subtasks})
}
