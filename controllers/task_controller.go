package controller

import (
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"taskforge/models"
	"taskforge/utils"
)

type TaskController struct {
	DB     *gorm.DB
	Logger *log.Logger
}

func NewTaskController(db *gorm.DB, logger *log.Logger) *TaskController {
	return &TaskController{
		DB:     db,
		Logger: logger,
	}
}

// GetTasks returns a team's board: tasks ordered by position with their
// subtasks preloaded.
func (tc *TaskController) GetTasks(c *fiber.Ctx) error {
	teamID := c.Locals("teamID").(uint)

	var tasks []models.Task
	if err := tc.DB.Where("team_id = ?", teamID).
		Preload("Subtasks", func(db *gorm.DB) *gorm.DB {
			return db.Order("position, id")
		}).
		Order("position, id").
		Find(&tasks).Error; err != nil {
		tc.Logger.Printf("Failed to fetch tasks for team %d: %v", teamID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch tasks",
		})
	}

	return c.JSON(fiber.Map{"tasks": tasks})
}

func (tc *TaskController) CreateTask(c *fiber.Ctx) error {
	teamID := c.Locals("teamID").(uint)

	var input struct {
		Title       string     `json:"title" validate:"required,min=1,max=255"`
		Description string     `json:"description"`
		Status      string     `json:"status" validate:"omitempty,oneof=todo in-progress completed"`
		Deadline    *time.Time `json:"deadline"`
		AssignedTo  *uint      `json:"assigned_to"`
		Tags        []string   `json:"tags"`
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

	status := input.Status
	if status == "" {
		status = models.TaskStatusTodo
	}

	var maxPos int
	tc.DB.Model(&models.Task{}).Where("team_id = ?", teamID).
		Select("COALESCE(MAX(position), -1)").Scan(&maxPos)

	task := models.Task{
		TeamID:      teamID,
		Title:       input.Title,
		Description: input.Description,
		Status:      status,
		Position:    maxPos + 1,
		Deadline:    input.Deadline,
		AssignedTo:  input.AssignedTo,
		Tags:        input.Tags,
	}

	if err := tc.DB.Create(&task).Error; err != nil {
		tc.Logger.Printf("Failed to create task: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create task",
		})
	}

	Board.Publish(BoardEvent{Type: "task_created", TeamID: teamID, Data: task})

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"task": task})
}

func (tc *TaskController) UpdateTask(c *fiber.Ctx) error {
	teamID := c.Locals("teamID").(uint)

	taskID, ok := utils.ParseUint(c.Params("taskId"))
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid task ID",
		})
	}

	var task models.Task
	if err := tc.DB.Where("id = ? AND team_id = ?", taskID, teamID).
		First(&task).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Task not found",
		})
	}

	var input struct {
		Title       *string    `json:"title"`
		Description *string    `json:"description"`
		Status      *string    `json:"status"`
		Position    *int       `json:"position"`
		Deadline    *time.Time `json:"deadline"`
		AssignedTo  *uint      `json:"assigned_to"`
		Tags        []string   `json:"tags"`
	}

	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if input.Title != nil {
		task.Title = *input.Title
	}
	if input.Description != nil {
		task.Description = *input.Description
	}
	if input.Status != nil {
		switch *input.Status {
		case models.TaskStatusTodo, models.TaskStatusInProgress, models.TaskStatusCompleted:
			task.Status = *input.Status
		default:
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid status",
			})
		}
	}
	if input.Position != nil {
		task.Position = *input.Position
	}
	if input.Deadline != nil {
		task.Deadline = input.Deadline
	}
	if input.AssignedTo != nil {
		task.AssignedTo = input.AssignedTo
	}
	if input.Tags != nil {
		task.Tags = input.Tags
	}

	if err := tc.DB.Save(&task).Error; err != nil {
		tc.Logger.Printf("Failed to update task %d: %v", taskID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to update task",
		})
	}

	Board.Publish(BoardEvent{Type: "task_updated", TeamID: teamID, Data: task})

	return c.JSON(fiber.Map{"task": task})
}

func (tc *TaskController) DeleteTask(c *fiber.Ctx) error {
	teamID := c.Locals("teamID").(uint)

	taskID, ok := utils.ParseUint(c.Params("taskId"))
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid task ID",
		})
	}

	var task models.Task
	if err := tc.DB.Where("id = ? AND team_id = ?", taskID, teamID).
		First(&task).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Task not found",
		})
	}

	err := tc.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("task_id = ?", task.ID).Delete(&models.Subtask{}).Error; err != nil {
			return err
		}
		return tx.Delete(&task).Error
	})
	if err != nil {
		tc.Logger.Printf("Failed to delete task %d: %v", taskID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to delete task",
		})
	}

	Board.Publish(BoardEvent{Type: "task_deleted", TeamID: teamID, Data: fiber.Map{"task_id": taskID}})

	return c.JSON(fiber.Map{"message": "Task deleted"})
}
