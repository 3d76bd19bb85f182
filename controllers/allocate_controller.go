package controller

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"taskforge/models"
	"taskforge/utils"
)

// AllocateController distributes existing unassigned work across the team
// with the min-count round-robin. Counters start at zero for every member
// on each run, so each batch is balanced on its own.
type AllocateController struct {
	DB     *gorm.DB
	Logger *logrus.Logger
}

func NewAllocateController(db *gorm.DB, logger *logrus.Logger) *AllocateController {
	return &AllocateController{
		DB:     db,
		Logger: logger,
	}
}

func (alc *AllocateController) teamRoster(teamID uint) ([]utils.Assignee, error) {
	var members []models.TeamMember
	if err := alc.DB.Where("team_id = ?", teamID).Find(&members).Error; err != nil {
		return nil, err
	}
	return utils.Roster(members), nil
}

// AllocateTasks handles POST /api/teams/:teamId/allocate-tasks: every
// unassigned, not-completed task gets an assignee and a staggered deadline.
// Tasks are walked in board order so repeated runs are deterministic.
func (alc *AllocateController) AllocateTasks(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	teamID := c.Locals("teamID").(uint)

	log := alc.Logger.WithFields(logrus.Fields{
		"team_id": teamID,
		"user_id": user.ID,
	})

	var tasks []models.Task
	if err := alc.DB.
		Where("team_id = ? AND assigned_to IS NULL AND status <> ?", teamID, models.TaskStatusCompleted).
		Order("position, id").
		Find(&tasks).Error; err != nil {
		log.WithError(err).Error("Failed to load unassigned tasks")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load tasks",
		})
	}

	if len(tasks) == 0 {
		return c.JSON(fiber.Map{
			"message":  "No unassigned tasks to allocate",
			"assigned": 0,
		})
	}

	roster, err := alc.teamRoster(teamID)
	if err != nil {
		log.WithError(err).Error("Failed to build roster")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load team members",
		})
	}

	assignees, err := utils.PlanAssignments(roster, len(tasks))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Team has no members to assign tasks to",
		})
	}

	now := time.Now()
	assigned := 0
	failed := 0
	for i := range tasks {
		assignee := assignees[i]
		deadline := utils.BulkTaskDeadline(now, i)
		err := alc.DB.Transaction(func(tx *gorm.DB) error {
			updates := map[string]interface{}{
				"assigned_to": assignee,
				"deadline":    deadline,
			}
			if err := tx.Model(&tasks[i]).Updates(updates).Error; err != nil {
				return err
			}
			audit := models.TaskAssignment{
				TaskID:     tasks[i].ID,
				AssignedTo: assignee,
				AssignedBy: user.ID,
			}
			return tx.Create(&audit).Error
		})
		if err != nil {
			log.WithError(err).WithField("task_id", tasks[i].ID).Warn("⚠️ Failed to assign task, skipping")
			failed++
			continue
		}
		assigned++
	}

	log.WithFields(logrus.Fields{
		"assigned": assigned,
		"failed":   failed,
	}).Info("✅ Task allocation complete")

	Board.Publish(BoardEvent{Type: "tasks_allocated", TeamID: teamID, Data: fiber.Map{"assigned": assigned}})

	return c.JSON(fiber.Map{
		"assigned": assigned,
		"failed":   failed,
	})
}

// AssignSubtasks handles POST /api/teams/:teamId/assign-subtasks: every
// unassigned, not-completed subtask across the team's tasks gets an
// assignee, spread evenly over the roster.
func (alc *AllocateController) AssignSubtasks(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	teamID := c.Locals("teamID").(uint)

	log := alc.Logger.WithFields(logrus.Fields{
		"team_id": teamID,
		"user_id": user.ID,
	})

	var subtasks []models.Subtask
	if err := alc.DB.
		Joins("JOIN tasks ON tasks.id = subtasks.task_id").
		Where("tasks.team_id = ? AND subtasks.assigned_to IS NULL AND subtasks.is_completed = ?", teamID, false).
		Order("subtasks.task_id, subtasks.position, subtasks.id").
		Find(&subtasks).Error; err != nil {
		log.WithError(err).Error("Failed to load unassigned subtasks")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load subtasks",
		})
	}

	if len(subtasks) == 0 {
		return c.JSON(fiber.Map{
			"message":  "No unassigned subtasks to assign",
			"assigned": 0,
		})
	}

	roster, err := alc.teamRoster(teamID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load team members",
		})
	}

	assignees, err := utils.PlanAssignments(roster, len(subtasks))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Team has no members to assign subtasks to",
		})
	}

	assigned := 0
	failed := 0
	for i := range subtasks {
		assignee := assignees[i]
		err := alc.DB.Transaction(func(tx *gorm.DB) error {
			if err := tx.Model(&subtasks[i]).Update("assigned_to", assignee).Error; err != nil {
				return err
			}
			audit := models.SubtaskAssignment{
				SubtaskID:  subtasks[i].ID,
				AssignedTo: assignee,
				AssignedBy: user.ID,
			}
			return tx.Create(&audit).Error
		})
		if err != nil {
			log.WithError(err).WithField("subtask_id", subtasks[i].ID).Warn("⚠️ Failed to assign subtask, skipping")
			failed++
			continue
		}
		assigned++
	}

	log.WithFields(logrus.Fields{
		"assigned": assigned,
		"failed":   failed,
	}).Info("✅ Subtask assignment complete")

	Board.Publish(BoardEvent{Type: "subtasks_assigned", TeamID: teamID, Data: fiber.Map{"assigned": assigned}})

	return c.JSON(fiber.Map{
		"assigned": assigned,
		"failed":   failed,
	})
}
