package controller

import (
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"taskforge/models"
	"taskforge/utils"
)

type TeamController struct {
	DB     *gorm.DB
	Logger *log.Logger
}

func NewTeamController(db *gorm.DB, logger *log.Logger) *TeamController {
	return &TeamController{
		DB:     db,
		Logger: logger,
	}
}

func (tc *TeamController) CreateTeam(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var input struct {
		Name      string            `json:"name" validate:"required,min=2,max=100"`
		TechStack *models.TechStack `json:"tech_stack"`
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

	team := models.Team{
		Name:      input.Name,
		TechStack: input.TechStack,
		CreatedBy: user.ID,
	}

	err := tc.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&team).Error; err != nil {
			return err
		}
		member := models.TeamMember{
			TeamID:   team.ID,
			UserID:   user.ID,
			Role:     "owner",
			JoinedAt: time.Now(),
		}
		return tx.Create(&member).Error
	})
	if err != nil {
		tc.Logger.Printf("Failed to create team: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create team",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"team": team})
}

// GetTeams lists the teams the authenticated user belongs to.
func (tc *TeamController) GetTeams(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var teams []models.Team
	if err := tc.DB.
		Joins("JOIN team_members ON team_members.team_id = teams.id").
		Where("team_members.user_id = ?", user.ID).
		Order("teams.created_at").
		Find(&teams).Error; err != nil {
		tc.Logger.Printf("Failed to list teams: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch teams",
		})
	}

	return c.JSON(fiber.Map{"teams": teams})
}

func (tc *TeamController) GetTeam(c *fiber.Ctx) error {
	teamID := c.Locals("teamID").(uint)

	var team models.Team
	if err := tc.DB.First(&team, teamID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Team not found",
		})
	}

	return c.JSON(fiber.Map{"team": team})
}

// UpdateTeam updates the team name and/or tech stack. The tech stack is
// replaced wholesale when present, matching how the stack editor submits it.
func (tc *TeamController) UpdateTeam(c *fiber.Ctx) error {
	teamID := c.Locals("teamID").(uint)

	var input struct {
		Name      *string           `json:"name"`
		TechStack *models.TechStack `json:"tech_stack"`
	}

	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	var team models.Team
	if err := tc.DB.First(&team, teamID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Team not found",
		})
	}

	if input.Name != nil {
		team.Name = *input.Name
	}
	if input.TechStack != nil {
		team.TechStack = input.TechStack
	}

	if err := tc.DB.Save(&team).Error; err != nil {
		tc.Logger.Printf("Failed to update team %d: %v", teamID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to update team",
		})
	}

	return c.JSON(fiber.Map{"team": team})
}

func (tc *TeamController) DeleteTeam(c *fiber.Ctx) error {
	teamID := c.Locals("teamID").(uint)
	membership := c.Locals("membership").(*models.TeamMember)

	if membership.Role != "owner" {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Only the team owner can delete the team",
		})
	}

	err := tc.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("task_id IN (?)",
			tx.Model(&models.Task{}).Select("id").Where("team_id = ?", teamID),
		).Delete(&models.Subtask{}).Error; err != nil {
			return err
		}
		for _, m := range []interface{}{
			&models.Task{}, &models.TeamGoal{}, &models.TeamInvite{}, &models.TeamMember{},
		} {
			if err := tx.Where("team_id = ?", teamID).Delete(m).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&models.Team{}, teamID).Error
	})
	if err != nil {
		tc.Logger.Printf("Failed to delete team %d: %v", teamID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to delete team",
		})
	}

	return c.JSON(fiber.Map{"message": "Team deleted"})
}

// GetGoals lists the goal history for a team, newest first.
func (tc *TeamController) GetGoals(c *fiber.Ctx) error {
	teamID := c.Locals("teamID").(uint)

	var goals []models.TeamGoal
	if err := tc.DB.Where("team_id = ?", teamID).
		Order("created_at DESC").Find(&goals).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch goals",
		})
	}

	return c.JSON(fiber.Map{"goals": goals})
}
