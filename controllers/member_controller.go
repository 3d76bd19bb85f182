package controller

import (
	"log"
	"strings"
	"time"

	"github.com/badoux/checkmail"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"taskforge/models"
	"taskforge/utils"
)

type MemberController struct {
	DB     *gorm.DB
	Logger *log.Logger
}

func NewMemberController(db *gorm.DB, logger *log.Logger) *MemberController {
	return &MemberController{
		DB:     db,
		Logger: logger,
	}
}

type memberProfile struct {
	UserID   uint      `json:"user_id"`
	Email    string    `json:"email"`
	Name     *string   `json:"name"`
	Field    *string   `json:"field"`
	Role     string    `json:"role"`
	JoinedAt time.Time `json:"joined_at"`
}

// ListMembers returns the team roster with user profiles, in join order.
func (mc *MemberController) ListMembers(c *fiber.Ctx) error {
	teamID := c.Locals("teamID").(uint)

	var profiles []memberProfile
	if err := mc.DB.Model(&models.TeamMember{}).
		Select("team_members.user_id, users.email, users.name, users.field, team_members.role, team_members.joined_at").
		Joins("JOIN users ON users.id = team_members.user_id").
		Where("team_members.team_id = ?", teamID).
		Order("team_members.joined_at, team_members.user_id").
		Scan(&profiles).Error; err != nil {
		mc.Logger.Printf("Failed to list members for team %d: %v", teamID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch team members",
		})
	}

	return c.JSON(fiber.Map{"members": profiles})
}

// InviteMember creates a pending invitation and emails the link. Existing
// users get added immediately once they accept; unknown addresses can
// register first and then accept with the same token.
func (mc *MemberController) InviteMember(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	teamID := c.Locals("teamID").(uint)
	membership := c.Locals("membership").(*models.TeamMember)

	if membership.Role != "owner" && membership.Role != "admin" {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Only team owners and admins can invite members",
		})
	}

	var input struct {
		Email string `json:"email" validate:"required,email"`
		Role  string `json:"role" validate:"omitempty,oneof=member admin"`
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

	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	if err := checkmail.ValidateFormat(input.Email); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid email address",
		})
	}
	if input.Role == "" {
		input.Role = "member"
	}

	// Already a member?
	var existingMember models.TeamMember
	if err := mc.DB.
		Joins("JOIN users ON users.id = team_members.user_id").
		Where("team_members.team_id = ? AND users.email = ?", teamID, input.Email).
		First(&existingMember).Error; err == nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "This user is already a team member",
		})
	}

	var team models.Team
	if err := mc.DB.First(&team, teamID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Team not found",
		})
	}

	invite := models.TeamInvite{
		TeamID:    teamID,
		Email:     input.Email,
		Role:      input.Role,
		Token:     uuid.NewString(),
		InvitedBy: user.ID,
		ExpiresAt: time.Now().Add(7 * 24 * time.Hour),
	}

	if err := mc.DB.Create(&invite).Error; err != nil {
		mc.Logger.Printf("Failed to create invite: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create invitation",
		})
	}

	if err := utils.SendTeamInvite(input.Email, team.Name, user.DisplayName(), invite.Token); err != nil {
		mc.Logger.Printf("Failed to send invite email to %s: %v", input.Email, err)
		// Invite still stands; the token can be shared out of band.
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Invitation sent",
		"invite": fiber.Map{
			"email":      invite.Email,
			"role":       invite.Role,
			"expires_at": invite.ExpiresAt,
		},
	})
}

// AcceptInvite consumes an invitation token for the authenticated user.
func (mc *MemberController) AcceptInvite(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var input struct {
		Token string `json:"token" validate:"required"`
	}

	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	var invite models.TeamInvite
	if err := mc.DB.Where("token = ? AND accepted_at IS NULL AND expires_at > ?",
		input.Token, time.Now()).First(&invite).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Invitation not found or expired",
		})
	}

	if !strings.EqualFold(invite.Email, user.Email) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "This invitation was sent to a different email address",
		})
	}

	err := mc.DB.Transaction(func(tx *gorm.DB) error {
		member := models.TeamMember{
			TeamID:   invite.TeamID,
			UserID:   user.ID,
			Role:     invite.Role,
			JoinedAt: time.Now(),
		}
		if err := tx.Create(&member).Error; err != nil {
			return err
		}
		now := time.Now()
		invite.AcceptedAt = &now
		return tx.Save(&invite).Error
	})
	if err != nil {
		mc.Logger.Printf("Failed to accept invite: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to join team",
		})
	}

	return c.JSON(fiber.Map{
		"message": "Joined team",
		"team_id": invite.TeamID,
	})
}

func (mc *MemberController) UpdateRole(c *fiber.Ctx) error {
	teamID := c.Locals("teamID").(uint)
	membership := c.Locals("membership").(*models.TeamMember)

	if membership.Role != "owner" {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Only the team owner can change roles",
		})
	}

	memberID, ok := utils.ParseUint(c.Params("userId"))
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid user ID",
		})
	}

	var input struct {
		Role string `json:"role" validate:"required,oneof=member admin"`
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

	var target models.TeamMember
	if err := mc.DB.Where("team_id = ? AND user_id = ?", teamID, memberID).
		First(&target).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Member not found",
		})
	}

	if target.Role == "owner" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "The owner role cannot be changed",
		})
	}

	target.Role = input.Role
	if err := mc.DB.Save(&target).Error; err != nil {
		mc.Logger.Printf("Failed to update role: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to update role",
		})
	}

	return c.JSON(fiber.Map{"message": "Role updated"})
}

// RemoveMember drops a member from the team and unassigns their open work
// so the allocation counters stay honest.
func (mc *MemberController) RemoveMember(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	teamID := c.Locals("teamID").(uint)
	membership := c.Locals("membership").(*models.TeamMember)

	memberID, ok := utils.ParseUint(c.Params("userId"))
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid user ID",
		})
	}

	// Members may remove themselves; otherwise owner/admin only.
	if memberID != user.ID && membership.Role != "owner" && membership.Role != "admin" {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Only team owners and admins can remove members",
		})
	}

	var target models.TeamMember
	if err := mc.DB.Where("team_id = ? AND user_id = ?", teamID, memberID).
		First(&target).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Member not found",
		})
	}

	if target.Role == "owner" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "The team owner cannot be removed",
		})
	}

	err := mc.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Task{}).
			Where("team_id = ? AND assigned_to = ?", teamID, memberID).
			Update("assigned_to", nil).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Subtask{}).
			Where("assigned_to = ? AND task_id IN (?)", memberID,
				tx.Model(&models.Task{}).Select("id").Where("team_id = ?", teamID)).
			Update("assigned_to", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&target).Error
	})
	if err != nil {
		mc.Logger.Printf("Failed to remove member %d from team %d: %v", memberID, teamID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to remove member",
		})
	}

	return c.JSON(fiber.Map{"message": "Member removed"})
}
