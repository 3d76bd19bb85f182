package controller

import (
	"context"
	"io"
	"strconv"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"taskforge/models"
)

// newTestDB opens a fresh in-memory database with the full schema.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	// A pooled second connection would see its own empty in-memory database
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.RefreshToken{},
		&models.Team{},
		&models.TeamMember{},
		&models.TeamInvite{},
		&models.TeamGoal{},
		&models.Task{},
		&models.Subtask{},
		&models.TaskAssignment{},
		&models.SubtaskAssignment{},
	))
	return db
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// seedTeam creates a team with n members and returns the team plus the
// creating user. Members join one hour apart so the roster order is fixed.
func seedTeam(t *testing.T, db *gorm.DB, n int) (*models.Team, []models.User) {
	t.Helper()

	var users []models.User
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	team := &models.Team{Name: "test-team-" + time.Now().Format("150405.000000000"), CreatedBy: 1}

	for i := 0; i < n; i++ {
		u := models.User{
			Email:        "member" + string(rune('a'+i)) + "@example.com",
			PasswordHash: "x",
			IsActive:     true,
		}
		require.NoError(t, db.Create(&u).Error)
		users = append(users, u)
	}

	if n > 0 {
		team.CreatedBy = users[0].ID
	}
	require.NoError(t, db.Create(team).Error)

	for i, u := range users {
		role := "member"
		if i == 0 {
			role = "owner"
		}
		m := models.TeamMember{
			TeamID:   team.ID,
			UserID:   u.ID,
			Role:     role,
			JoinedAt: base.Add(time.Duration(i) * time.Hour),
		}
		require.NoError(t, db.Create(&m).Error)
	}
	return team, users
}

// newTestApp builds a fiber app that injects the auth locals the real JWT
// and membership middleware would set.
func newTestApp(user *models.User, teamID uint) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("user", user)
		c.Locals("userID", user.ID)
		c.Locals("teamID", teamID)
		c.Locals("membership", &models.TeamMember{TeamID: teamID, UserID: user.ID, Role: "owner"})
		return c.Next()
	})
	return app
}

// stubGen is a canned model client for controller tests.
type stubGen struct {
	response string
	err      error
}

func (s *stubGen) Generate(ctx context.Context, prompt string) (string, error) {
	return s.response, s.err
}

func (s *stubGen) GenerateStream(ctx context.Context, prompt string, onChunk func(string)) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	onChunk(s.response)
	return s.response, nil
}
