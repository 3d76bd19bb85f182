package routes

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"taskforge/config"
	"taskforge/models"
	"taskforge/utils"
)

type noopGen struct{}

func (noopGen) Generate(ctx context.Context, prompt string) (string, error) {
	return "", nil
}

func (noopGen) GenerateStream(ctx context.Context, prompt string, onChunk func(string)) (string, error) {
	return "", nil
}

func newRoutedApp(t *testing.T) (*fiber.App, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.TeamMember{}))

	config.DB = db
	config.AppConfig.EncryptionKey = "routes-test-signing-key"

	app := fiber.New()
	SetupRoutes(app, db, noopGen{})
	return app, db
}

func TestBoardRouteRequiresAuth(t *testing.T) {
	app, _ := newRoutedApp(t)

	resp, err := app.Test(httptest.NewRequest("GET", "/api/v1/board", nil))
	require.NoError(t, err)
	assert.Equal(t, 401, resp.StatusCode)
}

func TestBoardRouteAcceptsAuthenticatedUpgrade(t *testing.T) {
	app, db := newRoutedApp(t)

	user := models.User{Email: "ws@example.com", PasswordHash: "x", IsActive: true}
	require.NoError(t, db.Create(&user).Error)

	access, _, err := utils.GenerateJWTToken(&user)
	require.NoError(t, err)

	// Authenticated but not a websocket handshake: the guard lets it through
	// and the upgrade check rejects it instead of the auth layer
	req := httptest.NewRequest("GET", "/api/v1/board", nil)
	req.Header.Set("Authorization", "Bearer "+access)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUpgradeRequired, resp.StatusCode)
}
