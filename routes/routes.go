package routes

import (
	"log"
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/websocket/v2"
	"gorm.io/gorm"

	"taskforge/ai"
	controller "taskforge/controllers"
	"taskforge/middleware"
	"taskforge/utils"
)

func SetupAuthRoutes(app *fiber.App, db *gorm.DB) {
	authLogger := log.New(os.Stdout, "AUTH: ", log.Ldate|log.Ltime|log.Lshortfile)
	authController := controller.NewAuthController(db, authLogger)

	// Auth routes group with logging middleware
	auth := app.Group("/auth", logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	// Public auth endpoints (no authentication required)
	auth.Post("/register", authController.Register)
	auth.Post("/login", authController.Login)
	auth.Post("/refresh", authController.Refresh)

	// Protected auth endpoints (require valid JWT)
	protectedAuth := auth.Group("", middleware.Protected())
	protectedAuth.Get("/me", authController.Me)

	authLogger.Println("Authentication routes initialized successfully")
}

func SetupAPIRoutes(app *fiber.App, db *gorm.DB, gen ai.Generator) {
	teamController := controller.NewTeamController(db, log.New(os.Stdout, "TEAM: ", log.LstdFlags))
	memberController := controller.NewMemberController(db, log.New(os.Stdout, "MEMBER: ", log.LstdFlags))
	taskController := controller.NewTaskController(db, log.New(os.Stdout, "TASK: ", log.LstdFlags))
	subtaskController := controller.NewSubtaskController(db, log.New(os.Stdout, "SUBTASK: ", log.LstdFlags))

	generateController := controller.NewGenerateController(db, gen, utils.Log)
	subtaskGenController := controller.NewSubtaskGenerateController(db, gen, utils.Log)
	chatController := controller.NewChatController(db, gen, utils.Log)
	tagController := controller.NewTagController(db, gen, utils.Log)
	allocateController := controller.NewAllocateController(db, utils.Log)

	// API group with versioning and protection
	api := app.Group("/api/v1", middleware.Protected(), logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	// Team routes
	api.Post("/teams", teamController.CreateTeam)
	api.Get("/teams", teamController.GetTeams)
	api.Post("/invites/accept", memberController.AcceptInvite)

	team := api.Group("/teams/:teamId", middleware.RequireTeamMember())
	team.Get("/", teamController.GetTeam)
	team.Put("/", teamController.UpdateTeam)
	team.Delete("/", teamController.DeleteTeam)
	team.Get("/goals", teamController.GetGoals)

	// Member routes
	team.Get("/members", memberController.ListMembers)
	team.Post("/members/invite", memberController.InviteMember)
	team.Put("/members/:userId/role", memberController.UpdateRole)
	team.Delete("/members/:userId", memberController.RemoveMember)

	// Task routes
	team.Get("/tasks", taskController.GetTasks)
	team.Post("/tasks", taskController.CreateTask)
	team.Put("/tasks/:taskId", taskController.UpdateTask)
	team.Delete("/tasks/:taskId", taskController.DeleteTask)

	// Subtask routes
	team.Get("/tasks/:taskId/subtasks", subtaskController.GetSubtasks)
	team.Post("/tasks/:taskId/subtasks", subtaskController.CreateSubtask)
	team.Put("/tasks/:taskId/subtasks/:subtaskId", subtaskController.UpdateSubtask)
	team.Delete("/tasks/:taskId/subtasks/:subtaskId", subtaskController.DeleteSubtask)
	team.Get("/subtasks", subtaskController.GetTeamSubtasks)

	// Generation routes with rate limiting
	generate := team.Group("", middleware.GenerateRateLimiter())
	generate.Post("/generate-tasks", generateController.GenerateTasks)
	generate.Post("/tasks/:taskId/generate-subtasks", subtaskGenController.GenerateSubtasks)
	generate.Post("/stack-chat", chatController.Chat)
	generate.Post("/tasks/:taskId/auto-tag", tagController.TagTask)
	generate.Put("/auto-tag-tasks", tagController.AutoTagTasks)

	team.Post("/stack-suggestions", chatController.ApplySuggestions)

	// Allocation routes
	team.Post("/allocate-tasks", allocateController.AllocateTasks)
	team.Post("/assign-subtasks", allocateController.AssignSubtasks)

	// WebSocket route for live board updates, behind the same JWT guard as
	// the rest of the API; membership is checked on the subscribe message
	app.Get("/api/v1/board", middleware.Protected(), websocket.New(func(c *websocket.Conn) {
		controller.HandleBoardWS(db, c)
	}))

	log.Println("API routes initialized successfully")
}

func SetupRoutes(app *fiber.App, db *gorm.DB, gen ai.Generator) {
	// Setup health check endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	SetupAuthRoutes(app, db)
	SetupAPIRoutes(app, db, gen)

	// Setup 404 handler
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":   "Not Found",
			"message": "The requested resource was not found",
		})
	})
}
