// handlers/gamification_routes.go
package handlers

import (
	"strconv"

	"learning-gamification-system/middleware"
	"learning-gamification-system/models"
	"learning-gamification-system/services"

	"github.com/gofiber/fiber/v2"
)

// SetupGamificationRoutes exposes the engine's read side to UI/profile
// collaborators and the write/sweep surface to admins. The gateway forwards
// paths like /api/v1/gamification/s/user/stats -> /user/stats.
func SetupGamificationRoutes(
	app *fiber.App,
	points *services.PointsService,
	levels *services.LevelService,
	achievements *services.AchievementService,
	challenges *services.ChallengeService,
	processor *services.ChallengeProcessor,
) {
	securedGroup := app.Group("/", middleware.UserContextMiddleware())

	securedGroup.Get("/user/stats", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		stat, err := points.GetOrCreateStats(userID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to load stats",
				"cause": err.Error(),
			})
		}
		return c.JSON(stat)
	})

	securedGroup.Get("/user/points/history", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		page, _ := strconv.Atoi(c.Query("page", "1"))
		size, _ := strconv.Atoi(c.Query("size", "20"))

		history, err := points.GetPointsHistory(userID, page, size, c.Query("source_type"), c.Query("reason"))
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to get points history",
				"cause": err.Error(),
			})
		}
		return c.JSON(history)
	})

	securedGroup.Get("/user/achievements", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		stat, err := points.GetOrCreateStats(userID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to load stats",
				"cause": err.Error(),
			})
		}
		summary, err := achievements.GetAchievements(stat.TotalXP, stat.GlobalLevel)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to compute achievements",
				"cause": err.Error(),
			})
		}
		return c.JSON(summary)
	})

	securedGroup.Get("/user/challenges", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		assignments, err := challenges.GetUserChallenges(userID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to get challenges",
				"cause": err.Error(),
			})
		}
		return c.JSON(assignments)
	})

	securedGroup.Get("/user/challenges/completed", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		limit, _ := strconv.Atoi(c.Query("limit", "20"))

		completions, err := challenges.GetCompletedChallenges(userID, limit)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to get completed challenges",
				"cause": err.Error(),
			})
		}
		return c.JSON(completions)
	})

	securedGroup.Get("/challenges/:id", func(c *fiber.Ctx) error {
		ch, err := challenges.GetActiveChallenge(c.Params("id"))
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to get challenge",
				"cause": err.Error(),
			})
		}
		if ch == nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "challenge not found or not active",
			})
		}
		return c.JSON(ch)
	})

	// Admin endpoints
	adminGroup := app.Group("/s/admin", middleware.UserContextMiddleware())

	adminGroup.Post("/xp/grant", func(c *fiber.Ctx) error {
		type Req struct {
			UserID        string `json:"user_id" validate:"required,uuid"`
			Points        int64  `json:"points" validate:"required,min=1"`
			Reason        string `json:"reason" validate:"required,max=64"`
			SourceType    string `json:"source_type"`
			SourceID      string `json:"source_id"`
			Description   string `json:"description"`
			AllowMultiple *bool  `json:"allow_multiple"`
		}
		var req Req
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid JSON",
				"cause": err.Error(),
			})
		}

		allowMultiple := true
		if req.AllowMultiple != nil {
			allowMultiple = *req.AllowMultiple
		}
		entry, err := points.AwardXP(req.UserID, req.Points, req.Reason, &services.AwardOptions{
			SourceType:    req.SourceType,
			SourceID:      req.SourceID,
			Description:   req.Description,
			AllowMultiple: allowMultiple,
		})
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "XP award failed",
				"cause": err.Error(),
			})
		}
		if entry == nil {
			return c.JSON(fiber.Map{"message": "no points awarded"})
		}
		return c.JSON(fiber.Map{
			"message": "XP granted successfully",
			"point":   entry,
		})
	})

	adminGroup.Post("/challenges", func(c *fiber.Ctx) error {
		var ch models.Challenge
		if err := c.BodyParser(&ch); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid JSON",
				"cause": err.Error(),
			})
		}
		if ch.Title == "" || ch.Type == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "title and type are required",
			})
		}
		if err := challenges.CreateChallenge(&ch); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to create challenge",
				"cause": err.Error(),
			})
		}
		return c.Status(fiber.StatusCreated).JSON(ch)
	})

	// Manual sweep trigger — same code paths the scheduler runs.
	adminGroup.Post("/challenges/sweep/:kind", func(c *fiber.Ctx) error {
		var (
			count int
			err   error
		)
		switch c.Params("kind") {
		case "daily":
			count, err = processor.AssignDailyChallenges()
		case "weekly":
			count, err = processor.AssignWeeklyChallenges()
		case "expire":
			count, err = processor.ExpireOverdueChallenges()
		default:
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "unknown sweep kind — use daily, weekly or expire",
			})
		}
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "sweep failed",
				"cause": err.Error(),
			})
		}
		return c.JSON(fiber.Map{"count": count})
	})

	adminGroup.Post("/levels/invalidate-cache", func(c *fiber.Ctx) error {
		levels.InvalidateCache()
		return c.JSON(fiber.Map{"message": "level config cache invalidated"})
	})
}
