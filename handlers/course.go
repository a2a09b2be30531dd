// handlers/course.go
package handlers

import (
	"skillchain/middleware"
	"skillchain/services"

	"github.com/gofiber/fiber/v2"
)

func SetupCourseRoutes(app *fiber.App, courseService *services.CourseService) {
	// 🔓 Public reads
	app.Get("/courses", courseService.GetAllCourses)
	app.Get("/courses/:id", courseService.GetCourseByID)

	// 🔐 Course creation is an administrative action
	app.Post("/courses", middleware.AdminAuthMiddleware(), courseService.CreateCourse)
}
