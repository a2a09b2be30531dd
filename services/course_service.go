// services/course_service.go
package services

import (
	"errors"
	"log"
	"time"

	"skillchain/models"
	"skillchain/utils"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

type CourseService struct {
	DB       *gorm.DB
	validate *validator.Validate
}

func NewCourseService(db *gorm.DB) *CourseService {
	return &CourseService{DB: db, validate: validator.New()}
}

// CreateCourse creates a new course (admin only)
func (s *CourseService) CreateCourse(c *fiber.Ctx) error {
	var req struct {
		Title       string   `json:"title" validate:"required,min=3"`
		Description string   `json:"description" validate:"required"`
		SkillTag    string   `json:"skillTag" validate:"required"`
		Level       string   `json:"level" validate:"required,oneof=Beginner Intermediate Advanced"`
		Lessons     []string `json:"lessons"`
	}

	if err := c.BodyParser(&req); err != nil {
		return utils.Fail(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if err := s.validate.Struct(req); err != nil {
		return utils.Fail(c, fiber.StatusBadRequest, "Invalid course payload: "+err.Error())
	}

	course := &models.Course{
		ID:          uuid.NewString(),
		Title:       req.Title,
		Slug:        slug.Make(req.Title),
		Description: req.Description,
		SkillTag:    req.SkillTag,
		Level:       models.CourseLevel(req.Level),
		Lessons:     req.Lessons,
		CreatedAt:   time.Now().UTC(),
	}

	if err := s.DB.Create(course).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return utils.Fail(c, fiber.StatusConflict, "A course with this title already exists")
		}
		log.Printf("DB Error creating course: %v", err)
		return utils.Fail(c, fiber.StatusInternalServerError, "Failed to create course")
	}

	return utils.Success(c, fiber.StatusCreated, course)
}

// GetAllCourses lists every course
func (s *CourseService) GetAllCourses(c *fiber.Ctx) error {
	var courses []models.Course
	if err := s.DB.Order("created_at ASC").Find(&courses).Error; err != nil {
		log.Printf("DB Error listing courses: %v", err)
		return utils.Fail(c, fiber.StatusInternalServerError, "Failed to fetch courses")
	}
	return utils.Success(c, fiber.StatusOK, courses)
}

// GetCourseByID fetches a single course
func (s *CourseService) GetCourseByID(c *fiber.Ctx) error {
	var course models.Course
	if err := s.DB.First(&course, "id = ?", c.Params("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.Fail(c, fiber.StatusNotFound, "Course not found")
		}
		log.Printf("DB Error fetching course: %v", err)
		return utils.Fail(c, fiber.StatusInternalServerError, "Failed to fetch course")
	}
	return utils.Success(c, fiber.StatusOK, course)
}
