package models

import (
	"time"

	"github.com/lib/pq"
)

// CourseLevel is the difficulty tier shown on certificates
type CourseLevel string

const (
	LevelBeginner     CourseLevel = "Beginner"
	LevelIntermediate CourseLevel = "Intermediate"
	LevelAdvanced     CourseLevel = "Advanced"
)

func (l CourseLevel) Valid() bool {
	switch l {
	case LevelBeginner, LevelIntermediate, LevelAdvanced:
		return true
	}
	return false
}

type Course struct {
	ID          string         `json:"id" gorm:"primaryKey"`
	Title       string         `json:"title" gorm:"not null"`
	Slug        string         `json:"slug" gorm:"uniqueIndex"`
	Description string         `json:"description"`
	SkillTag    string         `json:"skill_tag" gorm:"not null"`
	Level       CourseLevel    `json:"level" gorm:"not null"`
	Lessons     pq.StringArray `json:"lessons" gorm:"type:text[]"`

	CreatedAt time.Time `json:"created_at"`
}
