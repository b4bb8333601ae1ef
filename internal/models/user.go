package models

import "time"

// Role is the school affiliation of a user.
type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
)

// Major values for students.
const (
	MajorSoftware = "software"
	MajorDesign   = "design"
	MajorWeb      = "web"
)

// User is the identity record owned by the account subsystem. The OAuth core
// only reads it.
type User struct {
	ID           uint   `gorm:"primaryKey;autoIncrement"       json:"id"`
	Email        string `gorm:"uniqueIndex;not null"            json:"email"`
	Nickname     string `gorm:"uniqueIndex;not null"            json:"nickname"`
	PasswordHash string `gorm:"not null"                        json:"-"`
	Role         Role   `gorm:"not null;default:'student'"      json:"role"`
	Major        string `gorm:"not null;default:'software'"     json:"major"`
	Generation   *int   `json:"generation"`
	Admission    *int   `json:"admission"`
	IsGraduated  *bool  `json:"isGraduated"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (User) TableName() string {
	return "users"
}
