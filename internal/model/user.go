package model

import "time"

const (
	RoleStudent = "student"
	RoleTeacher = "teacher"
	RoleAdmin   = "admin"
)

// User is the profile record managed by the identity service. Only the
// fields needed for restriction checks and result listings are mapped.
type User struct {
	ID         uint      `gorm:"primarykey" json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email" gorm:"uniqueIndex"`
	Role       string    `json:"role" gorm:"size:16"`
	Class      string    `json:"class,omitempty"`
	Semester   string    `json:"semester,omitempty"`
	Batch      string    `json:"batch,omitempty"`
	Department string    `json:"department,omitempty"`
	RollNumber string    `json:"roll_number,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Actor is the authenticated caller of a request.
type Actor struct {
	UserID uint
	Role   string
}

func (a Actor) IsStudent() bool { return a.Role == RoleStudent }
func (a Actor) IsAdmin() bool   { return a.Role == RoleAdmin }
