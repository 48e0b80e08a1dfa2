package model

import "time"

type EnrollmentStatus string

const (
	EnrollmentActive    EnrollmentStatus = "active"
	EnrollmentCompleted EnrollmentStatus = "completed"
	EnrollmentDropped   EnrollmentStatus = "dropped"
)

// swagger:model Enrollment
type Enrollment struct {
	BaseModel
	UserID     uint             `gorm:"index:idx_user_course,unique;type:bigint unsigned" json:"userId"`
	CourseID   uint             `gorm:"index:idx_user_course,unique;type:bigint unsigned" json:"courseId"`
	Course     *Course          `gorm:"foreignKey:CourseID" json:"course,omitempty"`
	Status     EnrollmentStatus `gorm:"type:varchar(20);default:'active'" json:"status"`
	EnrolledAt time.Time        `json:"enrolledAt"`
}

func (Enrollment) TableName() string {
	return "enrollments"
}
