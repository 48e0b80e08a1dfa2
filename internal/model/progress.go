package model

import "time"

// CourseProgress 每个（用户，课程）一条；完成集合只增不减
// swagger:model CourseProgress
type CourseProgress struct {
	BaseModel
	UserID           uint       `gorm:"index:idx_progress_user_course,unique;type:bigint unsigned" json:"userId"`
	CourseID         uint       `gorm:"index:idx_progress_user_course,unique;type:bigint unsigned" json:"courseId"`
	CompletedLessons int        `gorm:"default:0" json:"completedLessons"`
	ProgressPercent  int        `gorm:"default:0" json:"progressPercent"`
	TimeSpentSeconds int        `gorm:"default:0" json:"timeSpentSeconds"`
	StartedAt        time.Time  `json:"startedAt"`
	LastAccessedAt   time.Time  `json:"lastAccessedAt"`
	CompletedAt      *time.Time `json:"completedAt,omitempty"`
}

func (CourseProgress) TableName() string {
	return "course_progress"
}

// LessonProgress 每个（用户，课时）一条
// swagger:model LessonProgress
type LessonProgress struct {
	BaseModel
	UserID   uint `gorm:"index:idx_lesson_progress,unique;type:bigint unsigned" json:"userId"`
	LessonID uint `gorm:"index:idx_lesson_progress,unique;type:bigint unsigned" json:"lessonId"`
	CourseID uint `gorm:"index;type:bigint unsigned" json:"courseId"`
	// 完成标志单向置位，重复调用只累加学习时长
	Completed        bool       `gorm:"default:false" json:"completed"`
	TimeSpentSeconds int        `gorm:"default:0" json:"timeSpentSeconds"`
	BestScore        int        `gorm:"default:0" json:"bestScore"`
	LatestScore      int        `gorm:"default:0" json:"latestScore"`
	AttemptCount     int        `gorm:"default:0" json:"attemptCount"`
	StartedAt        time.Time  `json:"startedAt"`
	CompletedAt      *time.Time `json:"completedAt,omitempty"`
}

func (LessonProgress) TableName() string {
	return "lesson_progress"
}

// OverallProgress 跨课程汇总，仪表盘用
type OverallProgress struct {
	EnrolledCourses  int     `json:"enrolledCourses"`
	CompletedCourses int     `json:"completedCourses"`
	CompletedLessons int     `json:"completedLessons"`
	TimeSpentSeconds int     `json:"timeSpentSeconds"`
	AverageScore     float64 `json:"averageScore"`
}
