package model

import "time"

type CourseLevel string

const (
	Beginner     CourseLevel = "beginner"
	Intermediate CourseLevel = "intermediate"
	Advanced     CourseLevel = "advanced"
)

// swagger:model Course
type Course struct {
	BaseModel
	Title        string      `gorm:"size:255;not null" json:"title"`
	Description  string      `gorm:"type:text" json:"description"`
	Category     string      `gorm:"size:100;index" json:"category"`
	Level        CourseLevel `gorm:"type:varchar(20);default:'beginner'" json:"level"`
	CoverImage   string      `gorm:"size:255" json:"coverImage"`
	InstructorID uint        `gorm:"index;type:bigint unsigned" json:"instructorId"`
	Instructor   *User       `gorm:"foreignKey:InstructorID" json:"instructor,omitempty"`
	IsPublished  bool        `gorm:"default:false" json:"isPublished"`
	PublishedAt  *time.Time  `json:"publishedAt,omitempty"`
	// 冗余课时数，进度百分比计算用
	LessonCount int      `gorm:"default:0" json:"lessonCount"`
	Lessons     []Lesson `gorm:"foreignKey:CourseID" json:"lessons,omitempty"`
}

func (Course) TableName() string {
	return "courses"
}

type LessonType string

const (
	VideoLesson LessonType = "video"
	TextLesson  LessonType = "text"
	QuizLesson  LessonType = "quiz"
)

// swagger:model Lesson
type Lesson struct {
	BaseModel
	CourseID uint       `gorm:"index;type:bigint unsigned" json:"courseId"`
	Title    string     `gorm:"size:255;not null" json:"title"`
	Type     LessonType `gorm:"type:varchar(20);default:'text'" json:"type"`
	Content  string     `gorm:"type:text" json:"content"`
	VideoURL     string `gorm:"size:255" json:"videoUrl"`
	ThumbnailURL string `gorm:"size:255" json:"thumbnailUrl"`
	// 视频时长（秒），上传时探测
	VideoDuration int  `gorm:"default:0" json:"videoDuration"`
	Order         int  `gorm:"default:0" json:"order"`
	IsPreview     bool `gorm:"default:false" json:"isPreview"`
}

func (Lesson) TableName() string {
	return "lessons"
}
