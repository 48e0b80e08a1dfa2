package model

import (
	"encoding/json"
	"time"
)

// QuizAttempt 一次完整的测验提交
// swagger:model QuizAttempt
type QuizAttempt struct {
	UUIDBase
	QuizID        uint   `gorm:"index:idx_attempt_user_quiz;type:bigint unsigned" json:"quizId"`
	UserID        uint   `gorm:"index:idx_attempt_user_quiz;type:bigint unsigned" json:"userId"`
	AttemptNumber int    `gorm:"not null" json:"attemptNumber"`
	ScorePercent  int    `gorm:"default:0" json:"scorePercent"`
	EarnedPoints  int    `gorm:"default:0" json:"earnedPoints"`
	TotalPoints   int    `gorm:"default:0" json:"totalPoints"`
	Passed        bool   `gorm:"default:false" json:"passed"`
	NeedsReview   bool   `gorm:"default:false" json:"needsReview"`
	Status        string `gorm:"size:20;default:'completed'" json:"status"` // completed, pending_review, reviewed
	// 提交时客户端计时器累计的秒数
	TimeSpentSeconds int                 `gorm:"default:0" json:"timeSpentSeconds"`
	SubmittedAt      time.Time           `json:"submittedAt"`
	Answers          []QuizAttemptAnswer `gorm:"foreignKey:AttemptID" json:"answers,omitempty"`
}

func (QuizAttempt) TableName() string {
	return "quiz_attempts"
}

// QuizAttemptAnswer 单题作答记录
// swagger:model QuizAttemptAnswer
type QuizAttemptAnswer struct {
	UUIDBase
	AttemptID  string          `gorm:"index;type:varchar(36)" json:"attemptId"`
	QuestionID uint            `gorm:"index;type:bigint unsigned" json:"questionId"`
	Submitted  json.RawMessage `gorm:"type:json" json:"submitted,omitempty"`
	IsCorrect  bool            `gorm:"default:false" json:"isCorrect"`
	Earned     int             `gorm:"default:0" json:"earned"`
	Possible   int             `gorm:"default:0" json:"possible"`
	// 主观题等待人工复核
	PendingReview bool `gorm:"default:false" json:"pendingReview"`
}

func (QuizAttemptAnswer) TableName() string {
	return "quiz_attempt_answers"
}
