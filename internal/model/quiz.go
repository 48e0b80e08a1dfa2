package model

import "encoding/json"

type QuestionType string

const (
	SingleChoice   QuestionType = "single_choice"
	MultipleChoice QuestionType = "multiple_choice"
	TrueFalse      QuestionType = "true_false"
	ShortText      QuestionType = "short_text"
	LongText       QuestionType = "long_text"
	Matching       QuestionType = "matching"
)

// swagger:model Quiz
type Quiz struct {
	BaseModel
	LessonID uint   `gorm:"uniqueIndex;type:bigint unsigned" json:"lessonId"`
	Title    string `gorm:"size:255;not null" json:"title"`
	// 通过分数线（百分比）
	PassingScore     int            `gorm:"default:70" json:"passingScore"`
	AllowMultiple    bool           `gorm:"default:true" json:"allowMultipleAttempts"`
	RandomizeOrder   bool           `gorm:"default:false" json:"randomizeQuestions"`
	ShowAnswers      bool           `gorm:"default:false" json:"showCorrectAnswers"`
	TimeLimitMinutes int            `gorm:"default:0" json:"timeLimitMinutes"` // 0 表示不限时
	Questions        []QuizQuestion `gorm:"foreignKey:QuizID" json:"questions,omitempty"`
}

func (Quiz) TableName() string {
	return "quizzes"
}

// QuizQuestion 题型作为标签，Options/Answer 按题型解释的 JSON 负载
// swagger:model QuizQuestion
type QuizQuestion struct {
	BaseModel
	QuizID uint         `gorm:"index;type:bigint unsigned" json:"quizId"`
	Type   QuestionType `gorm:"size:50;not null" json:"type"`
	Prompt string       `gorm:"type:text;not null" json:"prompt"`
	// JSON: []QuestionOption（选择题）或 MatchingPayload（匹配题）
	Options json.RawMessage `gorm:"type:json" json:"options,omitempty"`
	// JSON：按题型解释，见 service.QuizEvaluator
	Answer      json.RawMessage `gorm:"type:json" json:"answer,omitempty"`
	Points      int             `gorm:"default:1" json:"points"`
	Order       int             `gorm:"default:0" json:"order"`
	Explanation string          `gorm:"type:text" json:"explanation"`
}

func (QuizQuestion) TableName() string {
	return "quiz_questions"
}

type QuestionOption struct {
	Key  string `json:"key"`
	Text string `json:"text"`
}

// MatchingPayload 匹配题的左右两列
type MatchingPayload struct {
	Left  []QuestionOption `json:"left"`
	Right []QuestionOption `json:"right"`
}
