package service

import (
	"encoding/json"
	"learnhub_backend/internal/config"
	"learnhub_backend/internal/model"
	"math"
	"strings"
)

// QuizEvaluator 纯计算：不读库、不写库，结果只由题目和作答决定
type QuizEvaluator struct {
	CaseSensitive  bool
	TrimWhitespace bool
}

func NewQuizEvaluator(cfg *config.QuizConfig) *QuizEvaluator {
	return &QuizEvaluator{
		CaseSensitive:  cfg.ShortTextCaseSensitive,
		TrimWhitespace: cfg.ShortTextTrimWhitespace,
	}
}

type QuestionResult struct {
	QuestionID uint `json:"questionId"`
	Correct    bool `json:"correct"`
	Earned     int  `json:"earned"`
	Possible   int  `json:"possible"`
	// 主观题不自动判分，等待人工复核
	PendingReview bool `json:"pendingReview"`
}

type EvaluationResult struct {
	Questions    []QuestionResult `json:"questions"`
	EarnedPoints int              `json:"earnedPoints"`
	TotalPoints  int              `json:"totalPoints"`
	ScorePercent int              `json:"scorePercent"`
	Passed       bool             `json:"passed"`
	NeedsReview  bool             `json:"needsReview"`
}

// Evaluate 对一次提交判分。answers 以题目 ID 为键；缺答或格式非法一律计 0 分，
// 不报错。空测验约定为满分通过，避免除零。
func (e *QuizEvaluator) Evaluate(quiz *model.Quiz, answers map[uint]json.RawMessage) *EvaluationResult {
	result := &EvaluationResult{
		Questions: make([]QuestionResult, 0, len(quiz.Questions)),
	}

	for _, q := range quiz.Questions {
		qr := QuestionResult{
			QuestionID: q.ID,
			Possible:   q.Points,
		}

		submitted, answered := answers[q.ID]

		switch q.Type {
		case model.LongText:
			// 主观题：占总分但不自动得分
			qr.PendingReview = answered && len(submitted) > 0
		default:
			if answered {
				qr.Correct = e.gradeQuestion(&q, submitted)
			}
			if qr.Correct {
				qr.Earned = q.Points
			}
		}

		result.EarnedPoints += qr.Earned
		result.TotalPoints += qr.Possible
		if qr.PendingReview {
			result.NeedsReview = true
		}
		result.Questions = append(result.Questions, qr)
	}

	if result.TotalPoints == 0 {
		result.ScorePercent = 100
	} else {
		result.ScorePercent = int(math.Round(100 * float64(result.EarnedPoints) / float64(result.TotalPoints)))
	}
	result.Passed = result.ScorePercent >= quiz.PassingScore

	return result
}

func (e *QuizEvaluator) gradeQuestion(q *model.QuizQuestion, submitted json.RawMessage) bool {
	switch q.Type {
	case model.SingleChoice:
		return e.gradeSingleChoice(q.Answer, submitted)
	case model.TrueFalse:
		return e.gradeTrueFalse(q.Answer, submitted)
	case model.MultipleChoice:
		return e.gradeMultipleChoice(q.Answer, submitted)
	case model.ShortText:
		return e.gradeShortText(q.Answer, submitted)
	case model.Matching:
		return e.gradeMatching(q.Answer, submitted)
	}
	return false
}

func (e *QuizEvaluator) gradeSingleChoice(correct, submitted json.RawMessage) bool {
	want, ok := decodeString(correct)
	if !ok {
		return false
	}
	got, ok := decodeString(submitted)
	return ok && got == want
}

func (e *QuizEvaluator) gradeTrueFalse(correct, submitted json.RawMessage) bool {
	want, ok := decodeBool(correct)
	if !ok {
		return false
	}
	got, ok := decodeBool(submitted)
	return ok && got == want
}

// gradeMultipleChoice 多选题按集合相等判分，漏选、多选均不得分
func (e *QuizEvaluator) gradeMultipleChoice(correct, submitted json.RawMessage) bool {
	want, ok := decodeStringSet(correct)
	if !ok || len(want) == 0 {
		return false
	}
	got, ok := decodeStringSet(submitted)
	if !ok || len(got) != len(want) {
		return false
	}
	for k := range want {
		if !got[k] {
			return false
		}
	}
	return true
}

func (e *QuizEvaluator) gradeShortText(correct, submitted json.RawMessage) bool {
	accepted, ok := decodeStringSlice(correct)
	if !ok || len(accepted) == 0 {
		return false
	}
	got, ok := decodeString(submitted)
	if !ok {
		return false
	}

	got = e.normalize(got)
	for _, want := range accepted {
		if got == e.normalize(want) {
			return true
		}
	}
	return false
}

// gradeMatching 匹配题按左右配对的结构相等判分
func (e *QuizEvaluator) gradeMatching(correct, submitted json.RawMessage) bool {
	var want, got map[string]string
	if err := json.Unmarshal(correct, &want); err != nil || len(want) == 0 {
		return false
	}
	if err := json.Unmarshal(submitted, &got); err != nil || len(got) != len(want) {
		return false
	}
	for k, v := range want {
		if got[k] != v {
			return false
		}
	}
	return true
}

func (e *QuizEvaluator) normalize(s string) string {
	if e.TrimWhitespace {
		s = strings.TrimSpace(s)
	}
	if !e.CaseSensitive {
		s = strings.ToLower(s)
	}
	return s
}

func decodeString(raw json.RawMessage) (string, bool) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

func decodeBool(raw json.RawMessage) (bool, bool) {
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return b, true
	}
	// 前端有时把布尔值序列化成字符串
	if s, ok := decodeString(raw); ok {
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "true":
			return true, true
		case "false":
			return false, true
		}
	}
	return false, false
}

func decodeStringSlice(raw json.RawMessage) ([]string, bool) {
	var many []string
	if err := json.Unmarshal(raw, &many); err == nil {
		return many, true
	}
	if s, ok := decodeString(raw); ok {
		return []string{s}, true
	}
	return nil, false
}

func decodeStringSet(raw json.RawMessage) (map[string]bool, bool) {
	values, ok := decodeStringSlice(raw)
	if !ok {
		return nil, false
	}
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return set, true
}
