package service

import (
	"encoding/json"
	"testing"

	"learnhub_backend/internal/config"
	"learnhub_backend/internal/model"

	"github.com/stretchr/testify/assert"
)

func newTestEvaluator() *QuizEvaluator {
	return NewQuizEvaluator(&config.QuizConfig{
		ShortTextCaseSensitive:  false,
		ShortTextTrimWhitespace: true,
	})
}

func question(id uint, qType model.QuestionType, answer string, points int) model.QuizQuestion {
	return model.QuizQuestion{
		BaseModel: model.BaseModel{ID: id},
		Type:      qType,
		Prompt:    "q",
		Answer:    json.RawMessage(answer),
		Points:    points,
	}
}

func TestEvaluateSingleChoice(t *testing.T) {
	quiz := &model.Quiz{
		PassingScore: 70,
		Questions: []model.QuizQuestion{
			question(1, model.SingleChoice, `"b"`, 5),
		},
	}
	e := newTestEvaluator()

	result := e.Evaluate(quiz, map[uint]json.RawMessage{1: json.RawMessage(`"b"`)})
	assert.Equal(t, 5, result.EarnedPoints)
	assert.Equal(t, 5, result.TotalPoints)
	assert.Equal(t, 100, result.ScorePercent)
	assert.True(t, result.Passed)

	result = e.Evaluate(quiz, map[uint]json.RawMessage{1: json.RawMessage(`"c"`)})
	assert.Equal(t, 0, result.EarnedPoints)
	assert.Equal(t, 0, result.ScorePercent)
	assert.False(t, result.Passed)
}

func TestEvaluatePartialScoreBelowPassingLine(t *testing.T) {
	quiz := &model.Quiz{
		PassingScore: 70,
		Questions: []model.QuizQuestion{
			question(1, model.SingleChoice, `"a"`, 5),
			question(2, model.SingleChoice, `"b"`, 5),
		},
	}

	result := newTestEvaluator().Evaluate(quiz, map[uint]json.RawMessage{
		1: json.RawMessage(`"a"`),
		2: json.RawMessage(`"x"`),
	})

	assert.Equal(t, 5, result.EarnedPoints)
	assert.Equal(t, 10, result.TotalPoints)
	assert.Equal(t, 50, result.ScorePercent)
	assert.False(t, result.Passed)
}

func TestEvaluateMultipleChoiceSetEquality(t *testing.T) {
	quiz := &model.Quiz{
		PassingScore: 70,
		Questions: []model.QuizQuestion{
			question(1, model.MultipleChoice, `["python","java"]`, 4),
		},
	}
	e := newTestEvaluator()

	cases := []struct {
		name      string
		submitted string
		correct   bool
	}{
		{"顺序无关", `["java","python"]`, true},
		{"漏选", `["python"]`, false},
		{"多选", `["python","java","go"]`, false},
		{"重复选项不补足数量", `["python","python"]`, false},
		{"空作答", `[]`, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result := e.Evaluate(quiz, map[uint]json.RawMessage{1: json.RawMessage(tc.submitted)})
			assert.Equal(t, tc.correct, result.Questions[0].Correct)
		})
	}
}

func TestEvaluateTrueFalse(t *testing.T) {
	quiz := &model.Quiz{
		PassingScore: 50,
		Questions: []model.QuizQuestion{
			question(1, model.TrueFalse, `true`, 2),
		},
	}
	e := newTestEvaluator()

	result := e.Evaluate(quiz, map[uint]json.RawMessage{1: json.RawMessage(`true`)})
	assert.True(t, result.Questions[0].Correct)

	// 前端序列化成字符串也能识别
	result = e.Evaluate(quiz, map[uint]json.RawMessage{1: json.RawMessage(`"true"`)})
	assert.True(t, result.Questions[0].Correct)

	result = e.Evaluate(quiz, map[uint]json.RawMessage{1: json.RawMessage(`false`)})
	assert.False(t, result.Questions[0].Correct)
}

func TestEvaluateShortTextNormalization(t *testing.T) {
	quiz := &model.Quiz{
		PassingScore: 100,
		Questions: []model.QuizQuestion{
			question(1, model.ShortText, `"Goroutine"`, 3),
		},
	}

	insensitive := newTestEvaluator()
	result := insensitive.Evaluate(quiz, map[uint]json.RawMessage{1: json.RawMessage(`"  goroutine "`)})
	assert.True(t, result.Passed)

	sensitive := NewQuizEvaluator(&config.QuizConfig{
		ShortTextCaseSensitive:  true,
		ShortTextTrimWhitespace: true,
	})
	result = sensitive.Evaluate(quiz, map[uint]json.RawMessage{1: json.RawMessage(`"goroutine"`)})
	assert.False(t, result.Passed)

	result = sensitive.Evaluate(quiz, map[uint]json.RawMessage{1: json.RawMessage(`"Goroutine"`)})
	assert.True(t, result.Passed)
}

func TestEvaluateShortTextAcceptedVariants(t *testing.T) {
	quiz := &model.Quiz{
		PassingScore: 100,
		Questions: []model.QuizQuestion{
			question(1, model.ShortText, `["concurrency","并发"]`, 1),
		},
	}
	e := newTestEvaluator()

	result := e.Evaluate(quiz, map[uint]json.RawMessage{1: json.RawMessage(`"并发"`)})
	assert.True(t, result.Passed)

	result = e.Evaluate(quiz, map[uint]json.RawMessage{1: json.RawMessage(`"CONCURRENCY"`)})
	assert.True(t, result.Passed)
}

func TestEvaluateMatching(t *testing.T) {
	quiz := &model.Quiz{
		PassingScore: 100,
		Questions: []model.QuizQuestion{
			question(1, model.Matching, `{"go":"gopher","rust":"crab"}`, 6),
		},
	}
	e := newTestEvaluator()

	result := e.Evaluate(quiz, map[uint]json.RawMessage{
		1: json.RawMessage(`{"rust":"crab","go":"gopher"}`),
	})
	assert.True(t, result.Passed)

	result = e.Evaluate(quiz, map[uint]json.RawMessage{
		1: json.RawMessage(`{"go":"crab","rust":"gopher"}`),
	})
	assert.False(t, result.Passed)

	result = e.Evaluate(quiz, map[uint]json.RawMessage{
		1: json.RawMessage(`{"go":"gopher"}`),
	})
	assert.False(t, result.Passed)
}

func TestEvaluateLongTextPendingReview(t *testing.T) {
	quiz := &model.Quiz{
		PassingScore: 70,
		Questions: []model.QuizQuestion{
			question(1, model.SingleChoice, `"a"`, 5),
			question(2, model.LongText, `null`, 5),
		},
	}

	result := newTestEvaluator().Evaluate(quiz, map[uint]json.RawMessage{
		1: json.RawMessage(`"a"`),
		2: json.RawMessage(`"my essay about channels"`),
	})

	// 主观题占总分但自动判分阶段不得分
	assert.Equal(t, 5, result.EarnedPoints)
	assert.Equal(t, 10, result.TotalPoints)
	assert.Equal(t, 50, result.ScorePercent)
	assert.True(t, result.NeedsReview)
	assert.True(t, result.Questions[1].PendingReview)
	assert.Equal(t, 0, result.Questions[1].Earned)
}

func TestEvaluateUnansweredAndMalformed(t *testing.T) {
	quiz := &model.Quiz{
		PassingScore: 70,
		Questions: []model.QuizQuestion{
			question(1, model.SingleChoice, `"a"`, 5),
			question(2, model.MultipleChoice, `["x","y"]`, 5),
		},
	}

	// 缺答 + 非法 JSON 负载，都按 0 分处理，不报错
	result := newTestEvaluator().Evaluate(quiz, map[uint]json.RawMessage{
		2: json.RawMessage(`{not json`),
	})

	assert.Equal(t, 0, result.EarnedPoints)
	assert.Equal(t, 10, result.TotalPoints)
	assert.False(t, result.Passed)
	assert.False(t, result.Questions[0].Correct)
	assert.False(t, result.Questions[1].Correct)
}

func TestEvaluateEmptyQuizIsFullMarks(t *testing.T) {
	quiz := &model.Quiz{PassingScore: 70}

	result := newTestEvaluator().Evaluate(quiz, nil)

	assert.Equal(t, 100, result.ScorePercent)
	assert.True(t, result.Passed)
	assert.Empty(t, result.Questions)
}

func TestEvaluateZeroPointQuestionsOnly(t *testing.T) {
	quiz := &model.Quiz{
		PassingScore: 70,
		Questions: []model.QuizQuestion{
			question(1, model.SingleChoice, `"a"`, 0),
		},
	}

	result := newTestEvaluator().Evaluate(quiz, map[uint]json.RawMessage{1: json.RawMessage(`"b"`)})

	// 总分为 0 时约定满分通过
	assert.Equal(t, 100, result.ScorePercent)
	assert.True(t, result.Passed)
}

func TestEvaluateScoreRounding(t *testing.T) {
	quiz := &model.Quiz{
		PassingScore: 67,
		Questions: []model.QuizQuestion{
			question(1, model.SingleChoice, `"a"`, 1),
			question(2, model.SingleChoice, `"a"`, 1),
			question(3, model.SingleChoice, `"a"`, 1),
		},
	}

	// 2/3 ≈ 66.67，四舍五入到 67，恰好压线通过
	result := newTestEvaluator().Evaluate(quiz, map[uint]json.RawMessage{
		1: json.RawMessage(`"a"`),
		2: json.RawMessage(`"a"`),
		3: json.RawMessage(`"b"`),
	})

	assert.Equal(t, 67, result.ScorePercent)
	assert.True(t, result.Passed)
}
