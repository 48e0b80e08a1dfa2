package service

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"learnhub_backend/internal/model"
	"learnhub_backend/internal/repository"
	"learnhub_backend/internal/util"
	"learnhub_backend/pkg/logger"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newEnrollmentGateService(t *testing.T) (*QuizService, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "quiz.db")), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.Enrollment{}))

	s := &QuizService{EnrollmentRepo: repository.NewEnrollmentRepository(db)}
	return s, db
}

func TestRequireEnrollment(t *testing.T) {
	s, db := newEnrollmentGateService(t)

	require.NoError(t, db.Create(&model.Enrollment{UserID: 1, CourseID: 10, Status: model.EnrollmentActive}).Error)
	require.NoError(t, db.Create(&model.Enrollment{UserID: 2, CourseID: 10, Status: model.EnrollmentDropped}).Error)

	assert.NoError(t, s.requireEnrollment(1, 10))

	// 退课后行还在，但不能再取题/交卷
	assert.ErrorIs(t, s.requireEnrollment(2, 10), util.ErrNotEnrolled)

	// 从未报名
	assert.ErrorIs(t, s.requireEnrollment(3, 10), util.ErrNotEnrolled)
}

func TestGetQuizForLessonAnswerVisibility(t *testing.T) {
	logger.Log = zap.NewNop()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "quiz.db")), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&model.Lesson{},
		&model.Enrollment{},
		&model.Quiz{},
		&model.QuizQuestion{},
		&model.QuizAttempt{},
	))

	s := &QuizService{
		QuizRepo:       repository.NewQuizRepository(db),
		AttemptRepo:    repository.NewAttemptRepository(db),
		LessonRepo:     repository.NewLessonRepository(db),
		EnrollmentRepo: repository.NewEnrollmentRepository(db),
		// 指向不存在的实例即可，缓存未命中直接回源
		Redis: redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"}),
		DB:    db,
	}

	lesson := &model.Lesson{CourseID: 10, Title: "接口与组合", Type: model.QuizLesson}
	require.NoError(t, db.Create(lesson).Error)

	quiz := &model.Quiz{
		LessonID:     lesson.ID,
		Title:        "接口测验",
		PassingScore: 60,
		ShowAnswers:  true,
		Questions: []model.QuizQuestion{{
			Type:        model.SingleChoice,
			Prompt:      "空接口能装什么？",
			Answer:      json.RawMessage(`"b"`),
			Points:      10,
			Explanation: "interface{} 可持有任意类型的值",
		}},
	}
	require.NoError(t, db.Create(quiz).Error)

	require.NoError(t, db.Create(&model.Enrollment{UserID: 1, CourseID: 10, Status: model.EnrollmentActive}).Error)
	require.NoError(t, db.Create(&model.Enrollment{UserID: 2, CourseID: 10, Status: model.EnrollmentActive}).Error)
	require.NoError(t, db.Create(&model.QuizAttempt{QuizID: quiz.ID, UserID: 1, AttemptNumber: 1, ScorePercent: 100, Passed: true}).Error)

	// 已通过的学生能看到答案和解析
	view, err := s.GetQuizForLesson(1, lesson.ID)
	require.NoError(t, err)
	require.Len(t, view.Questions, 1)
	assert.JSONEq(t, `"b"`, string(view.Questions[0].Answer))
	assert.NotEmpty(t, view.Questions[0].Explanation)

	// 还没通过的学生拿到的是剥掉答案的视图
	view, err = s.GetQuizForLesson(2, lesson.ID)
	require.NoError(t, err)
	require.Len(t, view.Questions, 1)
	assert.Nil(t, view.Questions[0].Answer)
	assert.Empty(t, view.Questions[0].Explanation)
}
