package service

import (
	"path/filepath"
	"testing"

	"learnhub_backend/internal/model"
	"learnhub_backend/internal/repository"
	"learnhub_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestProgressPercent(t *testing.T) {
	cases := []struct {
		name      string
		completed int
		total     int
		want      int
	}{
		{"未开始", 0, 10, 0},
		{"过半", 5, 10, 50},
		{"全部完成", 10, 10, 100},
		{"三分之一四舍五入", 1, 3, 33},
		{"三分之二四舍五入", 2, 3, 67},
		{"零课时课程", 0, 0, 0},
		{"总数为负", 3, -1, 0},
		{"完成数超过总数时封顶", 12, 10, 100},
		{"完成数为负时归零", -2, 10, 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ProgressPercent(tc.completed, tc.total))
		})
	}
}

func newProgressTestService(t *testing.T) *ProgressService {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "progress.db")), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&model.Course{},
		&model.Lesson{},
		&model.Enrollment{},
		&model.CourseProgress{},
		&model.LessonProgress{},
	))

	return NewProgressService(
		repository.NewProgressRepository(db),
		repository.NewLessonRepository(db),
		repository.NewCourseRepository(db),
		repository.NewEnrollmentRepository(db),
		db,
	)
}

// 建一门两课时的课并报名，返回第一课时的 ID
func seedEnrolledCourse(t *testing.T, s *ProgressService, userID uint, status model.EnrollmentStatus) uint {
	t.Helper()

	course := &model.Course{Title: "Go 并发编程", IsPublished: true, LessonCount: 2}
	require.NoError(t, s.DB.Create(course).Error)

	lessons := []model.Lesson{
		{CourseID: course.ID, Title: "goroutine 基础", Type: model.TextLesson, Order: 1},
		{CourseID: course.ID, Title: "channel 进阶", Type: model.TextLesson, Order: 2},
	}
	require.NoError(t, s.DB.Create(&lessons).Error)

	enrollment := &model.Enrollment{UserID: userID, CourseID: course.ID, Status: status}
	require.NoError(t, s.DB.Create(enrollment).Error)

	return lessons[0].ID
}

func TestCompleteLessonIdempotent(t *testing.T) {
	s := newProgressTestService(t)
	lessonID := seedEnrolledCourse(t, s, 1, model.EnrollmentActive)

	first, err := s.CompleteLesson(1, lessonID, CompleteLessonRequest{TimeSpentSeconds: 60})
	require.NoError(t, err)
	assert.Equal(t, 1, first.CompletedLessons)
	assert.Equal(t, 50, first.ProgressPercent)

	// 重复完成：标志不回退、完成数不重复计、时长继续累加
	second, err := s.CompleteLesson(1, lessonID, CompleteLessonRequest{TimeSpentSeconds: 30})
	require.NoError(t, err)
	assert.Equal(t, 1, second.CompletedLessons)
	assert.Equal(t, 50, second.ProgressPercent)
	assert.Equal(t, 90, second.TimeSpentSeconds)

	progress, err := s.ProgressRepo.FindLessonProgress(1, lessonID)
	require.NoError(t, err)
	assert.True(t, progress.Completed)
	assert.NotNil(t, progress.CompletedAt)
	assert.Equal(t, 90, progress.TimeSpentSeconds)
}

func TestDroppedEnrollmentBlocksProgress(t *testing.T) {
	s := newProgressTestService(t)
	lessonID := seedEnrolledCourse(t, s, 1, model.EnrollmentDropped)

	_, err := s.StartLesson(1, lessonID)
	assert.ErrorIs(t, err, util.ErrNotEnrolled)

	_, err = s.CompleteLesson(1, lessonID, CompleteLessonRequest{TimeSpentSeconds: 60})
	assert.ErrorIs(t, err, util.ErrNotEnrolled)
}

func TestSyncQuizScoreDoesNotCountAttempt(t *testing.T) {
	s := newProgressTestService(t)
	lessonID := seedEnrolledCourse(t, s, 1, model.EnrollmentActive)

	var lesson model.Lesson
	require.NoError(t, s.DB.First(&lesson, lessonID).Error)

	// 正常提交算一次作答
	require.NoError(t, s.RecordQuizResult(1, &lesson, 40, false, 120))

	progress, err := s.ProgressRepo.FindLessonProgress(1, lessonID)
	require.NoError(t, err)
	assert.Equal(t, 1, progress.AttemptCount)
	assert.Equal(t, 40, progress.BestScore)

	// 复核改分只同步成绩，作答次数不变
	require.NoError(t, s.SyncQuizScore(1, &lesson, 80, true))

	progress, err = s.ProgressRepo.FindLessonProgress(1, lessonID)
	require.NoError(t, err)
	assert.Equal(t, 1, progress.AttemptCount)
	assert.Equal(t, 80, progress.BestScore)
	assert.Equal(t, 80, progress.LatestScore)
	assert.True(t, progress.Completed)
}
