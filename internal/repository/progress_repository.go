package repository

import (
	"learnhub_backend/internal/model"

	"gorm.io/gorm"
)

type ProgressRepository struct {
	DB *gorm.DB
}

func NewProgressRepository(db *gorm.DB) *ProgressRepository {
	return &ProgressRepository{DB: db}
}

func (r *ProgressRepository) FindCourseProgress(userID, courseID uint) (*model.CourseProgress, error) {
	var progress model.CourseProgress
	err := r.DB.Where("user_id = ? AND course_id = ?", userID, courseID).
		First(&progress).Error
	return &progress, err
}

func (r *ProgressRepository) CreateCourseProgress(progress *model.CourseProgress) error {
	return r.DB.Create(progress).Error
}

func (r *ProgressRepository) SaveCourseProgress(tx *gorm.DB, progress *model.CourseProgress) error {
	return tx.Save(progress).Error
}

func (r *ProgressRepository) FindLessonProgress(userID, lessonID uint) (*model.LessonProgress, error) {
	var progress model.LessonProgress
	err := r.DB.Where("user_id = ? AND lesson_id = ?", userID, lessonID).
		First(&progress).Error
	return &progress, err
}

func (r *ProgressRepository) CreateLessonProgress(progress *model.LessonProgress) error {
	return r.DB.Create(progress).Error
}

func (r *ProgressRepository) SaveLessonProgress(tx *gorm.DB, progress *model.LessonProgress) error {
	return tx.Save(progress).Error
}

func (r *ProgressRepository) ListLessonProgress(userID, courseID uint) ([]model.LessonProgress, error) {
	var rows []model.LessonProgress
	err := r.DB.Where("user_id = ? AND course_id = ?", userID, courseID).
		Find(&rows).Error
	return rows, err
}

// CountCompletedLessons 事务内统计已完成课时数，完成百分比重算用
func (r *ProgressRepository) CountCompletedLessons(tx *gorm.DB, userID, courseID uint) (int64, error) {
	var count int64
	err := tx.Model(&model.LessonProgress{}).
		Where("user_id = ? AND course_id = ? AND completed = ?", userID, courseID, true).
		Count(&count).Error
	return count, err
}

func (r *ProgressRepository) GetOverallProgress(userID uint) (*model.OverallProgress, error) {
	var enrolled int64
	err := r.DB.Model(&model.Enrollment{}).
		Where("user_id = ? AND status <> ?", userID, model.EnrollmentDropped).
		Count(&enrolled).Error
	if err != nil {
		return nil, err
	}

	var completedCourses int64
	err = r.DB.Model(&model.CourseProgress{}).
		Where("user_id = ? AND completed_at IS NOT NULL", userID).
		Count(&completedCourses).Error
	if err != nil {
		return nil, err
	}

	var completedLessons int64
	err = r.DB.Model(&model.LessonProgress{}).
		Where("user_id = ? AND completed = ?", userID, true).
		Count(&completedLessons).Error
	if err != nil {
		return nil, err
	}

	var timeSpent int64
	err = r.DB.Model(&model.CourseProgress{}).
		Where("user_id = ?", userID).
		Select("COALESCE(SUM(time_spent_seconds), 0)").
		Scan(&timeSpent).Error
	if err != nil {
		return nil, err
	}

	var averageScore float64
	err = r.DB.Model(&model.QuizAttempt{}).
		Where("user_id = ?", userID).
		Select("COALESCE(AVG(score_percent), 0)").
		Scan(&averageScore).Error
	if err != nil {
		return nil, err
	}

	return &model.OverallProgress{
		EnrolledCourses:  int(enrolled),
		CompletedCourses: int(completedCourses),
		CompletedLessons: int(completedLessons),
		TimeSpentSeconds: int(timeSpent),
		AverageScore:     averageScore,
	}, nil
}
