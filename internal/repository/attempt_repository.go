package repository

import (
	"learnhub_backend/internal/model"

	"gorm.io/gorm"
)

type AttemptRepository struct {
	DB *gorm.DB
}

func NewAttemptRepository(db *gorm.DB) *AttemptRepository {
	return &AttemptRepository{DB: db}
}

// Create 事务内落库，答案明细随提交一起写入
func (r *AttemptRepository) Create(tx *gorm.DB, attempt *model.QuizAttempt) error {
	return tx.Create(attempt).Error
}

// CountByUserAndQuiz 事务内取当前次数，attempt number 单调递增
func (r *AttemptRepository) CountByUserAndQuiz(tx *gorm.DB, userID, quizID uint) (int64, error) {
	var count int64
	err := tx.Model(&model.QuizAttempt{}).
		Where("user_id = ? AND quiz_id = ?", userID, quizID).
		Count(&count).Error
	return count, err
}

func (r *AttemptRepository) FindByID(id string) (*model.QuizAttempt, error) {
	var attempt model.QuizAttempt
	err := r.DB.Preload("Answers").Where("id = ?", id).First(&attempt).Error
	return &attempt, err
}

func (r *AttemptRepository) ListByUserAndQuiz(userID, quizID uint) ([]model.QuizAttempt, error) {
	var attempts []model.QuizAttempt
	err := r.DB.Where("user_id = ? AND quiz_id = ?", userID, quizID).
		Order("attempt_number asc").
		Find(&attempts).Error
	return attempts, err
}

func (r *AttemptRepository) HasPassed(userID, quizID uint) (bool, error) {
	var count int64
	err := r.DB.Model(&model.QuizAttempt{}).
		Where("user_id = ? AND quiz_id = ? AND passed = ?", userID, quizID, true).
		Count(&count).Error
	return count > 0, err
}

func (r *AttemptRepository) ListByQuiz(quizID uint, page, limit int) ([]model.QuizAttempt, int64, error) {
	var attempts []model.QuizAttempt
	var total int64

	query := r.DB.Model(&model.QuizAttempt{}).Where("quiz_id = ?", quizID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	err := query.Order("submitted_at desc").Offset(offset).Limit(limit).Find(&attempts).Error
	return attempts, total, err
}

func (r *AttemptRepository) ListPendingReview(quizID uint) ([]model.QuizAttempt, error) {
	var attempts []model.QuizAttempt
	err := r.DB.Preload("Answers").
		Where("quiz_id = ? AND needs_review = ?", quizID, true).
		Order("submitted_at asc").
		Find(&attempts).Error
	return attempts, err
}

func (r *AttemptRepository) Save(tx *gorm.DB, attempt *model.QuizAttempt) error {
	return tx.Save(attempt).Error
}

func (r *AttemptRepository) SaveAnswer(tx *gorm.DB, answer *model.QuizAttemptAnswer) error {
	return tx.Save(answer).Error
}
