package service

import (
	"learnhub_backend/internal/model"
	"learnhub_backend/internal/repository"
	"learnhub_backend/internal/util"
	"learnhub_backend/pkg/monitoring"
	"math"
	"time"

	"gorm.io/gorm"
)

// ProgressService 进度跟踪：开始课时、完成课时、记录测验成绩。
// 所有操作可重复调用：完成标志只增不减，学习时长只累加。
type ProgressService struct {
	ProgressRepo   *repository.ProgressRepository
	LessonRepo     *repository.LessonRepository
	CourseRepo     *repository.CourseRepository
	EnrollmentRepo *repository.EnrollmentRepository
	DB             *gorm.DB
}

func NewProgressService(
	progressRepo *repository.ProgressRepository,
	lessonRepo *repository.LessonRepository,
	courseRepo *repository.CourseRepository,
	enrollmentRepo *repository.EnrollmentRepository,
	db *gorm.DB,
) *ProgressService {
	return &ProgressService{
		ProgressRepo:   progressRepo,
		LessonRepo:     lessonRepo,
		CourseRepo:     courseRepo,
		EnrollmentRepo: enrollmentRepo,
		DB:             db,
	}
}

type CompleteLessonRequest struct {
	TimeSpentSeconds int `json:"timeSpentSeconds"`
	QuizScore        int `json:"quizScore"`
}

type CourseProgressSummary struct {
	Progress *model.CourseProgress  `json:"progress"`
	Lessons  []model.LessonProgress `json:"lessons"`
}

// ProgressPercent 完成百分比，零课时课程约定为 0
func ProgressPercent(completed, total int) int {
	if total <= 0 {
		return 0
	}
	percent := int(math.Round(100 * float64(completed) / float64(total)))
	if percent > 100 {
		percent = 100
	}
	if percent < 0 {
		percent = 0
	}
	return percent
}

// StartLesson 幂等：首次调用建档，之后只刷新访问时间
func (s *ProgressService) StartLesson(userID, lessonID uint) (*model.LessonProgress, error) {
	lesson, err := s.LessonRepo.FindByID(lessonID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, util.ErrLessonNotFound
		}
		return nil, err
	}

	if err := s.requireEnrollment(userID, lesson.CourseID); err != nil {
		return nil, err
	}

	courseProgress, err := s.ensureCourseProgress(userID, lesson.CourseID)
	if err != nil {
		return nil, err
	}

	progress, err := s.ProgressRepo.FindLessonProgress(userID, lessonID)
	if err == gorm.ErrRecordNotFound {
		progress = &model.LessonProgress{
			UserID:    userID,
			LessonID:  lessonID,
			CourseID:  lesson.CourseID,
			StartedAt: time.Now(),
		}
		if err := s.ProgressRepo.CreateLessonProgress(progress); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	}

	courseProgress.LastAccessedAt = time.Now()
	if err := s.ProgressRepo.SaveCourseProgress(s.DB, courseProgress); err != nil {
		return nil, err
	}

	return progress, nil
}

// CompleteLesson 把课时加入完成集合（只增），累加学习时长并重算课程百分比
func (s *ProgressService) CompleteLesson(userID, lessonID uint, req CompleteLessonRequest) (*model.CourseProgress, error) {
	lesson, err := s.LessonRepo.FindByID(lessonID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, util.ErrLessonNotFound
		}
		return nil, err
	}

	if err := s.requireEnrollment(userID, lesson.CourseID); err != nil {
		return nil, err
	}

	courseProgress, err := s.ensureCourseProgress(userID, lesson.CourseID)
	if err != nil {
		return nil, err
	}

	err = s.DB.Transaction(func(tx *gorm.DB) error {
		progress, err := s.ProgressRepo.FindLessonProgress(userID, lessonID)
		if err == gorm.ErrRecordNotFound {
			progress = &model.LessonProgress{
				UserID:    userID,
				LessonID:  lessonID,
				CourseID:  lesson.CourseID,
				StartedAt: time.Now(),
			}
		} else if err != nil {
			return err
		}

		firstCompletion := !progress.Completed
		if firstCompletion {
			progress.Completed = true
			now := time.Now()
			progress.CompletedAt = &now
		}
		progress.TimeSpentSeconds += req.TimeSpentSeconds
		if req.QuizScore > 0 {
			progress.LatestScore = req.QuizScore
			if req.QuizScore > progress.BestScore {
				progress.BestScore = req.QuizScore
			}
		}

		if err := s.ProgressRepo.SaveLessonProgress(tx, progress); err != nil {
			return err
		}

		if err := s.recomputeCourseProgress(tx, courseProgress, req.TimeSpentSeconds); err != nil {
			return err
		}

		if firstCompletion {
			monitoring.LessonsCompleted.Inc()
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return courseProgress, nil
}

// RecordQuizResult 测验提交后更新课时档案：尝试次数、最新/最好成绩；
// 及格的测验课时计为完成
func (s *ProgressService) RecordQuizResult(userID uint, lesson *model.Lesson, scorePercent int, passed bool, timeSpentSeconds int) error {
	return s.applyQuizResult(userID, lesson, scorePercent, passed, timeSpentSeconds, true)
}

// SyncQuizScore 复核改分后只同步成绩，不算新的一次作答
func (s *ProgressService) SyncQuizScore(userID uint, lesson *model.Lesson, scorePercent int, passed bool) error {
	return s.applyQuizResult(userID, lesson, scorePercent, passed, 0, false)
}

func (s *ProgressService) applyQuizResult(userID uint, lesson *model.Lesson, scorePercent int, passed bool, timeSpentSeconds int, newAttempt bool) error {
	courseProgress, err := s.ensureCourseProgress(userID, lesson.CourseID)
	if err != nil {
		return err
	}

	return s.DB.Transaction(func(tx *gorm.DB) error {
		progress, err := s.ProgressRepo.FindLessonProgress(userID, lesson.ID)
		if err == gorm.ErrRecordNotFound {
			progress = &model.LessonProgress{
				UserID:    userID,
				LessonID:  lesson.ID,
				CourseID:  lesson.CourseID,
				StartedAt: time.Now(),
			}
		} else if err != nil {
			return err
		}

		if newAttempt {
			progress.AttemptCount++
		}
		progress.LatestScore = scorePercent
		if scorePercent > progress.BestScore {
			progress.BestScore = scorePercent
		}
		progress.TimeSpentSeconds += timeSpentSeconds

		firstCompletion := false
		if passed && !progress.Completed {
			progress.Completed = true
			now := time.Now()
			progress.CompletedAt = &now
			firstCompletion = true
		}

		if err := s.ProgressRepo.SaveLessonProgress(tx, progress); err != nil {
			return err
		}

		if err := s.recomputeCourseProgress(tx, courseProgress, timeSpentSeconds); err != nil {
			return err
		}

		if firstCompletion {
			monitoring.LessonsCompleted.Inc()
		}
		return nil
	})
}

func (s *ProgressService) GetCourseProgress(userID, courseID uint) (*CourseProgressSummary, error) {
	if err := s.requireEnrollment(userID, courseID); err != nil {
		return nil, err
	}

	progress, err := s.ensureCourseProgress(userID, courseID)
	if err != nil {
		return nil, err
	}

	lessons, err := s.ProgressRepo.ListLessonProgress(userID, courseID)
	if err != nil {
		return nil, err
	}

	return &CourseProgressSummary{
		Progress: progress,
		Lessons:  lessons,
	}, nil
}

func (s *ProgressService) GetOverallProgress(userID uint) (*model.OverallProgress, error) {
	return s.ProgressRepo.GetOverallProgress(userID)
}

func (s *ProgressService) requireEnrollment(userID, courseID uint) error {
	enrollment, err := s.EnrollmentRepo.FindByUserAndCourse(userID, courseID)
	if err == gorm.ErrRecordNotFound {
		return util.ErrNotEnrolled
	}
	if err != nil {
		return err
	}
	// 退课记录只改状态不删行，同样视为未报名
	if enrollment.Status == model.EnrollmentDropped {
		return util.ErrNotEnrolled
	}
	return nil
}

func (s *ProgressService) ensureCourseProgress(userID, courseID uint) (*model.CourseProgress, error) {
	progress, err := s.ProgressRepo.FindCourseProgress(userID, courseID)
	if err == gorm.ErrRecordNotFound {
		now := time.Now()
		progress = &model.CourseProgress{
			UserID:         userID,
			CourseID:       courseID,
			StartedAt:      now,
			LastAccessedAt: now,
		}
		if err := s.ProgressRepo.CreateCourseProgress(progress); err != nil {
			return nil, err
		}
		return progress, nil
	}
	return progress, err
}

// recomputeCourseProgress 以完成课时数重算百分比；达到 100% 时盖完成时间戳，
// 时间戳一旦落下不再回退
func (s *ProgressService) recomputeCourseProgress(tx *gorm.DB, courseProgress *model.CourseProgress, addedSeconds int) error {
	completed, err := s.ProgressRepo.CountCompletedLessons(tx, courseProgress.UserID, courseProgress.CourseID)
	if err != nil {
		return err
	}

	var total int64
	if err := tx.Model(&model.Lesson{}).Where("course_id = ?", courseProgress.CourseID).Count(&total).Error; err != nil {
		return err
	}

	courseProgress.CompletedLessons = int(completed)
	courseProgress.ProgressPercent = ProgressPercent(int(completed), int(total))
	courseProgress.TimeSpentSeconds += addedSeconds
	courseProgress.LastAccessedAt = time.Now()

	if courseProgress.ProgressPercent >= 100 && courseProgress.CompletedAt == nil {
		now := time.Now()
		courseProgress.CompletedAt = &now

		enrollment, err := s.EnrollmentRepo.FindByUserAndCourse(courseProgress.UserID, courseProgress.CourseID)
		if err == nil && enrollment.Status == model.EnrollmentActive {
			enrollment.Status = model.EnrollmentCompleted
			if err := tx.Save(enrollment).Error; err != nil {
				return err
			}
		}
	}

	return s.ProgressRepo.SaveCourseProgress(tx, courseProgress)
}
