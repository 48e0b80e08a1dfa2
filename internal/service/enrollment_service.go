package service

import (
	"errors"
	"learnhub_backend/internal/model"
	"learnhub_backend/internal/repository"
	"learnhub_backend/internal/util"
	"time"

	"gorm.io/gorm"
)

// EnrollmentService 选课服务
type EnrollmentService struct {
	EnrollmentRepo *repository.EnrollmentRepository
	CourseRepo     *repository.CourseRepository
	ProgressRepo   *repository.ProgressRepository
}

func NewEnrollmentService(
	enrollmentRepo *repository.EnrollmentRepository,
	courseRepo *repository.CourseRepository,
	progressRepo *repository.ProgressRepository,
) *EnrollmentService {
	return &EnrollmentService{
		EnrollmentRepo: enrollmentRepo,
		CourseRepo:     courseRepo,
		ProgressRepo:   progressRepo,
	}
}

// EnrolledCourse 我的课程列表项，附带学习进度
type EnrolledCourse struct {
	Enrollment *model.Enrollment     `json:"enrollment"`
	Progress   *model.CourseProgress `json:"progress,omitempty"`
}

// Enroll 选课。已退课的记录重新激活
func (s *EnrollmentService) Enroll(userID, courseID uint) (*model.Enrollment, error) {
	course, err := s.CourseRepo.FindByID(courseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrCourseNotFound
		}
		return nil, err
	}
	if !course.IsPublished {
		return nil, util.ErrCourseNotPublished
	}

	existing, err := s.EnrollmentRepo.FindByUserAndCourse(userID, courseID)
	if err == nil {
		if existing.Status == model.EnrollmentDropped {
			existing.Status = model.EnrollmentActive
			existing.EnrolledAt = time.Now()
			if err := s.EnrollmentRepo.Save(existing); err != nil {
				return nil, err
			}
			return existing, nil
		}
		return nil, util.ErrAlreadyEnrolled
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	enrollment := &model.Enrollment{
		UserID:     userID,
		CourseID:   courseID,
		Status:     model.EnrollmentActive,
		EnrolledAt: time.Now(),
	}
	if err := s.EnrollmentRepo.Create(enrollment); err != nil {
		return nil, err
	}
	return enrollment, nil
}

// Unenroll 退课。进度记录保留，重新选课后继续累计
func (s *EnrollmentService) Unenroll(userID, courseID uint) error {
	enrollment, err := s.EnrollmentRepo.FindByUserAndCourse(userID, courseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return util.ErrNotEnrolled
		}
		return err
	}
	if enrollment.Status == model.EnrollmentDropped {
		return util.ErrNotEnrolled
	}

	enrollment.Status = model.EnrollmentDropped
	return s.EnrollmentRepo.Save(enrollment)
}

// MyCourses 当前用户已选课程及进度
func (s *EnrollmentService) MyCourses(userID uint) ([]EnrolledCourse, error) {
	enrollments, err := s.EnrollmentRepo.ListByUser(userID)
	if err != nil {
		return nil, err
	}

	result := make([]EnrolledCourse, 0, len(enrollments))
	for i := range enrollments {
		item := EnrolledCourse{Enrollment: &enrollments[i]}
		if progress, err := s.ProgressRepo.FindCourseProgress(userID, enrollments[i].CourseID); err == nil {
			item.Progress = progress
		}
		result = append(result, item)
	}
	return result, nil
}
