package service

import (
	"context"
	"encoding/json"
	"fmt"
	"learnhub_backend/internal/model"
	"learnhub_backend/internal/repository"
	"learnhub_backend/internal/util"
	"learnhub_backend/pkg/logger"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const catalogCacheKeyPrefix = "course:catalog:"
const catalogCacheTTL = 5 * time.Minute

type CourseService struct {
	CourseRepo     *repository.CourseRepository
	LessonRepo     *repository.LessonRepository
	EnrollmentRepo *repository.EnrollmentRepository
	Storage        *StorageService
	Redis          *redis.Client
	DB             *gorm.DB
}

func NewCourseService(
	courseRepo *repository.CourseRepository,
	lessonRepo *repository.LessonRepository,
	enrollmentRepo *repository.EnrollmentRepository,
	storage *StorageService,
	rdb *redis.Client,
	db *gorm.DB,
) *CourseService {
	return &CourseService{
		CourseRepo:     courseRepo,
		LessonRepo:     lessonRepo,
		EnrollmentRepo: enrollmentRepo,
		Storage:        storage,
		Redis:          rdb,
		DB:             db,
	}
}

type CourseRequest struct {
	Title       string            `json:"title" binding:"required"`
	Description string            `json:"description"`
	Category    string            `json:"category"`
	Level       model.CourseLevel `json:"level"`
	CoverImage  string            `json:"coverImage"`
}

type CatalogPage struct {
	List  []model.Course `json:"list"`
	Total int64          `json:"total"`
	Page  int            `json:"page"`
	Limit int            `json:"limit"`
}

type CourseDetail struct {
	Course        *model.Course `json:"course"`
	EnrolledCount int64         `json:"enrolledCount"`
}

// ListPublished 课程目录，目录页读多写少，走 Redis 缓存
func (s *CourseService) ListPublished(page, limit int, category string) (*CatalogPage, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 10
	}

	ctx := context.Background()
	key := fmt.Sprintf("%s%d:%d:%s", catalogCacheKeyPrefix, page, limit, category)

	if val, err := s.Redis.Get(ctx, key).Result(); err == nil {
		var cached CatalogPage
		if err := json.Unmarshal([]byte(val), &cached); err == nil {
			return &cached, nil
		}
	}

	courses, total, err := s.CourseRepo.ListPublished(page, limit, category)
	if err != nil {
		return nil, err
	}

	result := &CatalogPage{List: courses, Total: total, Page: page, Limit: limit}

	if data, err := json.Marshal(result); err == nil {
		if err := s.Redis.Set(ctx, key, data, catalogCacheTTL).Err(); err != nil {
			logger.Log.Warn("failed to cache course catalog", zap.Error(err))
		}
	}

	return result, nil
}

// GetDetail 未发布课程只有作者和管理员可见
func (s *CourseService) GetDetail(courseID uint, viewer *util.Claims) (*CourseDetail, error) {
	course, err := s.CourseRepo.FindByIDWithLessons(courseID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, util.ErrCourseNotFound
		}
		return nil, err
	}

	if !course.IsPublished {
		if viewer == nil || (viewer.Role != model.Admin && viewer.UserID != course.InstructorID) {
			return nil, util.ErrCourseNotFound
		}
	}

	enrolled, err := s.EnrollmentRepo.CountByCourse(courseID)
	if err != nil {
		return nil, err
	}

	return &CourseDetail{Course: course, EnrolledCount: enrolled}, nil
}

func (s *CourseService) ListLessons(courseID uint) ([]model.Lesson, error) {
	if _, err := s.CourseRepo.FindByID(courseID); err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, util.ErrCourseNotFound
		}
		return nil, err
	}
	return s.LessonRepo.ListByCourse(courseID)
}

func (s *CourseService) Create(instructorID uint, req CourseRequest) (*model.Course, error) {
	course := &model.Course{
		Title:        req.Title,
		Description:  req.Description,
		Category:     req.Category,
		Level:        req.Level,
		CoverImage:   req.CoverImage,
		InstructorID: instructorID,
	}
	if course.Level == "" {
		course.Level = model.Beginner
	}
	if err := s.CourseRepo.Create(course); err != nil {
		return nil, err
	}
	return course, nil
}

func (s *CourseService) Update(courseID uint, actor *util.Claims, req CourseRequest) (*model.Course, error) {
	course, err := s.requireOwnership(courseID, actor)
	if err != nil {
		return nil, err
	}

	course.Title = req.Title
	course.Description = req.Description
	course.Category = req.Category
	course.Level = req.Level
	course.CoverImage = req.CoverImage

	if err := s.CourseRepo.Save(course); err != nil {
		return nil, err
	}
	s.invalidateCatalog()
	return course, nil
}

func (s *CourseService) Publish(courseID uint, actor *util.Claims) (*model.Course, error) {
	course, err := s.requireOwnership(courseID, actor)
	if err != nil {
		return nil, err
	}

	if !course.IsPublished {
		course.IsPublished = true
		now := time.Now()
		course.PublishedAt = &now
		if err := s.CourseRepo.Save(course); err != nil {
			return nil, err
		}
		s.invalidateCatalog()
	}
	return course, nil
}

func (s *CourseService) Delete(courseID uint, actor *util.Claims) error {
	if _, err := s.requireOwnership(courseID, actor); err != nil {
		return err
	}
	if err := s.CourseRepo.Delete(courseID); err != nil {
		return err
	}
	s.invalidateCatalog()
	return nil
}

// UploadCover 上传课程封面图，替换旧封面时清理存储中的旧文件
func (s *CourseService) UploadCover(courseID uint, actor *util.Claims, file *multipart.FileHeader) (*model.Course, error) {
	course, err := s.requireOwnership(courseID, actor)
	if err != nil {
		return nil, err
	}

	src, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer src.Close()

	mimeType, err := util.ValidateMimeType(src, []string{util.MimeImage})
	if err != nil {
		return nil, err
	}
	if _, err := src.Seek(0, 0); err != nil {
		return nil, err
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	objectName := fmt.Sprintf("covers/%d/%d%s", courseID, time.Now().UnixNano(), ext)

	url, err := s.Storage.Upload(context.Background(), objectName, src, file.Size, mimeType)
	if err != nil {
		return nil, err
	}

	if course.CoverImage != "" {
		if old := strings.TrimPrefix(course.CoverImage, s.Storage.GetURL("")); old != course.CoverImage {
			if err := s.Storage.Delete(context.Background(), old); err != nil {
				logger.Log.Warn("failed to remove previous cover", zap.Uint("courseId", courseID), zap.Error(err))
			}
		}
	}

	course.CoverImage = url
	if err := s.CourseRepo.Save(course); err != nil {
		return nil, err
	}
	s.invalidateCatalog()
	return course, nil
}

func (s *CourseService) ListMine(instructorID uint) ([]model.Course, error) {
	return s.CourseRepo.ListByInstructor(instructorID)
}

func (s *CourseService) requireOwnership(courseID uint, actor *util.Claims) (*model.Course, error) {
	course, err := s.CourseRepo.FindByID(courseID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, util.ErrCourseNotFound
		}
		return nil, err
	}
	if actor.Role != model.Admin && course.InstructorID != actor.UserID {
		return nil, util.ErrPermissionDenied
	}
	return course, nil
}

// invalidateCatalog 目录缓存按前缀批量失效
func (s *CourseService) invalidateCatalog() {
	ctx := context.Background()
	iter := s.Redis.Scan(ctx, 0, catalogCacheKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := s.Redis.Del(ctx, iter.Val()).Err(); err != nil {
			logger.Log.Warn("failed to invalidate catalog cache", zap.String("key", iter.Val()), zap.Error(err))
		}
	}
	if err := iter.Err(); err != nil {
		logger.Log.Warn("catalog cache scan failed", zap.Error(err))
	}
}
