package service

import (
	"context"
	"errors"
	"fmt"
	"learnhub_backend/internal/model"
	"learnhub_backend/internal/repository"
	"learnhub_backend/internal/util"
	"learnhub_backend/pkg/logger"
	"math"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type LessonService struct {
	LessonRepo *repository.LessonRepository
	CourseRepo *repository.CourseRepository
	Storage    *StorageService
	DB         *gorm.DB
}

func NewLessonService(
	lessonRepo *repository.LessonRepository,
	courseRepo *repository.CourseRepository,
	storage *StorageService,
	db *gorm.DB,
) *LessonService {
	return &LessonService{
		LessonRepo: lessonRepo,
		CourseRepo: courseRepo,
		Storage:    storage,
		DB:         db,
	}
}

type LessonRequest struct {
	CourseID  uint             `json:"courseId" binding:"required"`
	Title     string           `json:"title" binding:"required"`
	Type      model.LessonType `json:"type"`
	Content   string           `json:"content"`
	Order     int              `json:"order"`
	IsPreview bool             `json:"isPreview"`
}

func (s *LessonService) Create(actor *util.Claims, req LessonRequest) (*model.Lesson, error) {
	if _, err := s.requireCourseOwnership(req.CourseID, actor); err != nil {
		return nil, err
	}

	lesson := &model.Lesson{
		CourseID:  req.CourseID,
		Title:     req.Title,
		Type:      req.Type,
		Content:   req.Content,
		Order:     req.Order,
		IsPreview: req.IsPreview,
	}
	if lesson.Type == "" {
		lesson.Type = model.TextLesson
	}

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := s.LessonRepo.Create(tx, lesson); err != nil {
			return err
		}
		return s.CourseRepo.RefreshLessonCount(tx, req.CourseID)
	})
	if err != nil {
		return nil, err
	}
	return lesson, nil
}

func (s *LessonService) Get(id uint) (*model.Lesson, error) {
	lesson, err := s.LessonRepo.FindByID(id)
	if err == gorm.ErrRecordNotFound {
		return nil, util.ErrLessonNotFound
	}
	return lesson, err
}

func (s *LessonService) Update(id uint, actor *util.Claims, req LessonRequest) (*model.Lesson, error) {
	lesson, err := s.LessonRepo.FindByID(id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, util.ErrLessonNotFound
		}
		return nil, err
	}

	if _, err := s.requireCourseOwnership(lesson.CourseID, actor); err != nil {
		return nil, err
	}

	lesson.Title = req.Title
	if req.Type != "" {
		lesson.Type = req.Type
	}
	lesson.Content = req.Content
	lesson.Order = req.Order
	lesson.IsPreview = req.IsPreview

	if err := s.LessonRepo.Save(lesson); err != nil {
		return nil, err
	}
	return lesson, nil
}

func (s *LessonService) Delete(id uint, actor *util.Claims) error {
	lesson, err := s.LessonRepo.FindByID(id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return util.ErrLessonNotFound
		}
		return err
	}

	if _, err := s.requireCourseOwnership(lesson.CourseID, actor); err != nil {
		return err
	}

	return s.DB.Transaction(func(tx *gorm.DB) error {
		if err := s.LessonRepo.Delete(tx, id); err != nil {
			return err
		}
		return s.CourseRepo.RefreshLessonCount(tx, lesson.CourseID)
	})
}

// AttachVideo 上传课时视频：先落临时文件探测时长，再交给存储后端
func (s *LessonService) AttachVideo(id uint, actor *util.Claims, file *multipart.FileHeader) (*model.Lesson, error) {
	lesson, err := s.LessonRepo.FindByID(id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, util.ErrLessonNotFound
		}
		return nil, err
	}

	if _, err := s.requireCourseOwnership(lesson.CourseID, actor); err != nil {
		return nil, err
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !util.IsAllowedVideoExtension(ext) {
		return nil, errors.New("不支持的视频格式: " + ext)
	}

	src, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer src.Close()

	mimeType, err := util.ValidateMimeType(src, []string{util.MimeVideo})
	if err != nil {
		return nil, err
	}
	if _, err := src.Seek(0, 0); err != nil {
		return nil, err
	}
	tmp, err := os.CreateTemp("", "lesson-video-*"+ext)
	if err != nil {
		return nil, err
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	if _, err := tmp.ReadFrom(src); err != nil {
		return nil, err
	}

	info, err := util.ProbeVideo(tmp.Name())
	if err != nil {
		// 探测失败不阻塞上传，时长留 0
		logger.Log.Warn("video probe failed", zap.Uint("lessonId", id), zap.Error(err))
		info = &util.VideoInfo{}
	}

	objectName := fmt.Sprintf("lessons/%d/%d%s", lesson.CourseID, time.Now().UnixNano(), ext)
	url, err := s.Storage.UploadFile(context.Background(), objectName, tmp.Name(), mimeType)
	if err != nil {
		return nil, err
	}

	// 从第 1 秒抓帧做缩略图，失败不影响上传
	thumbnailURL := ""
	if info.Duration > 0 {
		thumbPath := tmp.Name() + ".jpg"
		if err := util.GenerateThumbnail(tmp.Name(), thumbPath, "00:00:01"); err != nil {
			logger.Log.Warn("thumbnail generation failed", zap.Uint("lessonId", id), zap.Error(err))
		} else {
			defer os.Remove(thumbPath)
			thumbObject := strings.TrimSuffix(objectName, ext) + ".jpg"
			if u, err := s.Storage.UploadFile(context.Background(), thumbObject, thumbPath, "image/jpeg"); err == nil {
				thumbnailURL = u
			}
		}
	}

	// 替换视频时清理旧文件，失败只告警
	if lesson.VideoURL != "" {
		if old := strings.TrimPrefix(lesson.VideoURL, s.Storage.GetURL("")); old != lesson.VideoURL {
			if err := s.Storage.Delete(context.Background(), old); err != nil {
				logger.Log.Warn("failed to remove previous video", zap.Uint("lessonId", id), zap.Error(err))
			}
		}
	}

	lesson.Type = model.VideoLesson
	lesson.VideoURL = url
	if thumbnailURL != "" {
		lesson.ThumbnailURL = thumbnailURL
	}
	lesson.VideoDuration = int(math.Round(info.Duration))

	if err := s.LessonRepo.Save(lesson); err != nil {
		return nil, err
	}
	return lesson, nil
}

func (s *LessonService) requireCourseOwnership(courseID uint, actor *util.Claims) (*model.Course, error) {
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
