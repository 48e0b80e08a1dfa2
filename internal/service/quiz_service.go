package service

import (
	"context"
	"encoding/json"
	"fmt"
	"learnhub_backend/internal/config"
	"learnhub_backend/internal/model"
	"learnhub_backend/internal/repository"
	"learnhub_backend/internal/util"
	"learnhub_backend/pkg/logger"
	"learnhub_backend/pkg/monitoring"
	"math"
	"math/rand"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const quizCacheKeyPrefix = "quiz:def:"
const quizCacheTTL = 10 * time.Minute

type QuizService struct {
	QuizRepo        *repository.QuizRepository
	AttemptRepo     *repository.AttemptRepository
	LessonRepo      *repository.LessonRepository
	EnrollmentRepo  *repository.EnrollmentRepository
	ProgressService *ProgressService
	Evaluator       *QuizEvaluator
	Redis           *redis.Client
	DB              *gorm.DB
}

func NewQuizService(
	quizRepo *repository.QuizRepository,
	attemptRepo *repository.AttemptRepository,
	lessonRepo *repository.LessonRepository,
	enrollmentRepo *repository.EnrollmentRepository,
	progressService *ProgressService,
	cfg *config.Config,
	rdb *redis.Client,
	db *gorm.DB,
) *QuizService {
	return &QuizService{
		QuizRepo:        quizRepo,
		AttemptRepo:     attemptRepo,
		LessonRepo:      lessonRepo,
		EnrollmentRepo:  enrollmentRepo,
		ProgressService: progressService,
		Evaluator:       NewQuizEvaluator(&cfg.Quiz),
		Redis:           rdb,
		DB:              db,
	}
}

// StudentQuestion 学生视图。正确答案和解析默认剥掉，
// 测验开了 ShowAnswers 且该学生已通过时才回填
type StudentQuestion struct {
	ID          uint               `json:"id"`
	Type        model.QuestionType `json:"type"`
	Prompt      string             `json:"prompt"`
	Options     json.RawMessage    `json:"options,omitempty"`
	Points      int                `json:"points"`
	Order       int                `json:"order"`
	Answer      json.RawMessage    `json:"answer,omitempty"`
	Explanation string             `json:"explanation,omitempty"`
}

type StudentQuizView struct {
	ID               uint              `json:"id"`
	Title            string            `json:"title"`
	PassingScore     int               `json:"passingScore"`
	AllowMultiple    bool              `json:"allowMultipleAttempts"`
	TimeLimitMinutes int               `json:"timeLimitMinutes"`
	Questions        []StudentQuestion `json:"questions"`
}

type QuizSubmission struct {
	Answers          map[uint]json.RawMessage `json:"answers"`
	TimeSpentSeconds int                      `json:"timeSpentSeconds"`
}

type SubmitResult struct {
	AttemptID     string           `json:"attemptId"`
	AttemptNumber int              `json:"attemptNumber"`
	ScorePercent  int              `json:"scorePercent"`
	EarnedPoints  int              `json:"earnedPoints"`
	TotalPoints   int              `json:"totalPoints"`
	Passed        bool             `json:"passed"`
	NeedsReview   bool             `json:"needsReview"`
	Questions     []QuestionResult `json:"questions,omitempty"`
}

// GetQuizForLesson 学生取题。开了乱序就打乱题目顺序
func (s *QuizService) GetQuizForLesson(userID, lessonID uint) (*StudentQuizView, error) {
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

	quiz, err := s.loadQuiz(lesson.ID)
	if err != nil {
		return nil, err
	}

	revealAnswers := false
	if quiz.ShowAnswers {
		passed, err := s.AttemptRepo.HasPassed(userID, quiz.ID)
		if err != nil {
			return nil, err
		}
		revealAnswers = passed
	}

	view := &StudentQuizView{
		ID:               quiz.ID,
		Title:            quiz.Title,
		PassingScore:     quiz.PassingScore,
		AllowMultiple:    quiz.AllowMultiple,
		TimeLimitMinutes: quiz.TimeLimitMinutes,
		Questions:        make([]StudentQuestion, len(quiz.Questions)),
	}
	for i, q := range quiz.Questions {
		view.Questions[i] = StudentQuestion{
			ID:      q.ID,
			Type:    q.Type,
			Prompt:  q.Prompt,
			Options: q.Options,
			Points:  q.Points,
			Order:   q.Order,
		}
		if revealAnswers {
			view.Questions[i].Answer = q.Answer
			view.Questions[i].Explanation = q.Explanation
		}
	}

	if quiz.RandomizeOrder {
		rand.Shuffle(len(view.Questions), func(i, j int) {
			view.Questions[i], view.Questions[j] = view.Questions[j], view.Questions[i]
		})
	}

	return view, nil
}

// Submit 判分并落一条尝试记录。尝试序号在事务内按已有次数 +1 分配，
// 保证同一（用户，测验）下单调递增
func (s *QuizService) Submit(userID, quizID uint, submission QuizSubmission) (*SubmitResult, error) {
	quiz, err := s.QuizRepo.FindByID(quizID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, util.ErrQuizNotFound
		}
		return nil, err
	}

	lesson, err := s.LessonRepo.FindByID(quiz.LessonID)
	if err != nil {
		return nil, err
	}

	if err := s.requireEnrollment(userID, lesson.CourseID); err != nil {
		return nil, err
	}

	evaluation := s.Evaluator.Evaluate(quiz, submission.Answers)

	attempt := &model.QuizAttempt{
		QuizID:           quizID,
		UserID:           userID,
		ScorePercent:     evaluation.ScorePercent,
		EarnedPoints:     evaluation.EarnedPoints,
		TotalPoints:      evaluation.TotalPoints,
		Passed:           evaluation.Passed,
		NeedsReview:      evaluation.NeedsReview,
		Status:           "completed",
		TimeSpentSeconds: submission.TimeSpentSeconds,
		SubmittedAt:      time.Now(),
	}
	if evaluation.NeedsReview {
		attempt.Status = "pending_review"
	}

	for _, qr := range evaluation.Questions {
		attempt.Answers = append(attempt.Answers, model.QuizAttemptAnswer{
			QuestionID:    qr.QuestionID,
			Submitted:     submission.Answers[qr.QuestionID],
			IsCorrect:     qr.Correct,
			Earned:        qr.Earned,
			Possible:      qr.Possible,
			PendingReview: qr.PendingReview,
		})
	}

	err = s.DB.Transaction(func(tx *gorm.DB) error {
		count, err := s.AttemptRepo.CountByUserAndQuiz(tx, userID, quizID)
		if err != nil {
			return err
		}
		if count > 0 && !quiz.AllowMultiple {
			return util.ErrRetakeNotAllowed
		}
		attempt.AttemptNumber = int(count) + 1
		return s.AttemptRepo.Create(tx, attempt)
	})
	if err != nil {
		return nil, err
	}

	// 进度更新失败不回滚尝试记录：重交或重读都能收敛
	if err := s.ProgressService.RecordQuizResult(userID, lesson, evaluation.ScorePercent, evaluation.Passed, submission.TimeSpentSeconds); err != nil {
		logger.Log.Error("failed to update lesson progress after quiz submit",
			zap.Uint("userId", userID), zap.Uint("quizId", quizID), zap.Error(err))
	}

	outcome := "failed"
	if evaluation.Passed {
		outcome = "passed"
	}
	monitoring.QuizSubmissions.WithLabelValues(outcome).Inc()

	result := &SubmitResult{
		AttemptID:     attempt.ID,
		AttemptNumber: attempt.AttemptNumber,
		ScorePercent:  evaluation.ScorePercent,
		EarnedPoints:  evaluation.EarnedPoints,
		TotalPoints:   evaluation.TotalPoints,
		Passed:        evaluation.Passed,
		NeedsReview:   evaluation.NeedsReview,
	}
	if quiz.ShowAnswers {
		result.Questions = evaluation.Questions
	}
	return result, nil
}

func (s *QuizService) ListMyAttempts(userID, quizID uint) ([]model.QuizAttempt, error) {
	return s.AttemptRepo.ListByUserAndQuiz(userID, quizID)
}

func (s *QuizService) GetAttempt(userID uint, attemptID string) (*model.QuizAttempt, error) {
	attempt, err := s.AttemptRepo.FindByID(attemptID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, util.ErrAttemptNotFound
		}
		return nil, err
	}
	if attempt.UserID != userID {
		return nil, util.ErrPermissionDenied
	}
	return attempt, nil
}

// ---- 教师端 ----

type QuizRequest struct {
	LessonID         uint   `json:"lessonId" binding:"required"`
	Title            string `json:"title" binding:"required"`
	PassingScore     int    `json:"passingScore"`
	AllowMultiple    bool   `json:"allowMultipleAttempts"`
	RandomizeOrder   bool   `json:"randomizeQuestions"`
	ShowAnswers      bool   `json:"showCorrectAnswers"`
	TimeLimitMinutes int    `json:"timeLimitMinutes"`
}

type QuestionRequest struct {
	Type        model.QuestionType `json:"type" binding:"required"`
	Prompt      string             `json:"prompt" binding:"required"`
	Options     json.RawMessage    `json:"options"`
	Answer      json.RawMessage    `json:"answer"`
	Points      int                `json:"points"`
	Order       int                `json:"order"`
	Explanation string             `json:"explanation"`
}

func (s *QuizService) CreateQuiz(req QuizRequest) (*model.Quiz, error) {
	if _, err := s.LessonRepo.FindByID(req.LessonID); err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, util.ErrLessonNotFound
		}
		return nil, err
	}

	quiz := &model.Quiz{
		LessonID:         req.LessonID,
		Title:            req.Title,
		PassingScore:     req.PassingScore,
		AllowMultiple:    req.AllowMultiple,
		RandomizeOrder:   req.RandomizeOrder,
		ShowAnswers:      req.ShowAnswers,
		TimeLimitMinutes: req.TimeLimitMinutes,
	}
	if quiz.PassingScore <= 0 {
		quiz.PassingScore = 70
	}
	if err := s.QuizRepo.Create(quiz); err != nil {
		return nil, err
	}
	return quiz, nil
}

func (s *QuizService) GetQuiz(id uint) (*model.Quiz, error) {
	quiz, err := s.QuizRepo.FindByID(id)
	if err == gorm.ErrRecordNotFound {
		return nil, util.ErrQuizNotFound
	}
	return quiz, err
}

func (s *QuizService) UpdateQuiz(id uint, req QuizRequest) (*model.Quiz, error) {
	quiz, err := s.QuizRepo.FindByID(id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, util.ErrQuizNotFound
		}
		return nil, err
	}

	quiz.Title = req.Title
	quiz.PassingScore = req.PassingScore
	quiz.AllowMultiple = req.AllowMultiple
	quiz.RandomizeOrder = req.RandomizeOrder
	quiz.ShowAnswers = req.ShowAnswers
	quiz.TimeLimitMinutes = req.TimeLimitMinutes

	if err := s.QuizRepo.Save(quiz); err != nil {
		return nil, err
	}
	s.invalidateCache(quiz.LessonID)
	return quiz, nil
}

func (s *QuizService) DeleteQuiz(id uint) error {
	quiz, err := s.QuizRepo.FindByID(id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return util.ErrQuizNotFound
		}
		return err
	}
	if err := s.QuizRepo.Delete(id); err != nil {
		return err
	}
	s.invalidateCache(quiz.LessonID)
	return nil
}

func (s *QuizService) AddQuestion(quizID uint, req QuestionRequest) (*model.QuizQuestion, error) {
	quiz, err := s.QuizRepo.FindByID(quizID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, util.ErrQuizNotFound
		}
		return nil, err
	}

	q := &model.QuizQuestion{
		QuizID:      quizID,
		Type:        req.Type,
		Prompt:      req.Prompt,
		Options:     req.Options,
		Answer:      req.Answer,
		Points:      req.Points,
		Order:       req.Order,
		Explanation: req.Explanation,
	}
	if q.Points <= 0 {
		q.Points = 1
	}
	if err := s.QuizRepo.CreateQuestion(q); err != nil {
		return nil, err
	}
	s.invalidateCache(quiz.LessonID)
	return q, nil
}

func (s *QuizService) UpdateQuestion(id uint, req QuestionRequest) (*model.QuizQuestion, error) {
	q, err := s.QuizRepo.FindQuestionByID(id)
	if err != nil {
		return nil, err
	}

	q.Type = req.Type
	q.Prompt = req.Prompt
	q.Options = req.Options
	q.Answer = req.Answer
	q.Points = req.Points
	q.Order = req.Order
	q.Explanation = req.Explanation

	if err := s.QuizRepo.SaveQuestion(q); err != nil {
		return nil, err
	}

	if quiz, err := s.QuizRepo.FindByID(q.QuizID); err == nil {
		s.invalidateCache(quiz.LessonID)
	}
	return q, nil
}

func (s *QuizService) DeleteQuestion(id uint) error {
	q, err := s.QuizRepo.FindQuestionByID(id)
	if err != nil {
		return err
	}
	if err := s.QuizRepo.DeleteQuestion(id); err != nil {
		return err
	}
	if quiz, err := s.QuizRepo.FindByID(q.QuizID); err == nil {
		s.invalidateCache(quiz.LessonID)
	}
	return nil
}

func (s *QuizService) ListAttempts(quizID uint, page, limit int) ([]model.QuizAttempt, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return s.AttemptRepo.ListByQuiz(quizID, page, limit)
}

// ListPendingReview 等待人工复核的提交，按提交时间排队
func (s *QuizService) ListPendingReview(quizID uint) ([]model.QuizAttempt, error) {
	if _, err := s.QuizRepo.FindByID(quizID); err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, util.ErrQuizNotFound
		}
		return nil, err
	}
	return s.AttemptRepo.ListPendingReview(quizID)
}

type GradeAnswerRequest struct {
	AnswerID string `json:"answerId" binding:"required"`
	Earned   int    `json:"earned"`
}

type GradeAttemptRequest struct {
	Answers []GradeAnswerRequest `json:"answers" binding:"required"`
}

// GradeAttempt 人工复核主观题：给分后重算总分和通过标志
func (s *QuizService) GradeAttempt(attemptID string, req GradeAttemptRequest) (*model.QuizAttempt, error) {
	attempt, err := s.AttemptRepo.FindByID(attemptID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, util.ErrAttemptNotFound
		}
		return nil, err
	}

	quiz, err := s.QuizRepo.FindByID(attempt.QuizID)
	if err != nil {
		return nil, err
	}

	awarded := make(map[string]int, len(req.Answers))
	for _, a := range req.Answers {
		awarded[a.AnswerID] = a.Earned
	}

	err = s.DB.Transaction(func(tx *gorm.DB) error {
		earned := 0
		for i := range attempt.Answers {
			ans := &attempt.Answers[i]
			if points, ok := awarded[ans.ID]; ok && ans.PendingReview {
				if points > ans.Possible {
					points = ans.Possible
				}
				if points < 0 {
					points = 0
				}
				ans.Earned = points
				ans.IsCorrect = points == ans.Possible
				ans.PendingReview = false
				if err := s.AttemptRepo.SaveAnswer(tx, ans); err != nil {
					return err
				}
			}
			earned += ans.Earned
		}

		attempt.EarnedPoints = earned
		if attempt.TotalPoints > 0 {
			attempt.ScorePercent = int(math.Round(100 * float64(earned) / float64(attempt.TotalPoints)))
		}
		attempt.Passed = attempt.ScorePercent >= quiz.PassingScore
		attempt.NeedsReview = false
		for _, ans := range attempt.Answers {
			if ans.PendingReview {
				attempt.NeedsReview = true
				break
			}
		}
		attempt.Status = "reviewed"
		if attempt.NeedsReview {
			attempt.Status = "pending_review"
		}

		return s.AttemptRepo.Save(tx, attempt)
	})
	if err != nil {
		return nil, err
	}

	// 复核改分后同步课时最好成绩，不增加作答次数
	if lesson, err := s.LessonRepo.FindByID(quiz.LessonID); err == nil {
		if err := s.ProgressService.SyncQuizScore(attempt.UserID, lesson, attempt.ScorePercent, attempt.Passed); err != nil {
			logger.Log.Error("failed to sync progress after grading", zap.String("attemptId", attemptID), zap.Error(err))
		}
	}

	return attempt, nil
}

// loadQuiz 读穿缓存：题目定义改动少、读得多
func (s *QuizService) loadQuiz(lessonID uint) (*model.Quiz, error) {
	ctx := context.Background()
	key := fmt.Sprintf("%s%d", quizCacheKeyPrefix, lessonID)

	if val, err := s.Redis.Get(ctx, key).Result(); err == nil {
		var quiz model.Quiz
		if err := json.Unmarshal([]byte(val), &quiz); err == nil {
			return &quiz, nil
		}
	}

	quiz, err := s.QuizRepo.FindByLessonID(lessonID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, util.ErrQuizNotFound
		}
		return nil, err
	}

	if data, err := json.Marshal(quiz); err == nil {
		if err := s.Redis.Set(ctx, key, data, quizCacheTTL).Err(); err != nil {
			logger.Log.Warn("failed to cache quiz definition", zap.Uint("lessonId", lessonID), zap.Error(err))
		}
	}

	return quiz, nil
}

func (s *QuizService) invalidateCache(lessonID uint) {
	key := fmt.Sprintf("%s%d", quizCacheKeyPrefix, lessonID)
	if err := s.Redis.Del(context.Background(), key).Err(); err != nil {
		logger.Log.Warn("failed to invalidate quiz cache", zap.Uint("lessonId", lessonID), zap.Error(err))
	}
}

func (s *QuizService) requireEnrollment(userID, courseID uint) error {
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
