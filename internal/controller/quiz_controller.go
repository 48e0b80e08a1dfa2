package controller

import (
	"errors"
	"learnhub_backend/internal/service"
	"learnhub_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type QuizController struct {
	QuizService *service.QuizService
}

func NewQuizController(quizService *service.QuizService) *QuizController {
	return &QuizController{QuizService: quizService}
}

// GetForLesson godoc
// @Summary 获取课时测验
// @Description 学员视角的测验内容，不包含正确答案
// @Tags 测验
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "课时ID"
// @Success 200 {object} util.Response{data=service.StudentQuizView} "成功"
// @Failure 403 {object} util.Response "未报名课程"
// @Failure 404 {object} util.Response "测验不存在"
// @Router /api/lessons/{id}/quiz [get]
func (c *QuizController) GetForLesson(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	lessonID := util.MustParseUint(ctx.Param("id"))

	quiz, err := c.QuizService.GetQuizForLesson(claims.UserID, lessonID)
	if err != nil {
		c.handleError(ctx, err)
		return
	}

	util.Success(ctx, quiz)
}

// Submit godoc
// @Summary 提交测验答案
// @Description 评分并记录答题记录，同步更新课程进度
// @Tags 测验
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "测验ID"
// @Param   body body service.QuizSubmission true "答案"
// @Success 200 {object} util.Response{data=service.SubmitResult} "评分结果"
// @Failure 403 {object} util.Response "未报名课程"
// @Failure 409 {object} util.Response "测验不允许重复作答"
// @Router /api/quizzes/{id}/submit [post]
func (c *QuizController) Submit(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	quizID := util.MustParseUint(ctx.Param("id"))

	var submission service.QuizSubmission
	if err := ctx.ShouldBindJSON(&submission); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	result, err := c.QuizService.Submit(claims.UserID, quizID, submission)
	if err != nil {
		if errors.Is(err, util.ErrRetakeNotAllowed) {
			util.Conflict(ctx, "该测验不允许重复作答")
			return
		}
		c.handleError(ctx, err)
		return
	}

	util.Success(ctx, result)
}

// MyAttempts godoc
// @Summary 我的答题记录
// @Tags 测验
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "测验ID"
// @Success 200 {object} util.Response{data=[]model.QuizAttempt} "成功"
// @Router /api/quizzes/{id}/attempts [get]
func (c *QuizController) MyAttempts(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	quizID := util.MustParseUint(ctx.Param("id"))

	attempts, err := c.QuizService.ListMyAttempts(claims.UserID, quizID)
	if err != nil {
		c.handleError(ctx, err)
		return
	}

	util.Success(ctx, attempts)
}

// GetAttempt godoc
// @Summary 答题记录详情
// @Description 仅本人或讲师可查看
// @Tags 测验
// @Produce  json
// @Security BearerAuth
// @Param   id path string true "答题记录ID"
// @Success 200 {object} util.Response{data=model.QuizAttempt} "成功"
// @Failure 404 {object} util.Response "记录不存在"
// @Router /api/attempts/{id} [get]
func (c *QuizController) GetAttempt(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	attempt, err := c.QuizService.GetAttempt(claims.UserID, ctx.Param("id"))
	if err != nil {
		c.handleError(ctx, err)
		return
	}

	util.Success(ctx, attempt)
}

// Create godoc
// @Summary 创建测验
// @Tags 测验管理
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   body body service.QuizRequest true "测验信息"
// @Success 201 {object} util.Response{data=model.Quiz} "创建成功"
// @Router /api/instructor/quizzes [post]
func (c *QuizController) Create(ctx *gin.Context) {
	var req service.QuizRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	quiz, err := c.QuizService.CreateQuiz(req)
	if err != nil {
		c.handleError(ctx, err)
		return
	}

	util.Created(ctx, quiz)
}

// Get godoc
// @Summary 测验详情（含答案）
// @Tags 测验管理
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "测验ID"
// @Success 200 {object} util.Response{data=model.Quiz} "成功"
// @Router /api/instructor/quizzes/{id} [get]
func (c *QuizController) Get(ctx *gin.Context) {
	quiz, err := c.QuizService.GetQuiz(util.MustParseUint(ctx.Param("id")))
	if err != nil {
		c.handleError(ctx, err)
		return
	}

	util.Success(ctx, quiz)
}

// Update godoc
// @Summary 更新测验
// @Tags 测验管理
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "测验ID"
// @Param   body body service.QuizRequest true "测验信息"
// @Success 200 {object} util.Response{data=model.Quiz} "成功"
// @Router /api/instructor/quizzes/{id} [put]
func (c *QuizController) Update(ctx *gin.Context) {
	var req service.QuizRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	quiz, err := c.QuizService.UpdateQuiz(util.MustParseUint(ctx.Param("id")), req)
	if err != nil {
		c.handleError(ctx, err)
		return
	}

	util.Success(ctx, quiz)
}

// Delete godoc
// @Summary 删除测验
// @Tags 测验管理
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "测验ID"
// @Success 200 {object} util.Response "成功"
// @Router /api/instructor/quizzes/{id} [delete]
func (c *QuizController) Delete(ctx *gin.Context) {
	if err := c.QuizService.DeleteQuiz(util.MustParseUint(ctx.Param("id"))); err != nil {
		c.handleError(ctx, err)
		return
	}

	util.Success(ctx, nil)
}

// AddQuestion godoc
// @Summary 添加题目
// @Tags 测验管理
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "测验ID"
// @Param   body body service.QuestionRequest true "题目信息"
// @Success 201 {object} util.Response{data=model.QuizQuestion} "创建成功"
// @Router /api/instructor/quizzes/{id}/questions [post]
func (c *QuizController) AddQuestion(ctx *gin.Context) {
	var req service.QuestionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	question, err := c.QuizService.AddQuestion(util.MustParseUint(ctx.Param("id")), req)
	if err != nil {
		c.handleError(ctx, err)
		return
	}

	util.Created(ctx, question)
}

// UpdateQuestion godoc
// @Summary 更新题目
// @Tags 测验管理
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "题目ID"
// @Param   body body service.QuestionRequest true "题目信息"
// @Success 200 {object} util.Response{data=model.QuizQuestion} "成功"
// @Router /api/instructor/questions/{id} [put]
func (c *QuizController) UpdateQuestion(ctx *gin.Context) {
	var req service.QuestionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	question, err := c.QuizService.UpdateQuestion(util.MustParseUint(ctx.Param("id")), req)
	if err != nil {
		c.handleError(ctx, err)
		return
	}

	util.Success(ctx, question)
}

// DeleteQuestion godoc
// @Summary 删除题目
// @Tags 测验管理
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "题目ID"
// @Success 200 {object} util.Response "成功"
// @Router /api/instructor/questions/{id} [delete]
func (c *QuizController) DeleteQuestion(ctx *gin.Context) {
	if err := c.QuizService.DeleteQuestion(util.MustParseUint(ctx.Param("id"))); err != nil {
		c.handleError(ctx, err)
		return
	}

	util.Success(ctx, nil)
}

// Attempts godoc
// @Summary 测验全部答题记录
// @Tags 测验管理
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "测验ID"
// @Param   page query int false "页码" default(1)
// @Param   limit query int false "每页数量" default(20)
// @Success 200 {object} util.Response{data=object} "成功"
// @Router /api/instructor/quizzes/{id}/attempts [get]
func (c *QuizController) Attempts(ctx *gin.Context) {
	page := util.QueryInt(ctx, "page", 1)
	limit := util.QueryInt(ctx, "limit", 20)

	attempts, total, err := c.QuizService.ListAttempts(util.MustParseUint(ctx.Param("id")), page, limit)
	if err != nil {
		c.handleError(ctx, err)
		return
	}

	util.Success(ctx, util.PageResponse{List: attempts, Total: total, Page: page, Limit: limit})
}

// PendingReview godoc
// @Summary 待复核的答题记录
// @Description 含主观题且尚未人工评分的提交
// @Tags 测验管理
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "测验ID"
// @Success 200 {object} util.Response{data=[]model.QuizAttempt} "成功"
// @Router /api/instructor/quizzes/{id}/attempts/pending [get]
func (c *QuizController) PendingReview(ctx *gin.Context) {
	attempts, err := c.QuizService.ListPendingReview(util.MustParseUint(ctx.Param("id")))
	if err != nil {
		c.handleError(ctx, err)
		return
	}

	util.Success(ctx, attempts)
}

// Grade godoc
// @Summary 人工评分
// @Description 为主观题答案打分并重新计算成绩
// @Tags 测验管理
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   id path string true "答题记录ID"
// @Param   body body service.GradeAttemptRequest true "评分信息"
// @Success 200 {object} util.Response{data=model.QuizAttempt} "成功"
// @Failure 404 {object} util.Response "记录不存在"
// @Router /api/instructor/attempts/{id}/grade [post]
func (c *QuizController) Grade(ctx *gin.Context) {
	var req service.GradeAttemptRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	attempt, err := c.QuizService.GradeAttempt(ctx.Param("id"), req)
	if err != nil {
		c.handleError(ctx, err)
		return
	}

	util.Success(ctx, attempt)
}

func (c *QuizController) handleError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, util.ErrQuizNotFound):
		util.NotFound(ctx, "测验不存在")
	case errors.Is(err, util.ErrLessonNotFound):
		util.NotFound(ctx, "课时不存在")
	case errors.Is(err, util.ErrAttemptNotFound):
		util.NotFound(ctx, "答题记录不存在")
	case errors.Is(err, util.ErrNotEnrolled):
		util.Forbidden(ctx)
	case errors.Is(err, util.ErrPermissionDenied):
		util.Forbidden(ctx)
	default:
		util.LogInternalError(ctx, err)
	}
}
