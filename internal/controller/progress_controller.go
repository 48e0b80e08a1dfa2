package controller

import (
	"errors"
	"learnhub_backend/internal/service"
	"learnhub_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type ProgressController struct {
	ProgressService *service.ProgressService
}

func NewProgressController(progressService *service.ProgressService) *ProgressController {
	return &ProgressController{ProgressService: progressService}
}

// StartLesson godoc
// @Summary 开始学习课时
// @Description 创建课时进度记录并刷新最近访问时间，幂等
// @Tags 学习进度
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "课时ID"
// @Success 200 {object} util.Response{data=model.LessonProgress} "成功"
// @Failure 403 {object} util.Response "未报名课程"
// @Router /api/lessons/{id}/start [post]
func (c *ProgressController) StartLesson(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	progress, err := c.ProgressService.StartLesson(claims.UserID, util.MustParseUint(ctx.Param("id")))
	if err != nil {
		c.handleError(ctx, err)
		return
	}

	util.Success(ctx, progress)
}

// CompleteLesson godoc
// @Summary 完成课时
// @Description 标记课时完成并更新课程进度，重复完成不回退
// @Tags 学习进度
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "课时ID"
// @Param   body body service.CompleteLessonRequest false "学习时长"
// @Success 200 {object} util.Response{data=model.CourseProgress} "成功"
// @Failure 403 {object} util.Response "未报名课程"
// @Router /api/lessons/{id}/complete [post]
func (c *ProgressController) CompleteLesson(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var req service.CompleteLessonRequest
	if err := ctx.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		util.BadRequest(ctx, err.Error())
		return
	}

	progress, err := c.ProgressService.CompleteLesson(claims.UserID, util.MustParseUint(ctx.Param("id")), req)
	if err != nil {
		c.handleError(ctx, err)
		return
	}

	util.Success(ctx, progress)
}

// CourseProgress godoc
// @Summary 课程学习进度
// @Tags 学习进度
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "课程ID"
// @Success 200 {object} util.Response{data=service.CourseProgressSummary} "成功"
// @Failure 403 {object} util.Response "未报名课程"
// @Router /api/courses/{id}/progress [get]
func (c *ProgressController) CourseProgress(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	summary, err := c.ProgressService.GetCourseProgress(claims.UserID, util.MustParseUint(ctx.Param("id")))
	if err != nil {
		c.handleError(ctx, err)
		return
	}

	util.Success(ctx, summary)
}

// Overall godoc
// @Summary 学习总览
// @Description 当前用户全部课程的学习统计
// @Tags 学习进度
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=model.OverallProgress} "成功"
// @Router /api/my/progress [get]
func (c *ProgressController) Overall(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	progress, err := c.ProgressService.GetOverallProgress(claims.UserID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, progress)
}

func (c *ProgressController) handleError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, util.ErrLessonNotFound):
		util.NotFound(ctx, "课时不存在")
	case errors.Is(err, util.ErrCourseNotFound):
		util.NotFound(ctx, "课程不存在")
	case errors.Is(err, util.ErrNotEnrolled):
		util.Forbidden(ctx)
	default:
		util.LogInternalError(ctx, err)
	}
}
