package controller

import (
	"errors"
	"learnhub_backend/internal/service"
	"learnhub_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type LessonController struct {
	LessonService *service.LessonService
}

func NewLessonController(lessonService *service.LessonService) *LessonController {
	return &LessonController{LessonService: lessonService}
}

// Get godoc
// @Summary 课时详情
// @Tags 课时
// @Produce  json
// @Param   id path int true "课时ID"
// @Success 200 {object} util.Response{data=model.Lesson} "成功"
// @Failure 404 {object} util.Response "课时不存在"
// @Router /api/lessons/{id} [get]
func (c *LessonController) Get(ctx *gin.Context) {
	id := util.MustParseUint(ctx.Param("id"))

	lesson, err := c.LessonService.Get(id)
	if err != nil {
		c.handleError(ctx, err)
		return
	}

	util.Success(ctx, lesson)
}

// Create godoc
// @Summary 创建课时
// @Tags 课时管理
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   body body service.LessonRequest true "课时信息"
// @Success 201 {object} util.Response{data=model.Lesson} "创建成功"
// @Failure 403 {object} util.Response "无权操作"
// @Router /api/instructor/lessons [post]
func (c *LessonController) Create(ctx *gin.Context) {
	var req service.LessonRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	lesson, err := c.LessonService.Create(util.GetUserFromContext(ctx), req)
	if err != nil {
		c.handleError(ctx, err)
		return
	}

	util.Created(ctx, lesson)
}

// Update godoc
// @Summary 更新课时
// @Tags 课时管理
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "课时ID"
// @Param   body body service.LessonRequest true "课时信息"
// @Success 200 {object} util.Response{data=model.Lesson} "成功"
// @Failure 403 {object} util.Response "无权操作"
// @Router /api/instructor/lessons/{id} [put]
func (c *LessonController) Update(ctx *gin.Context) {
	id := util.MustParseUint(ctx.Param("id"))

	var req service.LessonRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	lesson, err := c.LessonService.Update(id, util.GetUserFromContext(ctx), req)
	if err != nil {
		c.handleError(ctx, err)
		return
	}

	util.Success(ctx, lesson)
}

// Delete godoc
// @Summary 删除课时
// @Tags 课时管理
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "课时ID"
// @Success 200 {object} util.Response "成功"
// @Failure 403 {object} util.Response "无权操作"
// @Router /api/instructor/lessons/{id} [delete]
func (c *LessonController) Delete(ctx *gin.Context) {
	id := util.MustParseUint(ctx.Param("id"))

	if err := c.LessonService.Delete(id, util.GetUserFromContext(ctx)); err != nil {
		c.handleError(ctx, err)
		return
	}

	util.Success(ctx, nil)
}

// UploadVideo godoc
// @Summary 上传课时视频
// @Description 上传视频文件并探测时长，课时类型自动切换为 video
// @Tags 课时管理
// @Accept  multipart/form-data
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "课时ID"
// @Param   file formData file true "视频文件"
// @Success 200 {object} util.Response{data=model.Lesson} "成功"
// @Failure 400 {object} util.Response "文件类型不支持"
// @Router /api/instructor/lessons/{id}/video [post]
func (c *LessonController) UploadVideo(ctx *gin.Context) {
	id := util.MustParseUint(ctx.Param("id"))

	file, err := ctx.FormFile("file")
	if err != nil {
		util.BadRequest(ctx, "缺少上传文件")
		return
	}

	lesson, err := c.LessonService.AttachVideo(id, util.GetUserFromContext(ctx), file)
	if err != nil {
		if errors.Is(err, util.ErrLessonNotFound) || errors.Is(err, util.ErrPermissionDenied) || errors.Is(err, util.ErrCourseNotFound) {
			c.handleError(ctx, err)
		} else {
			util.BadRequest(ctx, err.Error())
		}
		return
	}

	util.Success(ctx, lesson)
}

func (c *LessonController) handleError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, util.ErrLessonNotFound):
		util.NotFound(ctx, "课时不存在")
	case errors.Is(err, util.ErrCourseNotFound):
		util.NotFound(ctx, "课程不存在")
	case errors.Is(err, util.ErrPermissionDenied):
		util.Forbidden(ctx)
	default:
		util.LogInternalError(ctx, err)
	}
}
