package controller

import (
	"errors"
	"learnhub_backend/internal/service"
	"learnhub_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type CourseController struct {
	CourseService *service.CourseService
}

func NewCourseController(courseService *service.CourseService) *CourseController {
	return &CourseController{CourseService: courseService}
}

// List godoc
// @Summary 课程目录
// @Description 分页浏览已发布课程，支持按分类筛选
// @Tags 课程
// @Produce  json
// @Param   page query int false "页码" default(1)
// @Param   limit query int false "每页数量" default(10)
// @Param   category query string false "分类"
// @Success 200 {object} util.Response{data=service.CatalogPage} "成功"
// @Router /api/courses [get]
func (c *CourseController) List(ctx *gin.Context) {
	page := util.QueryInt(ctx, "page", 1)
	limit := util.QueryInt(ctx, "limit", 10)
	category := ctx.Query("category")

	result, err := c.CourseService.ListPublished(page, limit, category)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, result)
}

// Detail godoc
// @Summary 课程详情
// @Description 未发布课程仅作者和管理员可见
// @Tags 课程
// @Produce  json
// @Param   id path int true "课程ID"
// @Success 200 {object} util.Response{data=service.CourseDetail} "成功"
// @Failure 404 {object} util.Response "课程不存在"
// @Router /api/courses/{id} [get]
func (c *CourseController) Detail(ctx *gin.Context) {
	id := util.MustParseUint(ctx.Param("id"))

	detail, err := c.CourseService.GetDetail(id, util.GetUserFromContext(ctx))
	if err != nil {
		c.handleError(ctx, err)
		return
	}

	util.Success(ctx, detail)
}

// Lessons godoc
// @Summary 课程课时列表
// @Tags 课程
// @Produce  json
// @Param   id path int true "课程ID"
// @Success 200 {object} util.Response{data=[]model.Lesson} "成功"
// @Failure 404 {object} util.Response "课程不存在"
// @Router /api/courses/{id}/lessons [get]
func (c *CourseController) Lessons(ctx *gin.Context) {
	id := util.MustParseUint(ctx.Param("id"))

	lessons, err := c.CourseService.ListLessons(id)
	if err != nil {
		c.handleError(ctx, err)
		return
	}

	util.Success(ctx, lessons)
}

// Create godoc
// @Summary 创建课程
// @Tags 课程管理
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   body body service.CourseRequest true "课程信息"
// @Success 201 {object} util.Response{data=model.Course} "创建成功"
// @Failure 400 {object} util.Response "请求参数错误"
// @Router /api/instructor/courses [post]
func (c *CourseController) Create(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var req service.CourseRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	course, err := c.CourseService.Create(claims.UserID, req)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Created(ctx, course)
}

// Update godoc
// @Summary 更新课程
// @Tags 课程管理
// @Accept  json
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "课程ID"
// @Param   body body service.CourseRequest true "课程信息"
// @Success 200 {object} util.Response{data=model.Course} "成功"
// @Failure 403 {object} util.Response "无权操作"
// @Router /api/instructor/courses/{id} [put]
func (c *CourseController) Update(ctx *gin.Context) {
	id := util.MustParseUint(ctx.Param("id"))

	var req service.CourseRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	course, err := c.CourseService.Update(id, util.GetUserFromContext(ctx), req)
	if err != nil {
		c.handleError(ctx, err)
		return
	}

	util.Success(ctx, course)
}

// Publish godoc
// @Summary 发布课程
// @Description 发布后课程出现在目录中，重复发布为幂等操作
// @Tags 课程管理
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "课程ID"
// @Success 200 {object} util.Response{data=model.Course} "成功"
// @Failure 403 {object} util.Response "无权操作"
// @Router /api/instructor/courses/{id}/publish [post]
func (c *CourseController) Publish(ctx *gin.Context) {
	id := util.MustParseUint(ctx.Param("id"))

	course, err := c.CourseService.Publish(id, util.GetUserFromContext(ctx))
	if err != nil {
		c.handleError(ctx, err)
		return
	}

	util.Success(ctx, course)
}

// UploadCover godoc
// @Summary 上传课程封面
// @Tags 课程管理
// @Accept  multipart/form-data
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "课程ID"
// @Param   file formData file true "封面图片"
// @Success 200 {object} util.Response{data=model.Course} "成功"
// @Failure 400 {object} util.Response "文件类型不支持"
// @Router /api/instructor/courses/{id}/cover [post]
func (c *CourseController) UploadCover(ctx *gin.Context) {
	id := util.MustParseUint(ctx.Param("id"))

	file, err := ctx.FormFile("file")
	if err != nil {
		util.BadRequest(ctx, "缺少上传文件")
		return
	}

	course, err := c.CourseService.UploadCover(id, util.GetUserFromContext(ctx), file)
	if err != nil {
		if errors.Is(err, util.ErrCourseNotFound) || errors.Is(err, util.ErrPermissionDenied) {
			c.handleError(ctx, err)
		} else {
			util.BadRequest(ctx, err.Error())
		}
		return
	}

	util.Success(ctx, course)
}

// Delete godoc
// @Summary 删除课程
// @Tags 课程管理
// @Produce  json
// @Security BearerAuth
// @Param   id path int true "课程ID"
// @Success 200 {object} util.Response "成功"
// @Failure 403 {object} util.Response "无权操作"
// @Router /api/instructor/courses/{id} [delete]
func (c *CourseController) Delete(ctx *gin.Context) {
	id := util.MustParseUint(ctx.Param("id"))

	if err := c.CourseService.Delete(id, util.GetUserFromContext(ctx)); err != nil {
		c.handleError(ctx, err)
		return
	}

	util.Success(ctx, nil)
}

// Mine godoc
// @Summary 我创建的课程
// @Tags 课程管理
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=[]model.Course} "成功"
// @Router /api/instructor/courses [get]
func (c *CourseController) Mine(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	courses, err := c.CourseService.ListMine(claims.UserID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, courses)
}

func (c *CourseController) handleError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, util.ErrCourseNotFound):
		util.NotFound(ctx, "课程不存在")
	case errors.Is(err, util.ErrPermissionDenied):
		util.Forbidden(ctx)
	default:
		util.LogInternalError(ctx, err)
	}
}
