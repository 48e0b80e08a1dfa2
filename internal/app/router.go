package app

import (
	"learnhub_backend/docs"
	"learnhub_backend/internal/config"
	"learnhub_backend/internal/middleware"
	"learnhub_backend/internal/model"
	"learnhub_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, repos *repositories, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	// 1. 公共路由(无需登录)
	a.registerPublicRoutes(router, c, cfg)

	// 2. 需要授权的路由
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg), middleware.ActivityMiddleware(repos.user))
	{
		a.registerStudentRoutes(authGroup, c)
		a.registerInstructorRoutes(authGroup, c)
	}
}

func (a *App) registerPublicRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.POST("/auth/register", c.auth.Register)
		public.POST("/auth/login", c.auth.Login)

		// 课程目录允许游客浏览，登录用户可见自己的未发布课程
		public.GET("/courses", c.course.List)
		public.GET("/courses/:id", middleware.TryAuthMiddleware(cfg), c.course.Detail)
		public.GET("/courses/:id/lessons", c.course.Lessons)
	}
}

func (a *App) registerStudentRoutes(group *gin.RouterGroup, c *controllers) {
	group.GET("/auth/profile", c.auth.Profile)
	group.PUT("/auth/profile", c.auth.UpdateProfile)

	// 选课
	group.POST("/courses/:id/enroll", c.enrollment.Enroll)
	group.DELETE("/courses/:id/enroll", c.enrollment.Unenroll)
	group.GET("/my/courses", c.enrollment.MyCourses)

	// 课时与学习进度
	group.GET("/lessons/:id", c.lesson.Get)
	group.POST("/lessons/:id/start", c.progress.StartLesson)
	group.POST("/lessons/:id/complete", c.progress.CompleteLesson)
	group.GET("/courses/:id/progress", c.progress.CourseProgress)
	group.GET("/my/progress", c.progress.Overall)

	// 测验
	group.GET("/lessons/:id/quiz", c.quiz.GetForLesson)
	group.POST("/quizzes/:id/submit", c.quiz.Submit)
	group.GET("/quizzes/:id/attempts", c.quiz.MyAttempts)
	group.GET("/attempts/:id", c.quiz.GetAttempt)
}

func (a *App) registerInstructorRoutes(group *gin.RouterGroup, c *controllers) {
	instructor := group.Group("/instructor")
	instructor.Use(middleware.RoleMiddleware(model.Instructor, model.Admin))
	{
		// 课程管理
		instructor.GET("/courses", c.course.Mine)
		instructor.POST("/courses", c.course.Create)
		instructor.PUT("/courses/:id", c.course.Update)
		instructor.DELETE("/courses/:id", c.course.Delete)
		instructor.POST("/courses/:id/publish", c.course.Publish)
		instructor.POST("/courses/:id/cover", c.course.UploadCover)

		// 课时管理
		instructor.POST("/lessons", c.lesson.Create)
		instructor.PUT("/lessons/:id", c.lesson.Update)
		instructor.DELETE("/lessons/:id", c.lesson.Delete)
		instructor.POST("/lessons/:id/video", c.lesson.UploadVideo)

		// 测验管理
		instructor.POST("/quizzes", c.quiz.Create)
		instructor.GET("/quizzes/:id", c.quiz.Get)
		instructor.PUT("/quizzes/:id", c.quiz.Update)
		instructor.DELETE("/quizzes/:id", c.quiz.Delete)
		instructor.POST("/quizzes/:id/questions", c.quiz.AddQuestion)
		instructor.PUT("/questions/:id", c.quiz.UpdateQuestion)
		instructor.DELETE("/questions/:id", c.quiz.DeleteQuestion)
		instructor.GET("/quizzes/:id/attempts", c.quiz.Attempts)
		instructor.GET("/quizzes/:id/attempts/pending", c.quiz.PendingReview)
		instructor.POST("/attempts/:id/grade", c.quiz.Grade)
	}
}
