package routes

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/vnkhanh/e-course-backend/controllers"
	"github.com/vnkhanh/e-course-backend/middleware"
	"github.com/vnkhanh/e-course-backend/services"
	"github.com/vnkhanh/e-course-backend/ws"
)

func SetupRouter(r *gin.Engine, db *gorm.DB, hub *ws.Hub, generator *services.CourseGenerator) *gin.Engine {
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})
	r.GET("/health", controllers.HealthCheck(hub))

	api := r.Group("/api")

	auth := api.Group("/auth")
	{
		auth.POST("/register", controllers.Register)
		auth.POST("/login", controllers.Login)
		auth.POST("/logingoogle", controllers.GoogleLogin)
	}

	user := api.Group("/user")
	{
		user.Use(middleware.AuthMiddleware(), middleware.DBMiddleware(db))
		user.POST("/change-password", controllers.ChangePassword)
	}

	admin := api.Group("/admin")
	{
		admin.Use(middleware.AuthMiddleware(), middleware.DBMiddleware(db), middleware.RequireRoles("admin", "teacher"))

		//Quản lý tài khoản giảng viên
		admin.POST("/lecturers", controllers.AdminCreateLecturer)

		//Quản lý tài liệu
		admin.POST("/documents", controllers.UploadDocument)
		admin.GET("/documents", controllers.GetDocuments)
		admin.GET("/documents/stats", controllers.GetDocumentStats)
		admin.GET("/documents/:id", controllers.GetDocumentDetail)
		admin.POST("/documents/:id/retry", controllers.RetryDocument)
		admin.POST("/documents/sweep", controllers.SweepDocuments)
		admin.DELETE("/documents/:id", controllers.DeleteDocument)

		//Sinh và quản lý khóa học
		admin.POST("/courses/generate", controllers.GenerateCourse(generator))
		admin.GET("/courses", controllers.GetCourses)
		admin.GET("/courses/:id", controllers.GetCourseDetail)
		admin.PUT("/courses/:id", controllers.UpdateCourse)
		admin.DELETE("/courses/:id", controllers.DeleteCourse)

		//Chỉnh sửa từng tầng của cây khóa học
		admin.PUT("/chapters/:id", controllers.UpdateChapter)
		admin.PUT("/sections/:id", controllers.UpdateSection)
		admin.PUT("/knowledge-points/:id", controllers.UpdateKnowledgePoint)
	}

	r.GET("/ws/course-generation/:task_id", ws.HandleCourseGenerationWS(hub))

	return r
}
