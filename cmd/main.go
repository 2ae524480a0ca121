package main

import (
	"log"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/vnkhanh/e-course-backend/config"
	"github.com/vnkhanh/e-course-backend/logger"
	"github.com/vnkhanh/e-course-backend/routes"
	"github.com/vnkhanh/e-course-backend/services"
	"github.com/vnkhanh/e-course-backend/utils"
	"github.com/vnkhanh/e-course-backend/ws"
)

func main() {
	// Load .env
	if err := godotenv.Load(); err != nil {
		log.Println("Không tìm thấy file .env")
	}

	config.LoadConfig()

	if err := logger.Init(config.C.LogLevel, config.C.LogFile); err != nil {
		log.Fatal("Không khởi tạo được logger:", err)
	}
	defer logger.Sync()

	config.InitDB()

	// Hub tiến trình + pipeline sinh khóa học
	hub := ws.NewHub()
	gemini := services.NewGeminiClient(config.C.GeminiAPIKey, config.C.GeminiModel, config.C.GenCallTimeout)
	generator := services.NewCourseGenerator(
		services.NewCourseStore(config.DB),
		gemini,
		hub,
		services.GeneratorConfig{
			MaxRetries:  config.C.GenMaxRetries,
			PoolSize:    config.C.GenPoolSize,
			MaxChapters: config.C.GenMaxChapters,
		},
	)

	// Job quét tài liệu kẹt processing
	utils.StartCleanupJob(config.C.DocSweepInterval, config.C.DocStuckTimeout)

	r := gin.Default()

	//Bật CORS
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:5173"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))
	// Gọi SetupRouter để đăng ký route
	r = routes.SetupRouter(r, config.DB, hub, generator)

	// Route test server
	r.GET("/", func(c *gin.Context) {
		c.String(200, "E-Course server is running")
	})

	log.Println("Server running at Port:" + config.C.Port)
	r.Run(":" + config.C.Port)
}
