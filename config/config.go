package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/vnkhanh/e-course-backend/models"
)

var DB *gorm.DB

// Config gom toàn bộ cấu hình đọc từ biến môi trường
type Config struct {
	Port string

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	GeminiAPIKey string
	GeminiModel  string

	// Giới hạn upload tài liệu
	MaxUploadSize     int64 // bytes
	AllowedExtensions []string

	// Tham số pipeline sinh khóa học
	GenMaxRetries    int           // số lần gọi lại Gemini cho mỗi stage
	GenCallTimeout   time.Duration // timeout mỗi lần gọi model
	GenPoolSize      int           // số worker gọi model đồng thời trong một run
	GenMaxChapters   int           // số chương tối đa mặc định
	DocSweepInterval time.Duration // chu kỳ quét tài liệu kẹt
	DocStuckTimeout  time.Duration // quá hạn processing thì coi như failed

	LogLevel string
	LogFile  string
}

var C Config

// LoadConfig đọc env và áp mặc định, gọi một lần khi khởi động
func LoadConfig() {
	C = Config{
		Port:       getEnv("PORT", "8080"),
		DBHost:     os.Getenv("DB_HOST"),
		DBPort:     os.Getenv("DB_PORT"),
		DBUser:     os.Getenv("DB_USER"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     os.Getenv("DB_NAME"),

		GeminiAPIKey: os.Getenv("GEMINI_API_KEY"),
		GeminiModel:  getEnv("GEMINI_MODEL", "gemini-2.0-flash"),

		MaxUploadSize:     int64(getEnvInt("MAX_UPLOAD_SIZE_MB", 10)) * 1024 * 1024,
		AllowedExtensions: strings.Split(getEnv("ALLOWED_EXTENSIONS", "pdf,docx,doc,xlsx,xls,txt,md"), ","),

		GenMaxRetries:    getEnvInt("GEN_MAX_RETRIES", 3),
		GenCallTimeout:   time.Duration(getEnvInt("GEN_CALL_TIMEOUT_SEC", 120)) * time.Second,
		GenPoolSize:      getEnvInt("GEN_POOL_SIZE", 2),
		GenMaxChapters:   getEnvInt("GEN_MAX_CHAPTERS", 8),
		DocSweepInterval: time.Duration(getEnvInt("DOC_SWEEP_INTERVAL_MIN", 5)) * time.Minute,
		DocStuckTimeout:  time.Duration(getEnvInt("DOC_STUCK_TIMEOUT_MIN", 30)) * time.Minute,

		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogFile:  getEnv("LOG_FILE", "logs/app.log"),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func InitDB() {
	// DSN cho PostgreSQL
	dsn := fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=Asia/Ho_Chi_Minh",
		C.DBHost, C.DBUser, C.DBPassword, C.DBName, C.DBPort,
	)

	// Kết nối DB với logger
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		log.Fatal("Không thể kết nối database:", err)
	}

	DB = db

	// Lấy *sql.DB để config connection pooling
	sqlDB, err := db.DB()
	if err != nil {
		log.Fatal("Không thể lấy sql.DB từ gorm:", err)
	}

	// Connection Pooling config
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)
	sqlDB.SetConnMaxIdleTime(10 * time.Minute)

	// AutoMigrate các models
	err = DB.AutoMigrate(
		&models.User{},
		&models.Document{},
		&models.Course{},
		&models.Chapter{},
		&models.Section{},
		&models.KnowledgePoint{},
	)
	if err != nil {
		log.Fatal("autoMigrate lỗi: ", err)
	}
	log.Println("postgreSQL connected & migrated successfully!")
}
