package database

import (
	config "github.com/anjiri1684/mock_exams/configs"
	"github.com/anjiri1684/mock_exams/logger"
	"github.com/anjiri1684/mock_exams/models"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

var DB *gorm.DB

// Options shared by every connection, including the sqlite one used in tests.
func GormConfig() *gorm.Config {
	return &gorm.Config{
		PrepareStmt:                              false,
		SkipDefaultTransaction:                   true,
		DisableForeignKeyConstraintWhenMigrating: true,
		TranslateError:                           true,
		Logger:                                   gormLogger.Default.LogMode(gormLogger.Silent),
	}
}

func ConnectDB() {
	var err error
	dsn := config.Config("DATABASE_URL")

	DB, err = gorm.Open(postgres.Open(dsn), GormConfig())
	if err != nil {
		logger.Log.Fatal("failed to connect to database", "error", err)
	}

	logger.Log.Info("database connected")
}

func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Category{},
		&models.Tag{},
		&models.Series{},
		&models.Test{},
		&models.SeriesTest{},
		&models.Question{},
		&models.Attempt{},
		&models.Scorecard{},
		&models.Enrollment{},
		&models.Payment{},
	)
}

func Migrate() {
	if err := AutoMigrate(DB); err != nil {
		logger.Log.Fatal("failed to migrate database", "error", err)
	}
	logger.Log.Info("database migration successful")
}

func SeedAdmin() {
	adminEmail := config.Config("ADMIN_EMAIL")
	adminPassword := config.Config("ADMIN_PASSWORD")
	if adminEmail == "" || adminPassword == "" {
		logger.Log.Warn("ADMIN_EMAIL or ADMIN_PASSWORD not set, skipping admin seed")
		return
	}

	var count int64
	if err := DB.Model(&models.User{}).Where("email = ?", adminEmail).Count(&count).Error; err != nil {
		logger.Log.Fatal("failed to check for admin user", "error", err)
	}

	if count > 0 {
		logger.Log.Debug("admin user already exists", "email", adminEmail)
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.DefaultCost)
	if err != nil {
		logger.Log.Fatal("failed to hash admin password", "error", err)
	}

	fullName := config.Config("ADMIN_FULL_NAME")
	if fullName == "" {
		fullName = "Administrator"
	}

	adminUser := models.User{
		FullName: fullName,
		Email:    adminEmail,
		Password: string(hashedPassword),
		Role:     "admin",
	}

	if err := DB.Create(&adminUser).Error; err != nil {
		logger.Log.Fatal("failed to seed admin user", "error", err)
	}

	logger.Log.Info("admin user seeded", "email", adminEmail)
}
