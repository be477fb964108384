package db

import (
	"log"

	"commentbox/internal/config"
	"commentbox/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

func Init() {
	dsn := config.C.DatabaseURL
	if dsn == "" {
		// Fallback for local dev if not set
		dsn = "host=localhost user=postgres password=postgres dbname=commentbox port=5432 sslmode=disable"
	}

	var err error
	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	log.Println("Database connection established")

	// Auto Migrate
	err = DB.AutoMigrate(
		&models.User{},
		&models.Site{},
		&models.Page{},
		&models.Notification{},
		// one table per comment variant
		&models.Comment{},
		&models.AnonComment{},
		&models.QAComment{},
		&models.StackedComment{},
		&models.RatingComment{},
		&models.StackedRatingComment{},
	)
	if err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}
	log.Println("Database migration completed")

	seedSite()
}

// seedSite makes sure the configured tenant exists.
func seedSite() {
	var count int64
	DB.Model(&models.Site{}).Where("id = ?", config.C.SiteID).Count(&count)
	if count > 0 {
		return
	}

	site := models.Site{
		ID:     config.C.SiteID,
		Name:   "commentbox",
		Domain: "localhost",
	}
	if err := DB.Create(&site).Error; err != nil {
		log.Printf("Failed to create default site: %v", err)
		return
	}
	log.Printf("Default site %d created", site.ID)
}
