package main

import (
	"log"
	"os"

	"shiftfund/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var db *gorm.DB

func initDB(dsn string, autoMigrate bool) {
	var err error
	if dsn == "" {
		log.Fatal("database DSN is not set. Provide SHIFTFUND_DATABASE_DSN (postgres).")
	}
	db, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect postgres database:", err)
	}
	// Ensure the roles master table exists first and seed it so users FK can be applied safely.
	if autoMigrate {
		if err := db.AutoMigrate(&models.Role{}); err != nil {
			log.Printf("migration warning (roles): %v", err)
		}
	}
	// seed master roles immediately
	roles := []models.Role{{Name: "administrator", Description: "full access"}, {Name: "user", Description: "regular user"}}
	for _, r := range roles {
		var cnt int64
		db.Model(&models.Role{}).Where("name = ?", r.Name).Count(&cnt)
		if cnt == 0 {
			db.Create(&r)
		}
	}

	if autoMigrate {
		// Migrate models individually so a failure on one doesn't block others
		if err := db.AutoMigrate(&models.User{}); err != nil {
			log.Printf("migration warning (users): %v", err)
		}
		if err := db.AutoMigrate(&models.RefreshToken{}); err != nil {
			log.Printf("migration warning (refresh_tokens): %v", err)
		}
		if err := db.AutoMigrate(&models.Campaign{}); err != nil {
			log.Printf("migration warning (campaigns): %v", err)
		}
		if err := db.AutoMigrate(&models.Snapshot{}); err != nil {
			log.Printf("migration warning (snapshots): %v", err)
		}
	}

	seedAdmin()
}

// seedAdmin creates an administrator account from env on first run.
func seedAdmin() {
	username := os.Getenv("ADMIN_USERNAME")
	password := os.Getenv("ADMIN_PASSWORD")
	if username == "" || password == "" {
		return
	}
	var existing models.User
	if err := db.Where("username = ?", username).First(&existing).Error; err == nil {
		return
	}
	var role models.Role
	if err := db.Where("name = ?", "administrator").First(&role).Error; err != nil {
		log.Printf("admin seed skipped: %v", err)
		return
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Printf("admin seed skipped: %v", err)
		return
	}
	rid := role.ID
	if err := db.Create(&models.User{Username: username, HashedPassword: hashed, RoleID: &rid}).Error; err != nil {
		log.Printf("admin seed failed: %v", err)
		return
	}
	log.Printf("seeded administrator %s", username)
}
