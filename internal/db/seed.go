package db

import (
	"log"

	"github.com/ecurie-aix/rover-panel/internal/config"
	"github.com/ecurie-aix/rover-panel/internal/models"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// basePermissions are created at startup so the admin screens always have
// the full grid to toggle. Further names are materialized lazily on first
// grant or request.
var basePermissions = []string{
	models.PermDashboard,
	models.PermPilotage,
	models.PermHistorique,
	models.PermAdmin,
	models.PermSuperAdmin,
}

// Seed creates the base permissions and, when ADMIN_PASSWORD is set, an
// administrator account holding all of them. Both steps are idempotent.
func Seed(db *gorm.DB, admin config.AdminConfig) error {
	for _, name := range basePermissions {
		perm := models.Permission{Name: name}
		if err := db.Where("name = ?", name).FirstOrCreate(&perm).Error; err != nil {
			return err
		}
	}
	return seedAdmin(db, admin)
}

func seedAdmin(db *gorm.DB, admin config.AdminConfig) error {
	if admin.Password == "" {
		log.Println("ADMIN_PASSWORD not set, skipping admin seed")
		return nil
	}

	var existing models.User
	err := db.Where("username = ?", admin.Username).First(&existing).Error
	if err == nil {
		return nil // already seeded
	}
	if err != gorm.ErrRecordNotFound {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(admin.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	user := models.User{
		Username:  admin.Username,
		Email:     admin.Email,
		Password:  string(hash),
		FirstName: "Admin",
		LastName:  "User",
		Active:    true,
	}

	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&user).Error; err != nil {
			return err
		}
		var perms []models.Permission
		if err := tx.Where("name IN ?", basePermissions).Find(&perms).Error; err != nil {
			return err
		}
		if err := tx.Model(&user).Association("Permissions").Append(&perms); err != nil {
			return err
		}
		log.Printf("admin account %q created", admin.Username)
		return nil
	})
}
