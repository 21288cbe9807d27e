// Package users owns the users table that the history view and the
// foreign-key display lookups join against, and seeds the bootstrap
// administrator. Token issuance lives in the external auth service.
package users

import (
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/emprendopolis/Plataforma-sub001/pkg/domain"
)

// User is one directory row.
type User struct {
	ID           int64     `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"uniqueIndex;not null" json:"username"`
	PasswordHash string    `gorm:"not null" json:"-"`
	Role         string    `gorm:"not null" json:"role"`
	Localidad    string    `json:"localidad,omitempty"`
	CreatedAt    time.Time `gorm:"not null" json:"created_at"`
}

// TableName keeps the table name aligned with the history join and the
// foreign-key display rule.
func (User) TableName() string { return "users" }

// Directory is the user store.
type Directory struct {
	db *gorm.DB
}

// NewDirectory migrates the users table.
func NewDirectory(db *gorm.DB) (*Directory, error) {
	if err := db.AutoMigrate(&User{}); err != nil {
		return nil, domain.Upstreamf(err, "migrate users")
	}
	return &Directory{db: db}, nil
}

// EnsureAdmin seeds the bootstrap administrator when no user exists yet.
func (d *Directory) EnsureAdmin(username, password string) error {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil
	}
	var count int64
	if err := d.db.Model(&User{}).Count(&count).Error; err != nil {
		return domain.Upstreamf(err, "count users")
	}
	if count > 0 {
		return nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return domain.Upstreamf(err, "hash admin password")
	}
	admin := User{
		Username:     username,
		PasswordHash: string(hash),
		Role:         string(domain.RoleAdmin),
		CreatedAt:    time.Now().UTC(),
	}
	if err := d.db.Create(&admin).Error; err != nil {
		return domain.Upstreamf(err, "seed admin user")
	}
	return nil
}

