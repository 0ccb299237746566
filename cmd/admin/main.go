package main

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gorm.io/gorm"

	"hirehub/internal/auth"
	"hirehub/internal/config"
	"hirehub/internal/database"
)

// Seeds the first Admin account. The generated password is printed once.
func main() {
	var (
		name  = flag.String("name", "Administrator", "display name for the admin account")
		email = flag.String("email", "", "email for the admin account (required)")
	)
	flag.Parse()

	e := strings.TrimSpace(*email)
	if e == "" {
		log.Fatal("missing required flag: --email")
	}

	_ = godotenv.Load()
	cfg := config.MustLoad()

	db, err := database.InitDatabase(cfg.Database)
	if err != nil {
		log.Fatalf("init database: %v", err)
	}

	if err := db.AutoMigrate(&database.User{}); err != nil {
		log.Fatalf("auto migrate: %v", err)
	}

	var existing database.User
	switch err := db.Where("email = ?", e).First(&existing).Error; {
	case err == nil:
		log.Fatalf("user %q already exists", e)
	case errors.Is(err, gorm.ErrRecordNotFound):
	default:
		log.Fatalf("query user: %v", err)
	}

	password, err := generateRandomPassword(24)
	if err != nil {
		log.Fatalf("generate password: %v", err)
	}

	authService, err := auth.NewService(cfg.Auth.JWTSecret, 30*24*time.Hour)
	if err != nil {
		log.Fatalf("init auth service: %v", err)
	}
	hashed, err := authService.HashPassword(password)
	if err != nil {
		log.Fatalf("hash password: %v", err)
	}

	user := database.User{
		Name:     strings.TrimSpace(*name),
		Email:    e,
		Password: hashed,
		Role:     database.RoleAdmin,
		Status:   database.StatusActive,
	}
	if err := db.Create(&user).Error; err != nil {
		log.Fatalf("create user: %v", err)
	}

	fmt.Printf("Admin account created:\n")
	fmt.Printf("email: %s\n", e)
	fmt.Printf("password: %s\n", password)
	fmt.Printf("This password is shown only once. Log in and change it.\n")
}

func generateRandomPassword(bytesLen int) (string, error) {
	if bytesLen <= 0 {
		bytesLen = 24
	}
	buf := make([]byte, bytesLen)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
