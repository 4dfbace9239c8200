package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"gorm.io/gorm"

	"github.com/mwielgus/scribe/internal/db"
	routes "github.com/mwielgus/scribe/internal/http"
	"github.com/mwielgus/scribe/internal/models"
	"github.com/mwielgus/scribe/internal/users"
	"github.com/mwielgus/scribe/internal/ws"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}

	database, err := db.Init()
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	log.Println("Running database migrations...")
	if err := database.AutoMigrate(
		&models.User{},
		&models.Category{},
		&models.Tag{},
		&models.Post{},
		&models.Comment{},
		&models.Image{},
		&models.Session{},
	); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("Migrations complete.")

	if err := seedAdmin(database); err != nil {
		log.Fatalf("Failed to seed admin account: %v", err)
	}

	hub := ws.NewHub()
	go hub.Run()

	userSvc := users.NewService(database)

	router := gin.Default()
	routes.SetupRoutes(router, database, hub, userSvc)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: router,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("Server listening on :%s", port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exiting")
}

// seedAdmin creates an initial admin account when none exists, so the
// at-least-one-admin invariant holds from the first boot. Controlled by
// ADMIN_EMAIL and ADMIN_PASSWORD.
func seedAdmin(database *gorm.DB) error {
	var count int64
	err := database.Model(&models.User{}).
		Where("roles LIKE ?", "%"+models.RoleAdmin+"%").
		Count(&count).Error
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	email := os.Getenv("ADMIN_EMAIL")
	password := os.Getenv("ADMIN_PASSWORD")
	if email == "" || password == "" {
		log.Println("No admin account exists and ADMIN_EMAIL/ADMIN_PASSWORD not set; skipping seed")
		return nil
	}

	hash, err := users.HashPassword(password)
	if err != nil {
		return err
	}
	admin := models.User{
		Email:    email,
		Nickname: "admin",
		Password: hash,
		Roles:    models.RoleList{models.RoleUser, models.RoleAdmin},
	}
	if err := database.Create(&admin).Error; err != nil {
		return err
	}
	log.Printf("Seeded admin account %s", email)
	return nil
}
