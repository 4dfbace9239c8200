package http

import (
	"os"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
	"gorm.io/gorm"

	"github.com/mwielgus/scribe/internal/users"
	"github.com/mwielgus/scribe/internal/ws"
)

// SetupRoutes configures all application routes and middleware.
func SetupRoutes(router *gin.Engine, db *gorm.DB, hub *ws.Hub, userSvc *users.Service) {
	env := &Env{DB: db, Hub: hub, Users: userSvc}

	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(SecurityHeadersMiddleware())

	corsOrigin := os.Getenv("CORS_ORIGIN")
	if corsOrigin == "" {
		corsOrigin = "*"
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{corsOrigin},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))

	router.Use(SessionMiddleware(userSvc))

	limiter := NewIPRateLimiter(rate.Limit(rateLimitRPS), rateLimitBurst)

	api := router.Group("/api")
	{
		api.POST("/register", env.Register)
		api.POST("/login", env.Login)
		api.POST("/logout", env.Logout)
		api.GET("/me", RequireAuth(), env.Me)

		api.GET("/posts", env.ListPosts)
		api.GET("/posts/:id", env.GetPost)
		api.POST("/posts", RequireAuth(), env.CreatePost)
		api.PUT("/posts/:id", RequireAuth(), env.UpdatePost)
		api.DELETE("/posts/:id", RequireAuth(), env.DeletePost)

		api.POST("/posts/:id/comments", RequireAuth(), RateLimitMiddleware(limiter), env.CreateComment)
		api.PUT("/comments/:id", RequireAuth(), env.UpdateComment)
		api.DELETE("/comments/:id", RequireAuth(), env.DeleteComment)

		api.GET("/categories", env.ListCategories)
		api.POST("/categories", RequireAdmin(), env.CreateCategory)
		api.PUT("/categories/:id", RequireAdmin(), env.UpdateCategory)
		api.DELETE("/categories/:id", RequireAdmin(), env.DeleteCategory)

		api.GET("/tags", env.ListTags)
		api.POST("/tags", RequireAdmin(), env.CreateTag)
		api.DELETE("/tags/:id", RequireAdmin(), env.DeleteTag)

		admin := api.Group("/admin", RequireAdmin())
		{
			admin.GET("/users", env.ListUsers)
			admin.PUT("/users/:id", env.UpdateUser)
		}
	}

	router.GET("/ws", func(c *gin.Context) {
		ws.ServeWs(hub, c.Writer, c.Request)
	})
}
