package http

import (
	"errors"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mwielgus/scribe/internal/users"
)

type RegisterInput struct {
	Email    string `json:"email" binding:"required,email,max=180"`
	Nickname string `json:"nickname" binding:"required,min=2,max=20"`
	Password string `json:"password" binding:"required,min=6,max=255"`
}

type LoginInput struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func sessionTTL() time.Duration {
	hours := 72
	if v := os.Getenv("SESSION_TTL_HOURS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			hours = n
		}
	}
	return time.Duration(hours) * time.Hour
}

func (e *Env) Register(c *gin.Context) {
	var input RegisterInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
		return
	}

	user, err := e.Users.Register(input.Email, input.Nickname, input.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

// Login verifies credentials and sets the session cookie. Blocked
// accounts are refused here, before a session ever exists.
func (e *Env) Login(c *gin.Context) {
	var input LoginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
		return
	}

	user, err := e.Users.Authenticate(input.Email, input.Password)
	if err != nil {
		switch {
		case errors.Is(err, users.ErrAccountBlocked):
			c.JSON(http.StatusForbidden, gin.H{"error": err.Error(), "reason": "blocked"})
		case errors.Is(err, users.ErrInvalidLogin):
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		default:
			respondError(c, err)
		}
		return
	}

	session, err := e.Users.CreateSession(user, sessionTTL())
	if err != nil {
		respondError(c, err)
		return
	}

	c.SetCookie(sessionCookie, session.Token, int(time.Until(session.ExpiresAt).Seconds()), "/", "", false, true)
	c.JSON(http.StatusOK, user)
}

func (e *Env) Logout(c *gin.Context) {
	if token, err := c.Cookie(sessionCookie); err == nil && token != "" {
		if err := e.Users.DeleteSession(token); err != nil {
			respondError(c, err)
			return
		}
	}
	c.SetCookie(sessionCookie, "", -1, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

// Me returns the authenticated user.
func (e *Env) Me(c *gin.Context) {
	c.JSON(http.StatusOK, CurrentUser(c))
}
