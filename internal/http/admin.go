package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mwielgus/scribe/internal/users"
)

const usersPageSize = 10

type UserUpdateInput struct {
	Roles    []string `json:"roles" binding:"required,min=1"`
	Blocked  bool     `json:"blocked"`
	Password string   `json:"password" binding:"omitempty,min=6,max=255"`
}

// ListUsers serves the paginated account list for the admin panel.
func (e *Env) ListUsers(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	list, total, err := e.Users.List(page, usersPageSize)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"items":      list,
		"page":       page,
		"totalCount": total,
		"pageSize":   usersPageSize,
	})
}

// UpdateUser applies an admin edit to an account. The last-admin and
// self-block safeguards are enforced inside the users service; a
// rejection leaves the account untouched and surfaces its reason code.
func (e *Env) UpdateUser(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var input UserUpdateInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
		return
	}

	updated, err := e.Users.UpdateAccount(CurrentUser(c), id, users.AccountUpdate{
		Roles:         input.Roles,
		Blocked:       input.Blocked,
		PlainPassword: input.Password,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}
