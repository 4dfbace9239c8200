package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/mwielgus/scribe/internal/authz"
	"github.com/mwielgus/scribe/internal/models"
	"github.com/mwielgus/scribe/internal/posts"
	"github.com/mwielgus/scribe/internal/tags"
	"github.com/mwielgus/scribe/internal/users"
	"github.com/mwielgus/scribe/internal/ws"
)

const (
	rateLimitRPS   = 1.0 / 3.0 // 1 request every 3 seconds
	rateLimitBurst = 1
)

// Env carries the shared handler dependencies.
type Env struct {
	DB    *gorm.DB
	Hub   *ws.Hub
	Users *users.Service
}

// --- Structs for request binding ---

type PostInput struct {
	Title      string `json:"title" binding:"required,min=3,max=255"`
	Content    string `json:"content" binding:"required,min=3"`
	Status     string `json:"status" binding:"required,oneof=draft published"`
	CategoryID uint   `json:"categoryId" binding:"required"`
	Tags       string `json:"tags"` // free text, comma separated
}

type CommentInput struct {
	Content string `json:"content" binding:"required,min=2,max=512"`
}

// WsMessage is the JSON envelope pushed to websocket clients.
type WsMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// respondError maps the typed rejections onto HTTP statuses with a
// machine-readable reason, so the client can show a specific message.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, authz.ErrPermissionDenied):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error(), "reason": "forbidden"})
	case errors.Is(err, authz.ErrLastAdmin):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "reason": "last_admin"})
	case errors.Is(err, authz.ErrSelfBlock):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "reason": "self_block"})
	case errors.Is(err, posts.ErrInvalidFilter):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "reason": "invalid_filter"})
	case errors.Is(err, gorm.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found", "reason": "not_found"})
	case errors.Is(err, gorm.ErrDuplicatedKey):
		c.JSON(http.StatusConflict, gin.H{"error": "already exists", "reason": "duplicate"})
	default:
		log.Printf("internal error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func pathID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return uint(id), true
}

// --- Post handlers ---

// ListPosts serves the paginated listing. Visibility depends on who is
// asking: anonymous callers only see published posts.
func (e *Env) ListPosts(c *gin.Context) {
	var filters posts.ListFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid filters: " + err.Error(), "reason": "invalid_filter"})
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))

	query, err := posts.BuildQuery(e.DB, CurrentUser(c), filters)
	if err != nil {
		respondError(c, err)
		return
	}
	result, err := posts.Paginate(query, page)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetPost serves one post with its comments.
func (e *Env) GetPost(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	post, err := posts.GetByID(e.DB, id)
	if err != nil {
		respondError(c, err)
		return
	}

	var comments []models.Comment
	if err := e.DB.Where("post_id = ?", post.ID).Order("created_at").Find(&comments).Error; err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"post": post, "comments": comments})
}

func (e *Env) CreatePost(c *gin.Context) {
	actor := CurrentUser(c)
	if !authz.Decide(actor, authz.PostCreate, nil) {
		respondError(c, authz.ErrPermissionDenied)
		return
	}

	var input PostInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
		return
	}

	var category models.Category
	if err := e.DB.First(&category, input.CategoryID).Error; err != nil {
		respondError(c, err)
		return
	}

	post := models.Post{
		Title:      input.Title,
		Content:    input.Content,
		Status:     input.Status,
		AuthorID:   actor.ID,
		CategoryID: category.ID,
		Tags:       tags.Parse(input.Tags, tags.LookupIn(e.DB)),
	}
	if err := e.DB.Create(&post).Error; err != nil {
		respondError(c, err)
		return
	}

	if post.Status == models.StatusPublished {
		e.broadcastMessage(WsMessage{Type: "new_post", Data: gin.H{"id": post.ID, "title": post.Title}})
	}
	c.JSON(http.StatusCreated, post)
}

func (e *Env) UpdatePost(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	post, err := posts.GetByID(e.DB, id)
	if err != nil {
		respondError(c, err)
		return
	}
	if !authz.Decide(CurrentUser(c), authz.PostEdit, post) {
		respondError(c, authz.ErrPermissionDenied)
		return
	}

	var input PostInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
		return
	}

	var category models.Category
	if err := e.DB.First(&category, input.CategoryID).Error; err != nil {
		respondError(c, err)
		return
	}

	newTags := tags.Parse(input.Tags, tags.LookupIn(e.DB))

	err = e.DB.Transaction(func(tx *gorm.DB) error {
		post.Title = input.Title
		post.Content = input.Content
		post.Status = input.Status
		post.CategoryID = category.ID
		// Save without associations first, then swap the tag set, so the
		// stale Tags slice cannot resurrect removed join rows.
		if err := tx.Omit("Tags").Save(post).Error; err != nil {
			return err
		}
		return tx.Model(post).Association("Tags").Replace(newTags)
	})
	if err != nil {
		respondError(c, err)
		return
	}
	post.Tags = newTags
	post.Category = category
	c.JSON(http.StatusOK, post)
}

func (e *Env) DeletePost(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	post, err := posts.GetByID(e.DB, id)
	if err != nil {
		respondError(c, err)
		return
	}
	if !authz.Decide(CurrentUser(c), authz.PostDelete, post) {
		respondError(c, authz.ErrPermissionDenied)
		return
	}

	if err := posts.Delete(e.DB, post); err != nil {
		respondError(c, err)
		return
	}
	e.broadcastMessage(WsMessage{Type: "delete_post", Data: gin.H{"id": post.ID}})
	c.JSON(http.StatusOK, gin.H{"message": "Post deleted"})
}

// --- Comment handlers ---

// CreateComment attaches a comment to a post. The comment's identity is
// taken from the acting user; the comment is owned by that email from
// then on.
func (e *Env) CreateComment(c *gin.Context) {
	actor := CurrentUser(c)
	if !authz.Decide(actor, authz.CommentCreate, nil) {
		respondError(c, authz.ErrPermissionDenied)
		return
	}

	id, ok := pathID(c)
	if !ok {
		return
	}
	var post models.Post
	if err := e.DB.First(&post, id).Error; err != nil {
		respondError(c, err)
		return
	}

	var input CommentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
		return
	}

	comment := models.Comment{
		Email:    actor.Email,
		Nickname: actor.Nickname,
		Content:  input.Content,
		PostID:   post.ID,
	}
	if err := e.DB.Create(&comment).Error; err != nil {
		respondError(c, err)
		return
	}

	e.broadcastMessage(WsMessage{Type: "new_comment", Data: gin.H{"postId": post.ID, "id": comment.ID}})
	c.JSON(http.StatusCreated, comment)
}

func (e *Env) UpdateComment(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var comment models.Comment
	if err := e.DB.First(&comment, id).Error; err != nil {
		respondError(c, err)
		return
	}
	if !authz.Decide(CurrentUser(c), authz.CommentEdit, &comment) {
		respondError(c, authz.ErrPermissionDenied)
		return
	}

	var input CommentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
		return
	}

	comment.Content = input.Content
	if err := e.DB.Save(&comment).Error; err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, comment)
}

func (e *Env) DeleteComment(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var comment models.Comment
	if err := e.DB.First(&comment, id).Error; err != nil {
		respondError(c, err)
		return
	}
	if !authz.Decide(CurrentUser(c), authz.CommentDelete, &comment) {
		respondError(c, authz.ErrPermissionDenied)
		return
	}

	if err := e.DB.Delete(&comment).Error; err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Comment deleted"})
}

// broadcastMessage pushes a message to every websocket client.
func (e *Env) broadcastMessage(msg WsMessage) {
	jsonMsg, err := json.Marshal(msg)
	if err != nil {
		log.Printf("Error marshalling WS message: %v", err)
		return
	}
	e.Hub.Broadcast <- jsonMsg
}
