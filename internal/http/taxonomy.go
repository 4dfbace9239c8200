package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mwielgus/scribe/internal/models"
	"github.com/mwielgus/scribe/internal/posts"
)

type CategoryInput struct {
	Name string `json:"name" binding:"required,min=2,max=64"`
}

type TagInput struct {
	Title string `json:"title" binding:"required,min=3,max=64"`
}

// --- Category handlers ---

func (e *Env) ListCategories(c *gin.Context) {
	var categories []models.Category
	if err := e.DB.Order("name").Find(&categories).Error; err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, categories)
}

func (e *Env) CreateCategory(c *gin.Context) {
	var input CategoryInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
		return
	}
	category := models.Category{Name: input.Name}
	if err := e.DB.Create(&category).Error; err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, category)
}

func (e *Env) UpdateCategory(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var category models.Category
	if err := e.DB.First(&category, id).Error; err != nil {
		respondError(c, err)
		return
	}
	var input CategoryInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
		return
	}
	category.Name = input.Name
	if err := e.DB.Save(&category).Error; err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, category)
}

// DeleteCategory refuses to delete a category that still has posts.
func (e *Env) DeleteCategory(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var category models.Category
	if err := e.DB.First(&category, id).Error; err != nil {
		respondError(c, err)
		return
	}

	n, err := posts.CountByCategory(e.DB, category.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	if n > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "category still referenced by posts", "reason": "in_use"})
		return
	}

	if err := e.DB.Delete(&category).Error; err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Category deleted"})
}

// --- Tag handlers ---

func (e *Env) ListTags(c *gin.Context) {
	var tagList []models.Tag
	if err := e.DB.Order("title").Find(&tagList).Error; err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tagList)
}

func (e *Env) CreateTag(c *gin.Context) {
	var input TagInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
		return
	}
	tag := models.Tag{Title: input.Title}
	if err := e.DB.Create(&tag).Error; err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, tag)
}

// DeleteTag refuses to delete a tag that is still attached to posts.
func (e *Env) DeleteTag(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var tag models.Tag
	if err := e.DB.First(&tag, id).Error; err != nil {
		respondError(c, err)
		return
	}

	n, err := posts.CountByTag(e.DB, tag.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	if n > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "tag still referenced by posts", "reason": "in_use"})
		return
	}

	if err := e.DB.Delete(&tag).Error; err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Tag deleted"})
}
