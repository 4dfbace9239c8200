// Package posts builds the listing query for posts and owns post
// persistence beyond simple lookups.
package posts

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/mwielgus/scribe/internal/models"
)

// PageSize is the fixed number of posts per listing page.
const PageSize = 10

// ErrInvalidFilter is returned for malformed filter input such as a
// negative category or tag id.
var ErrInvalidFilter = errors.New("invalid list filter")

// ListFilters narrows a post listing. Zero values mean "absent".
type ListFilters struct {
	CategoryID int    `form:"categoryId"`
	TagID      int    `form:"tagId"`
	Search     string `form:"search"`
	Sort       string `form:"sort"`
	Direction  string `form:"direction"`
}

// Page is one page of listing results.
type Page struct {
	Items      []models.Post `json:"items"`
	Page       int           `json:"page"`
	TotalCount int64         `json:"totalCount"`
	PageSize   int           `json:"pageSize"`
}

// sortColumns is the allow-list of sortable fields. Anything else falls
// back to the default ordering instead of being passed to SQL.
var sortColumns = map[string]string{
	"id":        "posts.id",
	"createdAt": "posts.created_at",
	"updatedAt": "posts.updated_at",
	"title":     "posts.title",
	"category":  "categories.name",
}

// BuildQuery assembles the listing query for the given actor and
// filters. An unauthenticated request (nil actor) only sees published
// posts; any authenticated actor sees every status, drafts of other
// authors included. That asymmetry is deliberate here: it reproduces
// the production rule set as-is.
func BuildQuery(db *gorm.DB, actor *models.User, f ListFilters) (*gorm.DB, error) {
	if f.CategoryID < 0 || f.TagID < 0 {
		return nil, ErrInvalidFilter
	}

	q := db.Model(&models.Post{}).
		Joins("JOIN categories ON categories.id = posts.category_id").
		Preload("Author").
		Preload("Category").
		Preload("Tags")

	if actor == nil {
		q = q.Where("posts.status = ?", models.StatusPublished)
	}

	if f.CategoryID > 0 {
		q = q.Where("posts.category_id = ?", f.CategoryID)
	}

	if f.TagID > 0 {
		q = q.Joins("JOIN post_tags ON post_tags.post_id = posts.id").
			Where("post_tags.tag_id = ?", f.TagID)
	}

	if f.Search != "" {
		like := "%" + strings.ToLower(f.Search) + "%"
		q = q.Where("LOWER(posts.title) LIKE ? OR LOWER(posts.content) LIKE ?", like, like)
	}

	return q.Order(orderClause(f.Sort, f.Direction)), nil
}

// Paginate executes the listing query for one page.
func Paginate(q *gorm.DB, page int) (*Page, error) {
	if page < 1 {
		page = 1
	}

	var total int64
	countQ := q.Session(&gorm.Session{})
	if err := countQ.Distinct("posts.id").Count(&total).Error; err != nil {
		return nil, err
	}

	var items []models.Post
	offset := (page - 1) * PageSize
	if err := q.Limit(PageSize).Offset(offset).Find(&items).Error; err != nil {
		return nil, err
	}

	return &Page{
		Items:      items,
		Page:       page,
		TotalCount: total,
		PageSize:   PageSize,
	}, nil
}

func orderClause(sort, direction string) string {
	col, ok := sortColumns[sort]
	if !ok {
		return "posts.updated_at DESC"
	}
	dir := "DESC"
	if strings.EqualFold(direction, "asc") {
		dir = "ASC"
	}
	return col + " " + dir
}
