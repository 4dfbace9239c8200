package models

import (
	"database/sql/driver"
	"strings"
	"time"

	"gorm.io/gorm"
)

// Role names stored in User.Roles. Every user implicitly holds RoleUser;
// RoleAdmin is the only elevated role.
const (
	RoleUser  = "ROLE_USER"
	RoleAdmin = "ROLE_ADMIN"
)

// Post statuses.
const (
	StatusDraft     = "draft"
	StatusPublished = "published"
)

// User is an account that can author posts and administer the blog.
type User struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	Email     string    `gorm:"size:180;not null;uniqueIndex" json:"email"`
	Nickname  string    `gorm:"size:20;not null;uniqueIndex" json:"nickname"`
	Password  string    `gorm:"size:255;not null" json:"-"`
	Roles     RoleList  `gorm:"type:text;not null" json:"roles"`
	Blocked   bool      `gorm:"not null;default:false" json:"blocked"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// EffectiveRoles returns the stored roles with the base user role always
// present, deduplicated.
func (u *User) EffectiveRoles() []string {
	roles := make([]string, 0, len(u.Roles)+1)
	seen := make(map[string]bool, len(u.Roles)+1)
	for _, r := range u.Roles {
		if !seen[r] {
			seen[r] = true
			roles = append(roles, r)
		}
	}
	if !seen[RoleUser] {
		roles = append(roles, RoleUser)
	}
	return roles
}

// HasRole reports whether the user holds the given role. The base user
// role is always held.
func (u *User) HasRole(role string) bool {
	if role == RoleUser {
		return true
	}
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// RoleList stores the role slice as a comma-separated string so it works
// on both sqlite and postgres without a JSON column type.
type RoleList []string

func (r RoleList) Value() (driver.Value, error) {
	return strings.Join(r, ","), nil
}

func (r *RoleList) Scan(value interface{}) error {
	var s string
	switch v := value.(type) {
	case string:
		s = v
	case []byte:
		s = string(v)
	}
	if s == "" {
		*r = RoleList{}
		return nil
	}
	*r = RoleList(strings.Split(s, ","))
	return nil
}

// Post is a blog entry. Category is required; tags are optional.
// Comments and images belong to the post and go away with it.
type Post struct {
	ID         uint      `gorm:"primarykey" json:"id"`
	Title      string    `gorm:"size:255;not null" json:"title"`
	Content    string    `gorm:"type:text;not null" json:"content"`
	Status     string    `gorm:"size:20;not null;default:draft" json:"status"`
	AuthorID   uint      `gorm:"not null;index" json:"authorId"`
	Author     User      `gorm:"foreignKey:AuthorID" json:"author"`
	CategoryID uint      `gorm:"not null;index" json:"categoryId"`
	Category   Category  `gorm:"foreignKey:CategoryID" json:"category"`
	Tags       []Tag     `gorm:"many2many:post_tags" json:"tags"`
	Comments   []Comment `gorm:"foreignKey:PostID" json:"-"`
	Images     []Image   `gorm:"foreignKey:PostID" json:"images"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Comment carries its author identity as (email, nickname) rather than a
// user reference; comment authorization matches on email.
type Comment struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	Email     string    `gorm:"size:255;not null" json:"email"`
	Nickname  string    `gorm:"size:64;not null" json:"nickname"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	PostID    uint      `gorm:"not null;index" json:"postId"`
	CreatedAt time.Time `json:"createdAt"`
}

// Tag has a unique title. Storage is case sensitive; lookups during tag
// parsing treat titles case-insensitively.
type Tag struct {
	ID    uint   `gorm:"primarykey" json:"id"`
	Title string `gorm:"size:64;not null;uniqueIndex" json:"title"`
	Slug  string `gorm:"size:64;not null" json:"slug"`
}

func (t *Tag) BeforeSave(tx *gorm.DB) error {
	t.Slug = Slugify(t.Title)
	return nil
}

// Category groups posts. Every post references exactly one category.
type Category struct {
	ID   uint   `gorm:"primarykey" json:"id"`
	Name string `gorm:"size:64;not null;uniqueIndex" json:"name"`
	Slug string `gorm:"size:64;not null" json:"slug"`
}

func (c *Category) BeforeSave(tx *gorm.DB) error {
	c.Slug = Slugify(c.Name)
	return nil
}

// Image is a stored upload attached to a post. Binary storage lives
// outside this service; only the reference is kept here.
type Image struct {
	ID       uint   `gorm:"primarykey" json:"id"`
	Filename string `gorm:"size:255;not null" json:"filename"`
	PostID   uint   `gorm:"not null;index" json:"postId"`
}

// Session is a server-side login session referenced by a cookie token.
type Session struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	Token     string    `gorm:"size:64;not null;uniqueIndex" json:"-"`
	UserID    uint      `gorm:"not null;index" json:"userId"`
	User      User      `gorm:"foreignKey:UserID" json:"-"`
	ExpiresAt time.Time `gorm:"not null" json:"expiresAt"`
	CreatedAt time.Time `json:"createdAt"`
}

// Slugify lowercases s and collapses every run of non-alphanumeric
// characters into a single hyphen.
func Slugify(s string) string {
	var b strings.Builder
	lastHyphen := true
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
