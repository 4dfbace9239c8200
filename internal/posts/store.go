package posts

import (
	"gorm.io/gorm"

	"github.com/mwielgus/scribe/internal/models"
)

// GetByID loads a post with its author, category, tags and images.
func GetByID(db *gorm.DB, id uint) (*models.Post, error) {
	var post models.Post
	err := db.Preload("Author").Preload("Category").Preload("Tags").Preload("Images").
		First(&post, id).Error
	if err != nil {
		return nil, err
	}
	return &post, nil
}

// Delete removes a post together with its comments and images and clears
// its tag associations, all in one transaction. Tags themselves survive;
// they may be referenced by other posts.
func Delete(db *gorm.DB, post *models.Post) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", post.ID).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", post.ID).Delete(&models.Image{}).Error; err != nil {
			return err
		}
		if err := tx.Model(post).Association("Tags").Clear(); err != nil {
			return err
		}
		return tx.Delete(post).Error
	})
}

// CountByCategory returns how many posts reference the category. A
// category may only be deleted when this is zero.
func CountByCategory(db *gorm.DB, categoryID uint) (int64, error) {
	var n int64
	err := db.Model(&models.Post{}).Where("category_id = ?", categoryID).Count(&n).Error
	return n, err
}

// CountByTag returns how many posts carry the tag. A tag may only be
// deleted when this is zero.
func CountByTag(db *gorm.DB, tagID uint) (int64, error) {
	var n int64
	err := db.Table("post_tags").Where("tag_id = ?", tagID).Count(&n).Error
	return n, err
}
