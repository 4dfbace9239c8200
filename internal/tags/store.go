package tags

import (
	"gorm.io/gorm"

	"github.com/mwielgus/scribe/internal/models"
)

// LookupIn returns a LookupFunc backed by the database. The match is
// case-insensitive against stored titles; only persisted rows are
// visible to it.
func LookupIn(db *gorm.DB) LookupFunc {
	return func(title string) (*models.Tag, bool) {
		var tag models.Tag
		if err := db.Where("LOWER(title) = ?", title).First(&tag).Error; err != nil {
			return nil, false
		}
		return &tag, true
	}
}
