package tags

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mwielgus/scribe/internal/models"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&models.Tag{}))
	return db
}

func noLookup(string) (*models.Tag, bool) { return nil, false }

func TestSerialize(t *testing.T) {
	assert.Equal(t, "", Serialize(nil))
	assert.Equal(t, "", Serialize([]models.Tag{}))
	assert.Equal(t, "golang", Serialize([]models.Tag{{Title: "golang"}}))
	assert.Equal(t, "golang, web, Testing", Serialize([]models.Tag{
		{Title: "golang"}, {Title: "web"}, {Title: "Testing"},
	}))
}

func TestParseTrimsAndDropsEmptySegments(t *testing.T) {
	got := Parse("  golang , , web ,   ", noLookup)
	require.Len(t, got, 2)
	assert.Equal(t, "golang", got[0].Title)
	assert.Equal(t, "web", got[1].Title)

	assert.Empty(t, Parse("", noLookup))
	assert.Empty(t, Parse(" , ,, ", noLookup))
}

func TestParseReusesPersistedTagsCaseInsensitively(t *testing.T) {
	db := openTestDB(t)
	stored := models.Tag{Title: "Golang"}
	require.NoError(t, db.Create(&stored).Error)

	got := Parse("golang, web", LookupIn(db))
	require.Len(t, got, 2)

	assert.Equal(t, stored.ID, got[0].ID, "existing tag is reused")
	assert.Equal(t, "Golang", got[0].Title, "stored casing wins")

	assert.Zero(t, got[1].ID, "unknown tag is constructed unsaved")
	assert.Equal(t, "web", got[1].Title)
}

func TestRoundTrip(t *testing.T) {
	db := openTestDB(t)
	list := []models.Tag{{Title: "golang"}, {Title: "web"}, {Title: "testing"}}
	for i := range list {
		require.NoError(t, db.Create(&list[i]).Error)
	}

	got := Parse(Serialize(list), LookupIn(db))
	require.Len(t, got, len(list))
	for i := range list {
		assert.Equal(t, list[i].ID, got[i].ID, "identity preserved in order")
		assert.Equal(t, list[i].Title, got[i].Title)
	}
}

// Duplicate segments differing only by case within one input each get
// their own unsaved Tag, because the lookup only sees persisted rows.
// Saving both then trips the title uniqueness constraint. This matches
// the current production behavior and is asserted as such.
func TestParseDoesNotDeduplicateWithinOneInput(t *testing.T) {
	db := openTestDB(t)

	got := Parse(" Go ,  rust, Go", LookupIn(db))
	require.Len(t, got, 3)
	assert.Equal(t, "Go", got[0].Title)
	assert.Equal(t, "rust", got[1].Title)
	assert.Equal(t, "Go", got[2].Title)
	assert.Zero(t, got[0].ID)
	assert.Zero(t, got[2].ID)

	require.NoError(t, db.Create(&got[0]).Error)
	err := db.Create(&got[2]).Error
	require.Error(t, err, "second identical title must violate uniqueness")
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)
}
