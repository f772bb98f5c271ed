package services

import (
	"testing"
	"time"

	"driftwood/internal/db"
	"driftwood/internal/models"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// setupTestDB points the package-level db handle at a fresh in-memory
// database for the duration of one test.
func setupTestDB(t *testing.T) {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	// One connection, or every pooled conn would see its own empty memory db.
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.Migrate(gdb))

	prev := db.DB
	db.DB = gdb
	t.Cleanup(func() { db.DB = prev })
}

func createTestUser(t *testing.T, username string) *models.User {
	t.Helper()
	user := models.User{
		Username: username,
		Email:    username + "@example.com",
		Password: "hash",
	}
	require.NoError(t, db.DB.Create(&user).Error)
	return &user
}

func createTestPost(t *testing.T, authorID uint, title string, createdAt time.Time) *models.Post {
	t.Helper()
	post := models.Post{
		Title:    title,
		Content:  "body of " + title,
		AuthorID: authorID,
	}
	require.NoError(t, db.DB.Create(&post).Error)
	// AutoCreateTime stamps on insert; pin the cursor key explicitly.
	require.NoError(t, db.DB.Model(&post).UpdateColumn("created_at", createdAt).Error)
	post.CreatedAt = createdAt
	return &post
}

func postScore(t *testing.T, postID uint) int {
	t.Helper()
	var post models.Post
	require.NoError(t, db.DB.First(&post, postID).Error)
	return post.Score
}

func ledgerSum(t *testing.T, postID uint) int {
	t.Helper()
	var sum int64
	require.NoError(t, db.DB.Model(&models.Vote{}).
		Where("post_id = ?", postID).
		Select("COALESCE(SUM(value), 0)").
		Scan(&sum).Error)
	return int(sum)
}

func ledgerCount(t *testing.T, userID, postID uint) int64 {
	t.Helper()
	var count int64
	require.NoError(t, db.DB.Model(&models.Vote{}).
		Where("user_id = ? AND post_id = ?", userID, postID).
		Count(&count).Error)
	return count
}
