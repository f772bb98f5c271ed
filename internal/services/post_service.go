package services

import (
	"errors"
	"time"

	"driftwood/internal/db"
	"driftwood/internal/models"

	"gorm.io/gorm"
)

// MaxPageSize bounds a feed page regardless of what the client asks for.
const MaxPageSize = 50

type PostService struct{}

func NewPostService() *PostService {
	return &PostService{}
}

// List returns one feed page ordered newest first. When cursor is set, only
// posts strictly older than it are considered, which keeps pages stable under
// concurrent inserts. It fetches limit+1 rows so hasMore needs no count query.
func (s *PostService) List(limit int, cursor *time.Time) (posts []models.Post, hasMore bool, err error) {
	if limit < 1 {
		limit = 1
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	q := db.DB.Order("created_at DESC").Limit(limit + 1)
	if cursor != nil {
		q = q.Where("created_at < ?", *cursor)
	}
	if err := q.Find(&posts).Error; err != nil {
		return nil, false, err
	}

	if len(posts) == limit+1 {
		return posts[:limit], true, nil
	}
	return posts, false, nil
}

func (s *PostService) Get(id uint) (*models.Post, error) {
	var post models.Post
	if err := db.DB.First(&post, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &post, nil
}

func (s *PostService) Create(authorID uint, title, content string) (*models.Post, error) {
	post := models.Post{
		Title:    title,
		Content:  content,
		AuthorID: authorID,
	}
	if err := db.DB.Create(&post).Error; err != nil {
		return nil, err
	}
	return &post, nil
}

// Update rewrites title and content. Only the author may update; a missing
// post is ErrNotFound, someone else's post is ErrNotAuthorized.
func (s *PostService) Update(id, callerID uint, title, content string) (*models.Post, error) {
	var post models.Post
	if err := db.DB.First(&post, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if post.AuthorID != callerID {
		return nil, ErrNotAuthorized
	}

	post.Title = title
	post.Content = content
	if err := db.DB.Save(&post).Error; err != nil {
		return nil, err
	}
	return &post, nil
}

// Delete removes the post and its ledger rows in one transaction so no
// orphaned votes survive.
func (s *PostService) Delete(id, callerID uint) error {
	return db.DB.Transaction(func(tx *gorm.DB) error {
		var post models.Post
		if err := tx.First(&post, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if post.AuthorID != callerID {
			return ErrNotAuthorized
		}

		if err := tx.Where("post_id = ?", id).Delete(&models.Vote{}).Error; err != nil {
			return err
		}
		return tx.Delete(&post).Error
	})
}
