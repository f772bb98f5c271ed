package loader

import (
	"time"

	"driftwood/internal/models"

	"gorm.io/gorm"
)

// VoteKey addresses one ledger row. A typed composite key keeps the mapping
// collision-free and order-sensitive without string mangling.
type VoteKey struct {
	UserID uint
	PostID uint
}

// Bundle holds the per-request loader instances. A fresh Bundle is built for
// every incoming request; votes and authors can change between requests, so
// nothing here may be shared or reused across them.
type Bundle struct {
	Users *Loader[uint, *models.User]
	Votes *Loader[VoteKey, *models.Vote]
}

const (
	batchWait = 500 * time.Microsecond
	// A feed page tops out at limit+1 rows, so batches stay small; the cap
	// only guards against pathological callers.
	maxBatchSize = 200
)

// NewBundle builds the request-scoped loaders on top of gdb.
func NewBundle(gdb *gorm.DB) *Bundle {
	return &Bundle{
		Users: New(Config[uint, *models.User]{
			Wait:     batchWait,
			MaxBatch: maxBatchSize,
			Fetch:    fetchUsersByIDs(gdb),
		}),
		Votes: New(Config[VoteKey, *models.Vote]{
			Wait:     batchWait,
			MaxBatch: maxBatchSize,
			Fetch:    fetchVotesByKeys(gdb),
		}),
	}
}

func fetchUsersByIDs(gdb *gorm.DB) func(ids []uint) ([]*models.User, error) {
	return func(ids []uint) ([]*models.User, error) {
		var users []models.User
		if err := gdb.Where("id IN ?", ids).Find(&users).Error; err != nil {
			return nil, err
		}

		byID := make(map[uint]*models.User, len(users))
		for i := range users {
			byID[users[i].ID] = &users[i]
		}

		result := make([]*models.User, len(ids))
		for i, id := range ids {
			result[i] = byID[id] // nil when the id has no row
		}
		return result, nil
	}
}

func fetchVotesByKeys(gdb *gorm.DB) func(keys []VoteKey) ([]*models.Vote, error) {
	return func(keys []VoteKey) ([]*models.Vote, error) {
		pairs := make([][]interface{}, len(keys))
		for i, k := range keys {
			pairs[i] = []interface{}{k.UserID, k.PostID}
		}

		var votes []models.Vote
		if err := gdb.Where("(user_id, post_id) IN ?", pairs).Find(&votes).Error; err != nil {
			return nil, err
		}

		byKey := make(map[VoteKey]*models.Vote, len(votes))
		for i := range votes {
			byKey[VoteKey{UserID: votes[i].UserID, PostID: votes[i].PostID}] = &votes[i]
		}

		result := make([]*models.Vote, len(keys))
		for i, k := range keys {
			result[i] = byKey[k]
		}
		return result, nil
	}
}
