package services

import (
	"errors"

	"driftwood/internal/db"
	"driftwood/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Upvote / Downvote are the only values a ledger row may carry.
const (
	Upvote   = 1
	Downvote = -1
)

// voteState is the viewer's standing on a post before a cast.
type voteState int

const (
	noVote voteState = iota
	upvoted
	downvoted
)

func stateOf(value int) voteState {
	if value == Downvote {
		return downvoted
	}
	return upvoted
}

// NormalizeValue folds any raw vote value into {+1, -1}: only the downvote
// sentinel counts as a downvote, everything else is an upvote.
func NormalizeValue(raw int) int {
	if raw == Downvote {
		return Downvote
	}
	return Upvote
}

// transition returns the score delta and whether a ledger write is needed when
// a vote with normalized value next arrives against current state cur.
//
//	no vote  -> insert, score moves by the vote value
//	flip     -> update in place, score moves by twice the new value
//	re-vote  -> no write, no delta
func transition(cur voteState, next int) (delta int, write bool) {
	switch cur {
	case noVote:
		return next, true
	case upvoted:
		if next == Upvote {
			return 0, false
		}
		return 2 * next, true
	case downvoted:
		if next == Downvote {
			return 0, false
		}
		return 2 * next, true
	}
	return 0, false
}

type VoteService struct{}

func NewVoteService() *VoteService {
	return &VoteService{}
}

// CastVote records userID's vote on postID. The ledger write and the
// denormalized score adjustment are one transaction; either both land or
// neither does. Re-casting the same value is a no-op.
func (s *VoteService) CastVote(userID, postID uint, rawValue int) error {
	value := NormalizeValue(rawValue)

	return db.DB.Transaction(func(tx *gorm.DB) error {
		cur := noVote
		var existing models.Vote
		err := tx.Where("user_id = ? AND post_id = ?", userID, postID).First(&existing).Error
		switch {
		case err == nil:
			cur = stateOf(existing.Value)
		case errors.Is(err, gorm.ErrRecordNotFound):
			// first vote on this post
		default:
			return err
		}

		return s.applyCast(tx, userID, postID, cur, value)
	})
}

// applyCast performs the ledger write and score delta for a cast that
// observed ledger state cur. Both writes are conditional on cur still being
// true when the row lock is taken: a cast that lost the race with a
// concurrent cast on the same (user, post) applies nothing, instead of
// re-applying a delta computed from a stale read. The surviving outcome
// always equals some serial order of the racing casts, which keeps
// score == sum(ledger) without a SELECT ... FOR UPDATE.
func (s *VoteService) applyCast(tx *gorm.DB, userID, postID uint, cur voteState, value int) error {
	delta, write := transition(cur, value)
	if !write {
		return nil
	}

	if cur == noVote {
		vote := models.Vote{UserID: userID, PostID: postID, Value: value}
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&vote)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// A concurrent cast inserted first; that cast's delta stands.
			return nil
		}
	} else {
		// A flip only applies while the row still holds the observed value.
		res := tx.Model(&models.Vote{}).
			Where("user_id = ? AND post_id = ? AND value = ?", userID, postID, -value).
			Update("value", value)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
	}

	// Relative delta, never read-modify-write: concurrent votes on the
	// same post must not lose updates.
	res := tx.Model(&models.Post{}).
		Where("id = ?", postID).
		UpdateColumn("score", gorm.Expr("score + ?", delta))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
