package pollmint

import (
	"strings"

	"github.com/everFinance/pollmint/schema"
	"gorm.io/gorm"
)

// CreatePoll stores a poll; meme coin polls consume one poll of the creator's package.
func (s *Pollmint) CreatePoll(creatorID string, req schema.ReqCreatePoll) (*schema.Poll, error) {
	poll := &schema.Poll{
		CreatorID:    creatorID,
		Question:     strings.TrimSpace(req.Question),
		OptionA:      strings.TrimSpace(req.OptionA),
		OptionB:      strings.TrimSpace(req.OptionB),
		MemeCoinMode: req.MemeCoinMode,
		Blockchain:   pollChain(strings.ToLower(req.Blockchain)),
	}
	if poll.Question == "" || poll.OptionA == "" || poll.OptionB == "" {
		return nil, schema.NewError(schema.KindInvalidParams, "question and both options are required")
	}
	if poll.MemeCoinMode {
		if _, ok := s.minter.Backend(poll.Blockchain); !ok {
			return nil, schema.NewError(schema.KindInvalidParams, "unsupported blockchain %q", poll.Blockchain)
		}
	}

	err := s.wdb.Db.Transaction(func(tx *gorm.DB) error {
		if poll.MemeCoinMode {
			if err := s.packages.Use(tx, creatorID); err != nil {
				return err
			}
		}
		return s.wdb.InsertPoll(tx, poll)
	})
	if err != nil {
		return nil, err
	}
	return poll, nil
}

// CompleteBattle records the winner a user picked in the battle game, once per (poll, user).
func (s *Pollmint) CompleteBattle(pollID uint, userID, winner string) (*schema.BattleCompletion, error) {
	winner = strings.ToUpper(strings.TrimSpace(winner))
	if winner != schema.OptionA && winner != schema.OptionB {
		return nil, schema.NewError(schema.KindInvalidParams, "winner must be A or B, got %q", winner)
	}
	if _, err := s.wdb.GetPoll(pollID); err != nil {
		return nil, err
	}
	bc := &schema.BattleCompletion{PollID: pollID, UserID: userID, Winner: winner}
	ok, err := s.wdb.InsertBattleCompletion(bc)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, schema.NewError(schema.KindBattleCompleted, "user %s already completed the battle of poll %d", userID, pollID)
	}
	return bc, nil
}
