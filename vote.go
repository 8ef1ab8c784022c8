package pollmint

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/everFinance/pollmint/schema"
	"gorm.io/gorm"
)

// vote pipeline stages, used in logs
const (
	stageValidating = "validating"
	stageCrediting  = "crediting"
	stageRecording  = "recording"
	stageMinting    = "minting"
	stageDone       = "done"
)

type VoteRequest struct {
	UserID        string
	PollID        uint
	Option        string
	WalletAddress string
	CreditWallet  string
	DemoMode      bool
}

// Voter records votes and, on meme coin polls, pays one credit for a coin reward.
// Debit, vote row and tally commit together; a reward that definitely failed
// is compensated with a refund while the vote stands.
type Voter struct {
	wdb       *Wdb
	ledger    *Ledger
	minter    *Minter
	publisher Publisher
}

func NewVoter(wdb *Wdb, ledger *Ledger, minter *Minter, publisher Publisher) *Voter {
	if publisher == nil {
		publisher = nopPublisher{}
	}
	return &Voter{wdb: wdb, ledger: ledger, minter: minter, publisher: publisher}
}

// voteRef identifies the credit spent on a vote; a refund reuses it so it applies once.
func voteRef(pollID uint, userID string) string {
	return fmt.Sprintf("vote:%d:%s", pollID, userID)
}

func (v *Voter) Vote(ctx context.Context, req VoteRequest) (*schema.RespVote, error) {
	// validating
	option := strings.ToUpper(strings.TrimSpace(req.Option))
	if option != schema.OptionA && option != schema.OptionB {
		return nil, schema.NewError(schema.KindInvalidParams, "option must be A or B, got %q", req.Option)
	}
	if req.UserID == "" {
		return nil, schema.NewError(schema.KindUnauthorized, "missing user id")
	}
	poll, err := v.wdb.GetPoll(req.PollID)
	if err != nil {
		if errors.Is(err, schema.ErrNotExist) {
			return nil, schema.NewError(schema.KindNotFound, "poll %d not found", req.PollID)
		}
		return nil, err
	}
	if v.wdb.ExistVote(req.UserID, poll.ID) {
		return nil, schema.NewError(schema.KindAlreadyVoted, "user %s already voted on poll %d", req.UserID, poll.ID)
	}

	wallet := strings.TrimSpace(req.WalletAddress)
	paid := poll.MemeCoinMode && !req.DemoMode
	creditWallet := ""
	if paid && wallet == "" {
		return nil, schema.NewError(schema.KindWalletChoiceRequired, "poll %d rewards a coin, choose a wallet or demo mode", poll.ID)
	}
	if paid {
		backend, ok := v.minter.Backend(poll.Blockchain)
		if !ok {
			return nil, schema.NewError(schema.KindInvalidParams, "unsupported blockchain %q", poll.Blockchain)
		}
		if !backend.ValidateAddress(wallet) {
			return nil, schema.NewError(schema.KindInvalidWalletAddress, "invalid %s wallet %q", backend.Chain(), wallet)
		}
		creditWallet = req.CreditWallet
		if creditWallet == "" {
			creditWallet = wallet
		}
		if !common.IsHexAddress(creditWallet) {
			return nil, schema.NewError(schema.KindInvalidWalletAddress, "credits are held by an evm wallet, got %q", creditWallet)
		}
		creditWallet = normalizeWallet(creditWallet)
	}
	if paid {
		bal, err := v.ledger.GetCredits(creditWallet)
		if err != nil {
			return nil, err
		}
		if bal < schema.VoteCreditCost {
			return nil, schema.NewError(schema.KindInsufficientCredits, "wallet %s has %d credits, needs %d", creditWallet, bal, schema.VoteCreditCost)
		}
	}

	// crediting and recording commit together; a failure in either rolls both back
	vote := &schema.Vote{UserID: req.UserID, PollID: poll.ID, Option: option, Wallet: wallet}
	ref := voteRef(poll.ID, req.UserID)
	stage := stageRecording
	err = v.wdb.Db.Transaction(func(tx *gorm.DB) error {
		ok, err := v.wdb.InsertVote(tx, vote)
		if err != nil {
			return err
		}
		if !ok {
			return schema.NewError(schema.KindAlreadyVoted, "user %s already voted on poll %d", req.UserID, poll.ID)
		}
		if paid {
			stage = stageCrediting
			if err := v.ledger.debit(tx, creditWallet, schema.VoteCreditCost, schema.ReasonVote, ref); err != nil {
				return err
			}
			stage = stageRecording
		}
		return v.wdb.IncrPollVotes(tx, poll.ID, option)
	})
	if err != nil {
		log.Warn("vote rejected", "stage", stage, "err", err, "pollId", poll.ID, "userId", req.UserID)
		return nil, err
	}
	if paid {
		metricCredits(schema.ReasonVote, -schema.VoteCreditCost)
	}
	if option == schema.OptionA {
		poll.VotesA++
	} else {
		poll.VotesB++
	}

	resp := &schema.RespVote{Vote: *vote, Poll: *poll, RewardStatus: schema.RewardNone}
	if paid {
		resp.CreditsUsed = schema.VoteCreditCost
	}

	// minting
	if poll.MemeCoinMode {
		coin, err := v.minter.Mint(ctx, MintRequest{
			UserID:       req.UserID,
			Poll:         poll,
			Option:       option,
			Wallet:       wallet,
			CreditWallet: creditWallet,
			VoteID:       vote.ID,
			Demo:         req.DemoMode,
		})
		switch {
		case err != nil:
			log.Error("vote reward failed", "stage", stageMinting, "err", err, "pollId", poll.ID, "userId", req.UserID)
			resp.RewardStatus = schema.RewardFailed
			resp.RewardError = err.Error()
			resp.RewardErrorKind = schema.KindOf(err)
			if paid {
				resp.CreditRefunded = v.refund(creditWallet, ref)
			}
		case coin.Status == schema.CoinPending:
			resp.Coin = coin
			resp.RewardStatus = schema.RewardPending
		case coin.Status == schema.CoinFailed:
			resp.Coin = coin
			resp.RewardStatus = schema.RewardFailed
			resp.RewardError = coin.ErrMsg
			resp.RewardErrorKind = schema.KindMintingFailed
			if paid {
				resp.CreditRefunded = v.refund(creditWallet, ref)
			}
		default:
			resp.Coin = coin
			resp.RewardStatus = schema.RewardCreated
		}
	}

	// done
	if creditWallet != "" {
		if resp.RemainingCredits, err = v.ledger.GetCredits(creditWallet); err != nil {
			log.Error("v.ledger.GetCredits", "err", err, "wallet", creditWallet)
		}
	}
	log.Info("vote recorded", "stage", stageDone, "pollId", poll.ID, "userId", req.UserID, "option", option, "reward", resp.RewardStatus)
	metricVote(resp.RewardStatus)
	v.publisher.Publish(VoteTopic, schema.KafkaVote{
		VoteID:       vote.ID,
		PollID:       poll.ID,
		UserID:       req.UserID,
		Option:       option,
		RewardStatus: resp.RewardStatus,
		Refunded:     resp.CreditRefunded,
	})
	return resp, nil
}

func (v *Voter) refund(wallet, ref string) bool {
	applied, err := v.ledger.Refund(wallet, schema.VoteCreditCost, ref)
	if err != nil {
		log.Error("v.ledger.Refund", "err", err, "wallet", wallet, "ref", ref)
		return false
	}
	return applied
}

// Preview describes the coin a vote for option would earn.
func (v *Voter) Preview(pollID uint, option string) (schema.CoinPreview, error) {
	poll, err := v.wdb.GetPoll(pollID)
	if err != nil {
		return schema.CoinPreview{}, err
	}
	return coinPreview(poll, strings.ToUpper(option)), nil
}
