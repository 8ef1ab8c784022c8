package schema

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNotExist = errors.New("not_exist_record")
	ErrNotFound = errors.New("not_found")
)

// Kind tags an Error so callers can branch without string matching.
type Kind string

const (
	KindInsufficientCredits   Kind = "insufficient_credits"
	KindAlreadyVoted          Kind = "already_voted"
	KindTransactionNotFound   Kind = "transaction_not_found"
	KindNoValidTransfer       Kind = "no_valid_transfer"
	KindAlreadyProcessed      Kind = "already_processed"
	KindInsufficientGas       Kind = "insufficient_gas"
	KindTokenDeploymentFailed Kind = "token_deployment_failed"
	KindMintingFailed         Kind = "minting_failed"
	KindInvalidWalletAddress  Kind = "invalid_wallet_address"

	KindWalletChoiceRequired Kind = "wallet_choice_required"
	KindNoActivePackage      Kind = "no_active_package"
	KindBattleCompleted      Kind = "battle_completed"
	KindInvalidParams        Kind = "invalid_params"
	KindUnauthorized         Kind = "unauthorized"
	KindNotFound             Kind = "not_found"
	KindInternal             Kind = "internal"
)

type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func NewError(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func WrapError(kind Kind, err error, msg string) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error with the same kind, so errors.Is(err, &Error{Kind: k}) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the kind of the first *Error in err's chain, or KindInternal.
// A nil error has no kind.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	if errors.Is(err, ErrNotExist) || errors.Is(err, ErrNotFound) {
		return KindNotFound
	}
	return KindInternal
}

func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// HTTPStatus maps an error kind to the status code used by the api.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindInsufficientCredits:
		return http.StatusPaymentRequired
	case KindAlreadyVoted, KindAlreadyProcessed, KindBattleCompleted:
		return http.StatusConflict
	case KindTransactionNotFound, KindNotFound:
		return http.StatusNotFound
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindInsufficientGas, KindTokenDeploymentFailed, KindMintingFailed:
		return http.StatusBadGateway
	case KindInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}
