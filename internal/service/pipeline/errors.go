package pipeline

import "errors"

var (
	ErrNoAuthor          = errors.New("no author assigned")
	ErrNoEligibleAccount = errors.New("no active account for author")
	ErrNoValidAccounts   = errors.New("no valid accounts found")
	ErrPageUnavailable   = errors.New("company page inactive or account disconnected")
	ErrAccountInactive   = errors.New("posting account inactive or disconnected")
)
