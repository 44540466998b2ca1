package bounty

import "errors"

var (
	ErrNotFound    = errors.New("bounty not found")
	ErrNotOpen     = errors.New("bounty is not open")
	ErrOwnBounty   = errors.New("cannot claim own bounty")
	ErrNotPoster   = errors.New("only the poster may cancel a bounty")
	ErrLevelTooLow = errors.New("teacher level below bounty minimum")
)
