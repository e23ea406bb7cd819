package service

import (
	"errors"
	"fmt"
)

var (
	ErrUnauthenticated    = errors.New("no authenticated user")
	ErrFamilyNotFound     = errors.New("family code not found")
	ErrNoFamily           = errors.New("no family found")
	ErrMemberNotFound     = errors.New("member not found")
	ErrAlreadyMember      = errors.New("already a member of this family")
	ErrInvalidMember      = errors.New("invalid member to link")
	ErrPermissionDenied   = errors.New("permission denied")
	ErrAlreadyApproved    = errors.New("already approved")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrCodeSpaceExhausted = errors.New("could not find an unused family code")
)

// IsNotFound reports whether err means a family or member does not exist
func IsNotFound(err error) bool {
	return errors.Is(err, ErrFamilyNotFound) || errors.Is(err, ErrNoFamily) || errors.Is(err, ErrMemberNotFound)
}

func invalidArgument(err error) error {
	return fmt.Errorf("%w: %v", ErrInvalidArgument, err)
}
