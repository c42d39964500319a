package scan

import (
	"context"

	"codeberg.org/mutker/healthsync/internal/errors"
)

// Identity resolves the signed-in user. It must fail with
// ErrUnauthenticated rather than guess.
type Identity interface {
	UserID(ctx context.Context) (string, error)
}

// StaticIdentity is a fixed user id, typically from configuration. An
// empty value means nobody is signed in.
type StaticIdentity string

func (s StaticIdentity) UserID(context.Context) (string, error) {
	if s == "" {
		return "", errors.New().New(ErrUnauthenticated)
	}
	return string(s), nil
}
