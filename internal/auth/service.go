package auth

import (
	"context"
	"errors"
	"fmt"
)

// Authenticate verifies a username/password pair against the user store.
//
// An unknown username and a wrong password both return
// ErrInvalidCredentials, so a caller cannot probe which usernames exist.
// A correct password on a deactivated account returns ErrUserInactive.
func Authenticate(ctx context.Context, repo UserRepository, username, password string) (*User, error) {
	user, err := repo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			// Burn a hash comparison anyway so timing does not reveal
			// whether the username exists.
			_, _ = VerifyPassword(password, dummyHash) //nolint:errcheck
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("looking up user: %w", err)
	}

	ok, err := VerifyPassword(password, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("verifying password: %w", err)
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}

	if !user.IsActive {
		return nil, ErrUserInactive
	}

	return user, nil
}

// dummyHash is a valid Argon2id hash of random bytes, used to equalise
// timing when the username does not exist.
const dummyHash = "$argon2id$v=19$m=65536,t=3,p=1$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"
