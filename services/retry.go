package services

import (
	goerrors "errors"

	"github.com/poryaazizi7428/global-private-messenger/errors"
)

// Transient storage failures are retried a bounded number of times at the
// call site. Domain errors (authorization, validation, idempotency
// conflicts) surface immediately: retrying them cannot change the outcome.
const maxStoreRetries = 3

func isDomainError(err error) bool {
	return goerrors.Is(err, errors.ErrUnauthorized) ||
		goerrors.Is(err, errors.ErrNotFound) ||
		goerrors.Is(err, errors.ErrInvalidInput) ||
		goerrors.Is(err, errors.ErrInvalidContent) ||
		goerrors.Is(err, errors.ErrAlreadyDeleted) ||
		goerrors.Is(err, errors.ErrAlreadyMember) ||
		goerrors.Is(err, errors.ErrMessageDeleted) ||
		goerrors.Is(err, errors.ErrLastMember)
}

func withStoreRetry(fn func() error) error {
	var err error
	for i := 0; i < maxStoreRetries; i++ {
		err = fn()
		if err == nil || isDomainError(err) {
			return err
		}
	}
	return err
}
