package mongo

import (
	"errors"

	"go.mongodb.org/mongo-driver/mongo"

	"rentspace/internal/domain/shared/errkind"
)

var ErrConcurrentUpdate = errkind.New(errkind.Conflict, "mongo: concurrent update detected")

// translateWriteError reports write conflicts between transactions as
// ErrConcurrentUpdate so the loser of a race is told to retry.
func translateWriteError(err error) error {
	if err == nil {
		return nil
	}
	var labeled mongo.LabeledError
	if errors.As(err, &labeled) && labeled.HasErrorLabel("TransientTransactionError") {
		return errkind.Wrap(errkind.Conflict, ErrConcurrentUpdate.Error(), err)
	}
	if mongo.IsDuplicateKeyError(err) {
		return ErrConcurrentUpdate
	}
	return err
}
