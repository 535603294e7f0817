package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/dmitrymomot/meterkit/pkg/apperr"
)

var (
	ErrFailedToConnectToMongo = errors.New("failed to connect to mongo")
	ErrEmptyConnectionURL     = errors.New("empty mongo connection URL, set MONGODB_URL")
	ErrHealthcheckFailed      = errors.New("mongo healthcheck failed")
)

// Classify joins err with the matching apperr kind.
func Classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.Canceled):
		return err
	case errors.Is(err, mongo.ErrNoDocuments):
		return errors.Join(apperr.ErrNotFound, err)
	case mongo.IsDuplicateKeyError(err):
		return errors.Join(apperr.ErrConflict, err)
	default:
		return errors.Join(apperr.ErrUpstreamUnavailable, err)
	}
}
