package redis

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/meterkit/pkg/apperr"
)

var (
	ErrFailedToParseRedisConnString = errors.New("failed to parse redis connection string")
	ErrRedisNotReady                = errors.New("redis did not become ready within the given time period")
	ErrEmptyConnectionURL           = errors.New("empty redis connection URL, set REDIS_URL")
	ErrHealthcheckFailed            = errors.New("redis healthcheck failed")
)

// Classify joins err with the matching apperr kind.
func Classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.Canceled):
		return err
	case errors.Is(err, redis.Nil):
		return errors.Join(apperr.ErrNotFound, err)
	default:
		return errors.Join(apperr.ErrUpstreamUnavailable, err)
	}
}
