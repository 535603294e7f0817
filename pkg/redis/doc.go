// Package redis connects to Redis via go-redis with retry and exposes a
// health probe. The usage counter's Redis store is built on the client
// returned by Connect.
//
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer client.Close()
//
//	srv.AddHealthCheck("redis", redis.Healthcheck(client))
package redis
