// Package bootstrap provides initialization helpers shared by the
// channel-bridge runner and services embedding the bridge.
//
// This package consolidates:
//   - Logger setup with file rotation
//   - Redis connection management
//   - Kafka producer setup
//   - OpenTelemetry tracing initialization
//
// Example usage:
//
//	func main() {
//	    if err := bootstrap.InitLogger(cfg.Log, "channel-bridge"); err != nil {
//	        log.Fatal(err)
//	    }
//
//	    redisClient, err := bootstrap.InitRedis(ctx, cfg.Redis)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//
//	    shutdown, err := bootstrap.InitTracing(ctx, cfg.Tracing)
//	    if err != nil {
//	        log.Warn(err)
//	    }
//	    defer shutdown(ctx)
//	}
package bootstrap
