// Package feed delivers row-change events for the signed-in identity.
//
// Two transports are provided. PostgresSubscriber listens directly on the
// per-user NOTIFY channel that the bookmarks trigger publishes to;
// RedisSubscriber reads the same payloads relayed through a Redis pub/sub
// channel of the same name. Both produce Subscription values whose Close is
// synchronous: once it returns no further event is sent on Events.
package feed
