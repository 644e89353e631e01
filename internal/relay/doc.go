// Package relay moves bookmark changes from the hosted database to Redis
// pub/sub, for clients running with the redis feed driver.
//
// A trigger queues every row change in the feed_outbox table and wakes the
// relay with NOTIFY feed_outbox. The relay drains the outbox in batches,
// encodes each change with feed.Encode and publishes it on the owner's
// feed.ChannelName. A batch is deleted in the same transaction that
// publishes it, so a failed publish leaves the rows queued and they are
// delivered again later. Subscribers apply changes idempotently.
package relay
