/*
Package events provides a lightweight pub/sub broker for node events.

The pool control plane publishes an event whenever a pool is opened or
closed on this node, a connection handle is registered or dropped, or a
pool map version changes. Subscribers (diagnostics endpoints, tests,
external watchers) receive events over buffered channels; a slow subscriber
never blocks publishers, it just misses events once its buffer fills.

# Event Types

  - pool.opened / pool.closed
  - handle.connected / handle.disconnected
  - map.updated

# Usage

	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()

	sub := broker.Subscribe()
	defer broker.Unsubscribe(sub)

	broker.Publish(&events.Event{
		Type:    events.EventPoolOpened,
		Message: "pool opened",
		Metadata: map[string]string{"pool_id": id.String()},
	})
*/
package events
