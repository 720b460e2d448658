// Package broadcast fans typed messages out to in-process subscribers.
//
// The stateful services (auth session, cart) publish a snapshot after every
// state change; views subscribe and re-render. Broadcast never blocks: a full
// subscriber buffer either drops the subscriber (DropSubscriber) or replaces
// the oldest pending message (KeepLatest).
//
//	b := broadcast.NewMemoryBroadcaster[State](1, broadcast.WithPolicy(broadcast.KeepLatest))
//	sub := b.Subscribe(ctx)
//	for msg := range sub.Receive(ctx) {
//		render(msg.Data)
//	}
package broadcast
