// Package eventx carries domain events out of the request path.
//
// Events are built with NewEvent and handed to a Bus. MemoryBus dispatches
// in process. sqsbus forwards the sealed Envelope to an SQS queue, where a
// consumer reads it back with Peek or Open:
//
//	bus := eventx.NewMemoryBus()
//	eventx.SubscribeTyped(bus, "prescription.confirmed", func(ctx context.Context, e eventx.TypedEvent[Confirmed]) error {
//		return notify(ctx, e.Data())
//	})
//	_ = bus.Publish(ctx, eventx.NewEvent("prescription.confirmed", payload, eventx.WithSubject(userID)))
package eventx
