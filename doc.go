// Package mongostore implements MongoDB-backed persistence for a service-bus
// runtime: a saga store with optimistic concurrency control and background
// unique-index maintenance, a lease-based timeout store safe for concurrent
// pollers, and a subscription store mapping event types to subscriber
// endpoints. The bus runtime itself - dispatch, transport, retries, envelope
// serialization - is outside the scope of this package.
package mongostore
