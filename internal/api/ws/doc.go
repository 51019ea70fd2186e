// Package ws provides the WebSocket attachment surface for application
// windows and event consumers.
//
// Each connection carries a context whose lifetime is the socket's: every
// window registration and event subscription made over a connection dies
// with it, and the coordinator cleans up automatically. The socket closing
// IS the death notification; no unregister protocol exists.
//
// Message Types (Client → Server):
//   - register_window: Register a window handle bound to this connection
//   - subscribe: Subscribe to OS lifecycle events
//   - publish: Publish an OS lifecycle event
//   - put: Store a key/value pair
//   - get: Read a key with an optional default
//   - await: Block until a key is populated
//   - ping: Keep-alive ping
//
// Message Types (Server → Client):
//   - system: Connection banner
//   - registered: Window registration acknowledgment
//   - subscribed: Subscription acknowledgment
//   - event: OS lifecycle event delivery
//   - value: Reply to put/get/await
//   - pong: Keep-alive reply
//   - error: Error occurred
//
// Example Usage:
//
//	handler := ws.NewHandler(environment, logger, metrics)
//	router.GET("/stream", handler.HandleConnection)
package ws
