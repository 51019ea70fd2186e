// Package env provides the shared-state coordinator for the host process.
//
// A single goroutine owns every piece of coordinator state and processes one
// message at a time, so access is race-free by construction and no locks are
// involved. Callers interact through synchronous request/reply methods or
// one-way sends; blocking calls park the caller, never the loop.
//
// Key Components:
//   - Key/value store with blocking Await and put-notifies-waiters semantics
//   - Lifecycle event buffer with exactly-once replay to the first subscriber
//     and live fan-out afterwards
//   - Window and subscriber registries with death-triggered cleanup
//   - Lazy, crash-isolated side service bootstrap, memoized for the
//     coordinator's lifetime
//
// Example Usage:
//
//	coord := env.New(env.Options{Logger: logger})
//	defer coord.Close()
//
//	coord.Put("theme", "dark")
//	v := coord.Get("theme", "light") // "dark"
//
//	go func() {
//	    lang, _ := coord.Await(ctx, "lang") // blocks until Put("lang", ...)
//	    use(lang)
//	}()
package env
