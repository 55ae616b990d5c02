// Package script loads tool sources into an embedded JavaScript runtime and
// invokes their functions by name.
//
// TypeScript and JavaScript sources are first passed through esbuild to erase
// type syntax and module syntax (CommonJS output), then compiled once into a
// goja runtime. A [Unit] is the loaded, cached executable form of one source.
//
// A function is addressable when it is a global binding or a property of
// module.exports. Arguments are passed positionally. A returned Promise is
// awaited by draining the runtime's job queue; a rejection or an unsettled
// promise is reported as an error.
//
// console.log/info/warn/error inside tool code are routed to the configured
// logger.
//
// The runtime has no event loop: timers (setTimeout, setInterval) and other
// host APIs are undefined, and a tool that references them fails with a
// ReferenceError. Only work that settles through the promise job queue
// (async functions, await on resolved values) completes.
//
// Contract:
// - Concurrency: a Unit serializes calls; goja runtimes are not goroutine-safe.
// - Context: a cancelled context interrupts the running call.
package script
