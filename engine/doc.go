// Package engine hosts the interpreter guest and turns its output into events.
//
// The guest is a WASI preview1 module run on wazero. Its stdout and stderr
// are split into lines as they are written:
//
//	0x1E {json record} \n   event record, decoded with event.Decode
//	any other stdout line   event.Text
//	any stderr line         event.ErrorText
//
// Records follow RFC 7464 JSON text sequences, so a guest can mix ordinary
// print output with structured requests (prompts, plots, pager and browse
// requests) on a single stream.
//
// Events are sent on the guest's own goroutine, in the order the guest wrote
// them. A full event channel stalls the guest's write until the consumer
// catches up.
//
// Console input travels the other way: WriteConsole queues a line on the
// guest's stdin, where a blocked read picks it up.
//
// The engine's storage root is mounted as the guest's "/" and is shared with
// the host through Storage, which is how pager and browse requests are
// resolved.
//
// # Lifecycle
//
//	eng, err := engine.Start(ctx, engine.Config{Module: wasm, StorageRoot: dir})
//	...
//	for ev := range eng.Events() {
//	    ...
//	}
//	eng.Close(ctx)
//
// When the guest exits the engine sends a final event.ChannelClosed carrying
// the exit status (nil for a clean exit) and closes the channel.
//
// # Thread Safety
//
// Engine methods are safe for concurrent use. Events has a single consumer.
package engine
