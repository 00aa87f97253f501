// Package dispatch consumes the engine's output events and routes each one
// to the display surface that handles it.
//
// A Loop pulls events one at a time from the engine channel and hands them to
// a Router. Handlers for text, error text, graphics and data views only post
// to a surface and return immediately. Handlers for paged and browse
// documents do storage I/O and the loop waits for them before pulling the
// next event, which back-pressures the engine. A prompt is handled in full
// (refresh, read input, deliver input) before the loop continues.
//
// Two conditions end the loop with an error: the channel closing and a
// failed console read during a prompt. Any other failure is logged, shown on
// the console, and the loop moves on.
//
//	slots := surface.NewSlots(logger)
//	router := dispatch.NewRouter(slots, eng.Storage(), eng, dispatch.WithLogger(logger))
//	loop := dispatch.NewLoop(eng.Events(), router, dispatch.WithLogger(logger))
//	err := loop.Run(ctx)
package dispatch
