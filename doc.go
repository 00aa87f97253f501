// Package wasmrepl runs an interactive interpreter compiled to WebAssembly
// and routes its output to display surfaces.
//
// The interpreter runs as a WASI preview1 guest on wazero. Everything it
// prints becomes a stream of typed events; a single dispatch loop hands
// each event to the console, the document viewer or the plot canvas.
//
// # Architecture Overview
//
//	wasmrepl/
//	├── engine/      wazero host: stdout/stderr framing into events, stdin queue
//	├── event/       event types and the JSON record decoder
//	├── storage/     sandboxed host directory shared with the guest
//	├── dispatch/    router and loop from engine events to surfaces
//	├── inline/      rewrites relative script/stylesheet refs to data URIs
//	├── surface/     surface interfaces, fail-fast stubs, rebindable slots
//	├── tui/         bubbletea front end implementing every surface
//	├── stdio/       line-mode surfaces for pipes and dumb terminals
//	├── htmlview/    HTML to markdown rendering and export
//	├── config/      viper-backed settings
//	├── errors/      structured error types
//	└── cmd/run/     command-line entry point
//
// # Quick Start
//
//	eng, err := engine.Start(ctx, engine.Config{Module: wasm, StorageRoot: dir})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer eng.Close(ctx)
//
//	slots := surface.NewSlots(logger)
//	router := dispatch.NewRouter(slots, eng.Storage(), eng)
//	loop := dispatch.NewLoop(eng.Events(), router)
//
//	slots.SetConsole(console) // once the UI has mounted
//	err = loop.Run(ctx)
//
// # Guest Protocol
//
// Plain stdout lines are console text and stderr lines are error text.
// Structured requests are RFC 7464 records on stdout: a 0x1E byte, a JSON
// object {"type": ..., "data": ...} and a newline. See package event for
// the record types.
package wasmrepl
