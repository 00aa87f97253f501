package engine

// Minimal WebAssembly binaries assembled by hand for engine tests.

var wasmHeader = []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}

func leb(n int) []byte {
	var out []byte
	for {
		b := byte(n & 0x7f)
		n >>= 7
		if n != 0 {
			out = append(out, b|0x80)
			continue
		}
		return append(out, b)
	}
}

func name(s string) []byte {
	return append(leb(len(s)), s...)
}

func section(id byte, content ...[]byte) []byte {
	var body []byte
	for _, c := range content {
		body = append(body, c...)
	}
	out := append([]byte{id}, leb(len(body))...)
	return append(out, body...)
}

func module(sections ...[]byte) []byte {
	out := append([]byte(nil), wasmHeader...)
	for _, s := range sections {
		out = append(out, s...)
	}
	return out
}

func le32(v int) []byte {
	return []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}
}

// emptyStartModule exports a _start that returns immediately.
func emptyStartModule() []byte {
	return module(
		section(0x01, []byte{0x01, 0x60, 0x00, 0x00}),
		section(0x03, []byte{0x01, 0x00}),
		section(0x07, []byte{0x01}, name("_start"), []byte{0x00, 0x00}),
		section(0x0a, []byte{0x01, 0x02, 0x00, 0x0b}),
	)
}

// writeModule exports a _start that writes each payload to fd with one
// fd_write call per payload.
func writeModule(fd byte, payloads ...string) []byte {
	// Memory layout per payload: iovec {ptr, len} at base, string at base+16.
	// nwritten lands at offset 8 of the first block.
	var code []byte
	var data [][]byte
	base := 32
	for _, p := range payloads {
		code = append(code,
			0x41, fd, // i32.const fd
			0x41) // i32.const iovs
		code = append(code, sleb(base)...)
		code = append(code,
			0x41, 0x01, // iovs_len
			0x41, 0x08, // nwritten
			0x10, 0x00, // call fd_write
			0x1a) // drop

		seg := append(le32(base+16), le32(len(p))...)
		seg = append(seg, make([]byte, 8)...)
		seg = append(seg, p...)
		entry := append([]byte{0x00, 0x41}, sleb(base)...)
		entry = append(entry, 0x0b)
		entry = append(entry, leb(len(seg))...)
		data = append(data, append(entry, seg...))
		base += 16 + len(p)
		base = (base + 7) &^ 7
	}
	code = append(code, 0x0b)
	body := append([]byte{0x00}, code...)

	return module(
		section(0x01, []byte{0x02,
			0x60, 0x04, 0x7f, 0x7f, 0x7f, 0x7f, 0x01, 0x7f,
			0x60, 0x00, 0x00}),
		section(0x02, []byte{0x01}, name("wasi_snapshot_preview1"), name("fd_write"), []byte{0x00, 0x00}),
		section(0x03, []byte{0x01, 0x01}),
		section(0x05, []byte{0x01, 0x00, 0x01}),
		section(0x07, []byte{0x02}, name("memory"), []byte{0x02, 0x00}, name("_start"), []byte{0x00, 0x01}),
		section(0x0a, []byte{0x01}, leb(len(body)), body),
		section(0x0b, append(leb(len(data)), flatten(data)...)),
	)
}

// exitModule exports a _start that calls proc_exit(code).
func exitModule(code byte) []byte {
	body := []byte{0x00, 0x41, code, 0x10, 0x00, 0x0b}
	return module(
		section(0x01, []byte{0x02, 0x60, 0x01, 0x7f, 0x00, 0x60, 0x00, 0x00}),
		section(0x02, []byte{0x01}, name("wasi_snapshot_preview1"), name("proc_exit"), []byte{0x00, 0x00}),
		section(0x03, []byte{0x01, 0x01}),
		section(0x07, []byte{0x01}, name("_start"), []byte{0x00, 0x01}),
		section(0x0a, []byte{0x01}, leb(len(body)), body),
	)
}

// missingImportModule imports a function no host provides.
func missingImportModule() []byte {
	return module(
		section(0x01, []byte{0x01, 0x60, 0x00, 0x00}),
		section(0x02, []byte{0x01}, name("env"), name("missing"), []byte{0x00, 0x00}),
		section(0x03, []byte{0x01, 0x00}),
		section(0x07, []byte{0x01}, name("_start"), []byte{0x00, 0x01}),
		section(0x0a, []byte{0x01, 0x02, 0x00, 0x0b}),
	)
}

// sleb encodes a non-negative i32.const immediate.
func sleb(n int) []byte {
	var out []byte
	for {
		b := byte(n & 0x7f)
		n >>= 7
		if n == 0 && b&0x40 == 0 {
			return append(out, b)
		}
		out = append(out, b|0x80)
	}
}

func flatten(parts [][]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}
