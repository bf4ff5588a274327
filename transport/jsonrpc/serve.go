package jsonrpc

import (
	"bufio"
	"context"
	"io"
)

// maxLineSize bounds a single newline-framed request, mirroring the
// registry's MaxParamsSize safety limit the teacher's tool dispatcher
// enforces before parsing.
const maxLineSize = 4 << 20

// Serve reads newline-framed JSON-RPC requests from r and writes
// newline-framed responses to w until r is exhausted, ctx is canceled, or a
// write fails. Each line is one complete JSON-RPC request; this matches
// the shape LLM tool-call clients speak over stdio.
func (s *Server) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	bw := bufio.NewWriter(w)
	defer bw.Flush()

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		resp := s.Handle(ctx, line)
		if _, err := bw.Write(resp); err != nil {
			return err
		}
		if err := bw.WriteByte('\n'); err != nil {
			return err
		}
		if err := bw.Flush(); err != nil {
			return err
		}
	}
	return scanner.Err()
}
