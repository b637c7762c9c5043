package mcp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
)

// maxHTTPBody bounds a JSON-RPC request posted over HTTP.
const maxHTTPBody = 1 << 20

// Serve reads line-delimited JSON-RPC requests from r and writes responses
// to w until r is exhausted or ctx is cancelled. Only JSON is written to w.
// Cancellation returns promptly even while a read is blocked on r.
func (s *Server) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	// MCP clients expect compact JSON, one frame per line.
	encoder := json.NewEncoder(w)

	done := make(chan struct{})
	defer close(done)
	frames := readFrames(r, done)

	s.logger.InfoContext(ctx, "mcp stdio server started",
		slog.String("server", s.name),
		slog.String("version", s.version))

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		var f frame
		select {
		case <-ctx.Done():
			s.logger.InfoContext(ctx, "mcp stdio server stopped: context cancelled")
			return ctx.Err()
		case f = <-frames:
		}

		if len(bytes.TrimSpace(f.line)) > 0 {
			if resp := s.handleFrame(ctx, f.line); resp != nil {
				if err := encoder.Encode(resp); err != nil {
					return fmt.Errorf("failed to encode response: %w", err)
				}
			}
		}

		if f.err != nil {
			if errors.Is(f.err, io.EOF) {
				s.logger.InfoContext(ctx, "mcp stdio server stopped: input closed")
				return nil
			}
			return fmt.Errorf("failed to read request: %w", f.err)
		}
	}
}

// frame is one line read from the input, with the read error that ended it.
type frame struct {
	line []byte
	err  error
}

// readFrames reads lines from r on its own goroutine. The goroutine exits
// after the first read error or once done is closed; a read blocked on r
// is abandoned with it.
func readFrames(r io.Reader, done <-chan struct{}) <-chan frame {
	frames := make(chan frame)
	go func() {
		reader := bufio.NewReader(r)
		for {
			line, err := reader.ReadBytes('\n')
			select {
			case frames <- frame{line: line, err: err}:
			case <-done:
				return
			}
			if err != nil {
				return
			}
		}
	}()
	return frames
}

// handleFrame decodes one frame. A frame that is not valid JSON yields a
// parse error with id 0, since the request id cannot be recovered.
func (s *Server) handleFrame(ctx context.Context, frame []byte) any {
	var req Request
	if err := json.Unmarshal(frame, &req); err != nil {
		s.logger.WarnContext(ctx, "failed to parse request", slog.String("error", err.Error()))
		return parseErrorResponse()
	}

	resp := s.HandleRequest(ctx, &req)
	if resp == nil {
		return nil
	}
	return resp
}

func parseErrorResponse() ErrorResponse {
	return ErrorResponse{
		JSONRPC: "2.0",
		ID:      0,
		Error: ErrorObject{
			Code:    ParseError,
			Message: "Failed to parse request",
		},
	}
}

// ServeHTTP handles one JSON-RPC request per POST. Notifications are
// acknowledged with 202 and no body.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxHTTPBody+1))
	if err != nil {
		http.Error(w, "failed to read request body", http.StatusBadRequest)
		return
	}
	if len(body) > maxHTTPBody {
		http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
		return
	}

	resp := s.handleFrame(r.Context(), body)
	if resp == nil {
		w.WriteHeader(http.StatusAccepted)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.ErrorContext(r.Context(), "failed to encode response", slog.String("error", err.Error()))
	}
}
