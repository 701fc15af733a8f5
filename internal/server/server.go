package server

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/ytbridge/internal/tasks"
)

// DefaultMaxLineBytes bounds one request line.
const DefaultMaxLineBytes = 1 << 20

// Options configures a [Server].
type Options struct {
	// MaxInFlight caps concurrently running handlers; 0 is unbounded.
	MaxInFlight  int
	MaxLineBytes int
	Logger       *log.Logger
}

// Server is the request dispatcher: it reads request lines, runs each on the task pool and
// writes the responses.
type Server struct {
	router  *Router
	out     *Writer
	pool    *tasks.Pool
	maxLine int
	logger  *log.Logger
}

// New creates a Server dispatching to router and writing responses to out.
func New(router *Router, out io.Writer, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	maxLine := opts.MaxLineBytes
	if maxLine <= 0 {
		maxLine = DefaultMaxLineBytes
	}

	return &Server{
		router:  router,
		out:     NewWriter(out),
		pool:    tasks.NewPool(opts.MaxInFlight, logger),
		maxLine: maxLine,
		logger:  logger.WithPrefix("dispatcher"),
	}
}

// Serve reads requests from in until EOF, then waits for every accepted request to be answered.
//
// Blank lines are skipped. Lines that are not JSON objects, or that are longer than the
// configured limit, are logged and get no response; reading continues with the next line.
// The read loop never waits on a handler unless the pool is full.
func (s *Server) Serve(ctx context.Context, in io.Reader) error {
	reader := bufio.NewReaderSize(in, min(64*1024, s.maxLine))

	defer s.pool.Wait()

	for {
		line, oversized, readErr := readLine(reader, s.maxLine)

		switch line = bytes.TrimSpace(line); {
		case oversized:
			s.logger.Error("discarding oversized request", "limit", s.maxLine)
		case len(line) > 0:
			req, err := ParseRequest(line)
			if err != nil {
				s.logger.Error("discarding malformed request", "error", err, "line", truncate(line))
				break
			}
			if err := s.pool.Go(ctx, req.Command, func(tctx context.Context) { s.handle(tctx, req) }); err != nil {
				return fmt.Errorf("dispatcher stopped: %w", err)
			}
		}

		if errors.Is(readErr, io.EOF) {
			return nil
		}
		if readErr != nil {
			return fmt.Errorf("failed to read requests: %w", readErr)
		}
	}
}

// readLine returns the next line without its newline. A line longer than limit is consumed up
// to its newline and reported as oversized with no content. A final line without a newline is
// returned with a nil error; io.EOF is only returned once nothing is left.
func readLine(r *bufio.Reader, limit int) (line []byte, oversized bool, err error) {
	for {
		chunk, err := r.ReadSlice('\n')
		if !oversized {
			line = append(line, chunk...)
			if len(bytes.TrimRight(line, "\r\n")) > limit {
				line, oversized = nil, true
			}
		}

		switch {
		case errors.Is(err, bufio.ErrBufferFull):
			continue
		case errors.Is(err, io.EOF) && (len(line) > 0 || oversized):
			return line, oversized, nil
		default:
			return line, oversized, err
		}
	}
}

func (s *Server) handle(ctx context.Context, req *Request) {
	resp := s.router.Dispatch(ctx, req)
	if err := s.out.Write(resp); err != nil {
		s.logger.Error("failed to emit response", "command", req.Command, "callId", string(req.CallID), "error", err)
	}
}

// InFlight reports how many requests are being handled.
func (s *Server) InFlight() int {
	return s.pool.InFlight()
}

func truncate(line []byte) string {
	const limit = 200
	if len(line) <= limit {
		return string(line)
	}
	return string(line[:limit]) + "..."
}
