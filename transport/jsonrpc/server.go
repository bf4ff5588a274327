package jsonrpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/kgraph-ai/kgraph/internal/kgerrors"
	"github.com/kgraph-ai/kgraph/internal/store"
	"github.com/kgraph-ai/kgraph/internal/telemetry"
)

// handlerFunc decodes its own params from raw and calls exactly one Store
// method, per SPEC_FULL.md §6's "neither transport contains store logic".
type handlerFunc func(ctx context.Context, st *store.Store, raw json.RawMessage) (any, error)

var methods = map[string]handlerFunc{
	"read":             handleRead,
	"register_session": handleRegisterSession,
	"sync":             handleSync,
	"put_node":         handlePutNode,
	"put_edge":         handlePutEdge,
	"delete_node":      handleDeleteNode,
	"delete_edge":      handleDeleteEdge,
	"recall":           handleRecall,
	"ping":             handlePing,
}

// Server dispatches decoded JSON-RPC requests against a single Store.
type Server struct {
	store  *store.Store
	logger *slog.Logger
}

// NewServer constructs a Server. A nil logger falls back to slog.Default().
func NewServer(st *store.Store, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{store: st, logger: logger}
}

// Handle decodes one JSON-RPC request, dispatches it, and returns the
// marshaled response. It never returns an error itself: transport-level
// decode failures are reported as a JSON-RPC error response, matching the
// spec's "encode the result or the typed error" framing. Both the stdio
// loop (Serve) and cmd/kgraphd's POST /v1/rpc handler call this directly
// so the two transports can never drift.
func (s *Server) Handle(ctx context.Context, raw []byte) []byte {
	var req Request
	if err := json.Unmarshal(raw, &req); err != nil {
		return s.marshal(errorResponse(nil, codeParseError, "parse error: "+err.Error()))
	}
	if req.JSONRPC != "2.0" || req.Method == "" {
		return s.marshal(errorResponse(req.ID, codeInvalidRequest, "invalid request"))
	}

	handler, ok := methods[req.Method]
	if !ok {
		return s.marshal(errorResponse(req.ID, codeMethodNotFound, "unknown method: "+req.Method))
	}

	logger := telemetry.LoggerWithTrace(ctx, s.logger)
	result, err := handler(ctx, s.store, req.Params)
	if err != nil {
		logger.Warn("rpc call failed", "method", req.Method, "error", err)
		return s.marshal(errToResponse(req.ID, err))
	}

	return s.marshal(resultResponse(req.ID, result))
}

func (s *Server) marshal(resp *Response) []byte {
	data, err := json.Marshal(resp)
	if err != nil {
		// Marshaling our own Response type should never fail; fall back to
		// a minimal hand-built envelope so the caller still gets a reply.
		s.logger.Error("failed to marshal rpc response", "error", err)
		return []byte(fmt.Sprintf(`{"jsonrpc":"2.0","error":{"code":%d,"message":"internal error"}}`, codeInternalError))
	}
	return data
}

func errToResponse(id json.RawMessage, err error) *Response {
	switch {
	case errors.Is(err, kgerrors.ErrUnknownSession):
		return errorResponse(id, codeUnknownSession, err.Error())
	case errors.Is(err, kgerrors.ErrNodeNotFound):
		return errorResponse(id, codeNodeNotFound, err.Error())
	case errors.Is(err, kgerrors.ErrNotArchived):
		return errorResponse(id, codeNotArchived, err.Error())
	case errors.Is(err, kgerrors.ErrInvalidLevel), errors.Is(err, kgerrors.ErrInvalidArgument):
		return errorResponse(id, codeInvalidParams, err.Error())
	case errors.Is(err, kgerrors.ErrStoreLocked):
		return errorResponse(id, codeStoreLocked, err.Error())
	default:
		return errorResponse(id, codeInternalError, err.Error())
	}
}

func decodeParams[T any](raw json.RawMessage) (T, error) {
	var v T
	if len(raw) == 0 {
		return v, nil
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, fmt.Errorf("%w: %s", kgerrors.ErrInvalidArgument, err.Error())
	}
	if vv, ok := any(&v).(validatable); ok {
		if err := vv.Validate(); err != nil {
			return v, fmt.Errorf("%w: %s", kgerrors.ErrInvalidArgument, err.Error())
		}
	}
	return v, nil
}
