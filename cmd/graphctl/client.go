package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/kgraph-ai/kgraph/transport/jsonrpc"
)

// rpcClient calls a running kgraphd's POST /v1/rpc endpoint. It is the CLI's
// only way to reach the store; graphctl never touches a graph file
// directly, matching the daemon/CLI split the teacher's aleutian CLI keeps
// against the orchestrator service.
type rpcClient struct {
	addr string
	http *http.Client
}

func newRPCClient(addr string) *rpcClient {
	return &rpcClient{addr: addr, http: &http.Client{Timeout: 30 * time.Second}}
}

// Call sends one JSON-RPC request and decodes its result into out. A
// non-nil error either means the request never reached the server or the
// server replied with a JSON-RPC error object, in which case err wraps the
// error message and code.
func (c *rpcClient) Call(ctx context.Context, method string, params any, out any) error {
	var raw json.RawMessage
	if params != nil {
		encoded, err := json.Marshal(params)
		if err != nil {
			return fmt.Errorf("encoding %s params: %w", method, err)
		}
		raw = encoded
	}

	reqBody, err := json.Marshal(jsonrpc.Request{
		JSONRPC: "2.0",
		ID:      json.RawMessage("1"),
		Method:  method,
		Params:  raw,
	})
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.addr+"/v1/rpc", bytes.NewReader(reqBody))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return fmt.Errorf("calling kgraphd at %s: %w", c.addr, err)
	}
	defer resp.Body.Close()

	var rpcResp jsonrpc.Response
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	if rpcResp.Error != nil {
		return fmt.Errorf("%s: %s (code %d)", method, rpcResp.Error.Message, rpcResp.Error.Code)
	}

	if out == nil || rpcResp.Result == nil {
		return nil
	}
	resultBytes, err := json.Marshal(rpcResp.Result)
	if err != nil {
		return fmt.Errorf("re-encoding result: %w", err)
	}
	if err := json.Unmarshal(resultBytes, out); err != nil {
		return fmt.Errorf("decoding %s result: %w", method, err)
	}
	return nil
}
