package jsonrpc

import (
	"context"
	"encoding/json"

	"github.com/kgraph-ai/kgraph/internal/store"
)

type readParams struct {
	ProjectKey string `json:"project_key,omitempty" validate:"omitempty,max=200"`
}

func (p readParams) Validate() error { return paramsValidate.Struct(p) }

func handleRead(ctx context.Context, st *store.Store, raw json.RawMessage) (any, error) {
	p, err := decodeParams[readParams](raw)
	if err != nil {
		return nil, err
	}
	return st.Read(ctx, p.ProjectKey)
}

type registerSessionParams struct {
	ProjectKey string `json:"project_key,omitempty" validate:"omitempty,max=200"`
}

func (p registerSessionParams) Validate() error { return paramsValidate.Struct(p) }

type registerSessionResult struct {
	SessionID string  `json:"session_id"`
	StartTS   float64 `json:"start_ts"`
}

func handleRegisterSession(ctx context.Context, st *store.Store, raw json.RawMessage) (any, error) {
	p, err := decodeParams[registerSessionParams](raw)
	if err != nil {
		return nil, err
	}
	id, startTS := st.RegisterSession(p.ProjectKey)
	return registerSessionResult{SessionID: id, StartTS: float64(startTS.UnixNano()) / 1e9}, nil
}

type syncParams struct {
	SessionID  string `json:"session_id" validate:"required"`
	ExcludeOwn bool   `json:"exclude_own,omitempty"`
}

func (p syncParams) Validate() error { return paramsValidate.Struct(p) }

func handleSync(ctx context.Context, st *store.Store, raw json.RawMessage) (any, error) {
	p, err := decodeParams[syncParams](raw)
	if err != nil {
		return nil, err
	}
	return st.Sync(ctx, p.SessionID, p.ExcludeOwn)
}

type putNodeParams struct {
	Level      string   `json:"level" validate:"required,oneof=user project"`
	ProjectKey string   `json:"project_key,omitempty" validate:"omitempty,max=200"`
	ID         string   `json:"id" validate:"required,max=200"`
	Gist       string   `json:"gist" validate:"required,max=2000"`
	Touches    []string `json:"touches,omitempty" validate:"omitempty,max=100,dive,max=500"`
	Notes      []string `json:"notes,omitempty" validate:"omitempty,max=100,dive,max=2000"`
	SessionID  string   `json:"session_id,omitempty" validate:"omitempty,max=200"`
}

func (p putNodeParams) Validate() error { return paramsValidate.Struct(p) }

type putNodeResult struct {
	Action string `json:"action"`
}

func handlePutNode(ctx context.Context, st *store.Store, raw json.RawMessage) (any, error) {
	p, err := decodeParams[putNodeParams](raw)
	if err != nil {
		return nil, err
	}
	action, err := st.PutNode(ctx, p.Level, p.ProjectKey, p.ID, p.Gist, p.Touches, p.Notes, p.SessionID)
	if err != nil {
		return nil, err
	}
	return putNodeResult{Action: action}, nil
}

type putEdgeParams struct {
	Level      string   `json:"level" validate:"required,oneof=user project"`
	ProjectKey string   `json:"project_key,omitempty" validate:"omitempty,max=200"`
	From       string   `json:"from" validate:"required,max=200"`
	To         string   `json:"to" validate:"required,max=200"`
	Rel        string   `json:"rel" validate:"required,max=200"`
	Notes      []string `json:"notes,omitempty" validate:"omitempty,max=100,dive,max=2000"`
	SessionID  string   `json:"session_id,omitempty" validate:"omitempty,max=200"`
}

func (p putEdgeParams) Validate() error { return paramsValidate.Struct(p) }

func handlePutEdge(ctx context.Context, st *store.Store, raw json.RawMessage) (any, error) {
	p, err := decodeParams[putEdgeParams](raw)
	if err != nil {
		return nil, err
	}
	if err := st.PutEdge(ctx, p.Level, p.ProjectKey, p.From, p.To, p.Rel, p.Notes, p.SessionID); err != nil {
		return nil, err
	}
	return struct{}{}, nil
}

type deleteNodeParams struct {
	Level      string `json:"level" validate:"required,oneof=user project"`
	ProjectKey string `json:"project_key,omitempty" validate:"omitempty,max=200"`
	ID         string `json:"id" validate:"required,max=200"`
}

func (p deleteNodeParams) Validate() error { return paramsValidate.Struct(p) }

func handleDeleteNode(ctx context.Context, st *store.Store, raw json.RawMessage) (any, error) {
	p, err := decodeParams[deleteNodeParams](raw)
	if err != nil {
		return nil, err
	}
	if err := st.DeleteNode(ctx, p.Level, p.ProjectKey, p.ID); err != nil {
		return nil, err
	}
	return struct{}{}, nil
}

type deleteEdgeParams struct {
	Level      string `json:"level" validate:"required,oneof=user project"`
	ProjectKey string `json:"project_key,omitempty" validate:"omitempty,max=200"`
	From       string `json:"from" validate:"required,max=200"`
	To         string `json:"to" validate:"required,max=200"`
	Rel        string `json:"rel" validate:"required,max=200"`
}

func (p deleteEdgeParams) Validate() error { return paramsValidate.Struct(p) }

type deleteEdgeResult struct {
	Deleted bool `json:"deleted"`
}

func handleDeleteEdge(ctx context.Context, st *store.Store, raw json.RawMessage) (any, error) {
	p, err := decodeParams[deleteEdgeParams](raw)
	if err != nil {
		return nil, err
	}
	deleted, err := st.DeleteEdge(ctx, p.Level, p.ProjectKey, p.From, p.To, p.Rel)
	if err != nil {
		return nil, err
	}
	return deleteEdgeResult{Deleted: deleted}, nil
}

type recallParams struct {
	Level      string `json:"level" validate:"required,oneof=user project"`
	ProjectKey string `json:"project_key,omitempty" validate:"omitempty,max=200"`
	ID         string `json:"id" validate:"required,max=200"`
	SessionID  string `json:"session_id,omitempty" validate:"omitempty,max=200"`
}

func (p recallParams) Validate() error { return paramsValidate.Struct(p) }

func handleRecall(ctx context.Context, st *store.Store, raw json.RawMessage) (any, error) {
	p, err := decodeParams[recallParams](raw)
	if err != nil {
		return nil, err
	}
	if err := st.Recall(ctx, p.Level, p.ProjectKey, p.ID, p.SessionID); err != nil {
		return nil, err
	}
	return struct{}{}, nil
}

func handlePing(ctx context.Context, st *store.Store, raw json.RawMessage) (any, error) {
	return st.Ping(ctx), nil
}
