package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/sourcegraph/jsonrpc2"
)

// JSON-RPC method names.
const (
	MethodRun      = "agent/run"
	MethodPlan     = "agent/plan"
	MethodTools    = "agent/tools"
	MethodProgress = "agent/progress"
)

// RPCServer speaks JSON-RPC 2.0 with Content-Length framing so editors can
// drive the agent over stdio or a socket.
type RPCServer struct {
	NewSession SessionFactory
	Logger     *slog.Logger
}

// RunParams is the agent/run request.
type RunParams struct {
	Task string `json:"task"`
	Plan bool   `json:"plan"`
}

// RunResult is the agent/run response.
type RunResult struct {
	Answer     string `json:"answer"`
	Reflection string `json:"reflection,omitempty"`
}

// PlanParams is the agent/plan request.
type PlanParams struct {
	Task string `json:"task"`
}

// PlanResult is the agent/plan response.
type PlanResult struct {
	Steps    []map[string]interface{} `json:"steps"`
	Markdown string                   `json:"markdown"`
}

// ProgressParams is sent as an agent/progress notification while a task runs.
type ProgressParams struct {
	Message string `json:"message"`
}

// ServeConn handles requests on rwc until the peer disconnects or ctx ends.
func (s *RPCServer) ServeConn(ctx context.Context, rwc io.ReadWriteCloser) error {
	stream := jsonrpc2.NewBufferedStream(rwc, jsonrpc2.VSCodeObjectCodec{})
	handler := jsonrpc2.HandlerWithError(func(_ context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) (interface{}, error) {
		return s.handle(ctx, conn, req)
	})
	conn := jsonrpc2.NewConn(ctx, stream, jsonrpc2.AsyncHandler(handler))
	s.logger().Info("rpc connection open")
	select {
	case <-ctx.Done():
		conn.Close()
		return ctx.Err()
	case <-conn.DisconnectNotify():
		s.logger().Info("rpc connection closed")
		return nil
	}
}

// ServeStdio serves a single connection over stdin and stdout.
func (s *RPCServer) ServeStdio(ctx context.Context) error {
	return s.ServeConn(ctx, stdioConn{in: os.Stdin, out: os.Stdout})
}

func (s *RPCServer) handle(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) (interface{}, error) {
	switch req.Method {
	case MethodRun:
		var params RunParams
		if err := decodeParams(req, &params); err != nil {
			return nil, err
		}
		if params.Task == "" {
			return nil, invalidParams("task required")
		}
		session, err := s.NewSession(params.Plan)
		if err != nil {
			return nil, err
		}
		session.Agent.OnProgress = func(msg string) {
			_ = conn.Notify(ctx, MethodProgress, ProgressParams{Message: msg})
		}
		result, err := session.Agent.Run(ctx, params.Task)
		if err != nil {
			return nil, err
		}
		return RunResult{Answer: result.FinalAnswer, Reflection: result.Reflection}, nil

	case MethodPlan:
		var params PlanParams
		if err := decodeParams(req, &params); err != nil {
			return nil, err
		}
		if params.Task == "" {
			return nil, invalidParams("task required")
		}
		session, err := s.NewSession(true)
		if err != nil {
			return nil, err
		}
		plan := session.Planner.CreatePlan(ctx, params.Task, nil)
		steps := make([]map[string]interface{}, 0, len(plan.Steps))
		for _, step := range plan.Steps {
			steps = append(steps, step.ToMap())
		}
		return PlanResult{Steps: steps, Markdown: plan.Markdown()}, nil

	case MethodTools:
		session, err := s.NewSession(false)
		if err != nil {
			return nil, err
		}
		return describeTools(session.Tools), nil
	}
	return nil, &jsonrpc2.Error{Code: jsonrpc2.CodeMethodNotFound, Message: fmt.Sprintf("method %s not found", req.Method)}
}

func decodeParams(req *jsonrpc2.Request, v interface{}) error {
	if req.Params == nil {
		return invalidParams("params required")
	}
	if err := json.Unmarshal(*req.Params, v); err != nil {
		return invalidParams(err.Error())
	}
	return nil
}

func invalidParams(msg string) error {
	return &jsonrpc2.Error{Code: jsonrpc2.CodeInvalidParams, Message: msg}
}

func (s *RPCServer) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default().With("component", "rpc")
	}
	return s.Logger
}

type stdioConn struct {
	in  io.ReadCloser
	out io.WriteCloser
}

func (c stdioConn) Read(p []byte) (int, error)  { return c.in.Read(p) }
func (c stdioConn) Write(p []byte) (int, error) { return c.out.Write(p) }
func (c stdioConn) Close() error {
	if err := c.in.Close(); err != nil {
		return err
	}
	return c.out.Close()
}
