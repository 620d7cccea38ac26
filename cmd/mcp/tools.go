package main

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kirillkom/study-assistant/internal/client"
	"github.com/kirillkom/study-assistant/internal/core/domain"
)

type pomodoroAPI interface {
	Start(ctx context.Context) (domain.PomodoroAck, error)
	Stop(ctx context.Context) (domain.PomodoroAck, error)
	Status(ctx context.Context) (client.Status, error)
}

func newServer(api pomodoroAPI, logger *slog.Logger) *server.MCPServer {
	srv := server.NewMCPServer("study-assistant", "1.0.0", server.WithToolCapabilities(false))

	srv.AddTool(mcp.NewTool("pomodoro_start",
		mcp.WithDescription("Start the work/break pomodoro timer. Starting a running timer changes nothing."),
	), ackTool(api.Start, logger))

	srv.AddTool(mcp.NewTool("pomodoro_stop",
		mcp.WithDescription("Stop the pomodoro timer and clear its state."),
	), ackTool(api.Stop, logger))

	srv.AddTool(mcp.NewTool("pomodoro_status",
		mcp.WithDescription("Report whether the timer is running, the current phase and when it ends."),
	), statusTool(api.Status, logger))
	return srv
}

func statusTool(call func(context.Context) (client.Status, error), logger *slog.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		status, err := call(ctx)
		if err != nil {
			logger.Warn("mcp_tool_failed", "tool", "pomodoro_status", "error", err)
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(status)
	}
}

func ackTool(call func(context.Context) (domain.PomodoroAck, error), logger *slog.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ack, err := call(ctx)
		if err != nil {
			logger.Warn("mcp_tool_failed", "tool", req.Params.Name, "error", err)
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(ack)
	}
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(raw)), nil
}
