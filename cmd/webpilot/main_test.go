package main

import (
	"context"
	"testing"

	"webpilot/browserloop"
	"webpilot/config"
	"webpilot/llmchat"
)

type stubAdapter struct {
	lastReq llmchat.Request
	reply   string
}

func (s *stubAdapter) Name() string { return "ollama" }

func (s *stubAdapter) Complete(ctx context.Context, req llmchat.Request) (*llmchat.Response, error) {
	s.lastReq = req
	return &llmchat.Response{Content: s.reply, Provider: "ollama"}, nil
}

func TestChatModelRoleMapping(t *testing.T) {
	stub := &stubAdapter{reply: "next action"}
	client := llmchat.NewClient(llmchat.WithProvider("ollama", stub))
	model := &chatModel{client: client, model: "qwen2.5-coder:7b"}

	history := []browserloop.Message{
		browserloop.SystemMessage("you are a browser pilot"),
		browserloop.HumanMessage("Task: do things"),
		browserloop.AIMessage("previous reply"),
		browserloop.HumanMessage("Action result: ok"),
	}

	reply, err := model.Chat(context.Background(), history)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply.Role != browserloop.RoleAI {
		t.Errorf("expected AI reply role, got %q", reply.Role)
	}
	if reply.Content != "next action" {
		t.Errorf("expected reply content %q, got %q", "next action", reply.Content)
	}

	req := stub.lastReq
	if req.Model != "qwen2.5-coder:7b" {
		t.Errorf("expected model to be threaded through, got %q", req.Model)
	}
	wantRoles := []llmchat.Role{llmchat.RoleSystem, llmchat.RoleUser, llmchat.RoleAssistant, llmchat.RoleUser}
	if len(req.Messages) != len(wantRoles) {
		t.Fatalf("expected %d messages, got %d", len(wantRoles), len(req.Messages))
	}
	for i, want := range wantRoles {
		if req.Messages[i].Role != want {
			t.Errorf("message %d: expected role %q, got %q", i, want, req.Messages[i].Role)
		}
	}
}

func TestApplyFlagOverrides(t *testing.T) {
	cfg := &config.Config{
		ServerURL: "http://localhost:5600/mcp",
		Model:     "qwen2.5-coder:7b",
		MaxSteps:  50,
		LogLevel:  "info",
	}

	flagServerURL = "http://other:5600/mcp"
	flagModel = "llama3.1:8b"
	flagMaxSteps = 7
	flagLogLevel = "debug"
	defer func() {
		flagServerURL, flagModel, flagMaxSteps, flagLogLevel = "", "", 0, ""
	}()

	applyFlagOverrides(cfg)

	if cfg.ServerURL != "http://other:5600/mcp" {
		t.Errorf("server url not overridden: %q", cfg.ServerURL)
	}
	if cfg.Model != "llama3.1:8b" {
		t.Errorf("model not overridden: %q", cfg.Model)
	}
	if cfg.MaxSteps != 7 {
		t.Errorf("max steps not overridden: %d", cfg.MaxSteps)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("log level not overridden: %q", cfg.LogLevel)
	}
}
