package mcp

import (
	"bufio"
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"rpg/internal/engine"
	"rpg/internal/slogutil"
)

func newTestServer(t *testing.T) (*Server, *bytes.Buffer) {
	t.Helper()
	eng, err := engine.Open(t.TempDir(), nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { eng.Close() })

	var out bytes.Buffer
	s := NewServer("test", eng, slogutil.NewDiscardLogger())
	s.stdout = &out
	return s, &out
}

func runRequest(t *testing.T, s *Server, out *bytes.Buffer, request string) map[string]interface{} {
	t.Helper()
	out.Reset()
	s.stdin = strings.NewReader(request + "\n")
	if err := s.Run(); err != nil {
		t.Fatal(err)
	}
	scanner := bufio.NewScanner(bytes.NewReader(out.Bytes()))
	scanner.Buffer(make([]byte, 0, 1024*1024), 16*1024*1024)
	if !scanner.Scan() {
		t.Fatal("no response written")
	}
	var resp map[string]interface{}
	if err := json.Unmarshal(scanner.Bytes(), &resp); err != nil {
		t.Fatalf("response is not JSON: %v", err)
	}
	return resp
}

func TestInitialize(t *testing.T) {
	s, out := newTestServer(t)
	resp := runRequest(t, s, out, `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`)

	result, ok := resp["result"].(map[string]interface{})
	if !ok {
		t.Fatalf("resp = %v", resp)
	}
	info, _ := result["serverInfo"].(map[string]interface{})
	if info["name"] != "rpg" {
		t.Errorf("serverInfo = %v", info)
	}
	if instructions, _ := result["instructions"].(string); !strings.Contains(instructions, "Repository Planning Graph") {
		t.Error("instructions missing")
	}
}

func TestToolsList(t *testing.T) {
	s, out := newTestServer(t)
	resp := runRequest(t, s, out, `{"jsonrpc":"2.0","id":2,"method":"tools/list","params":{}}`)

	result := resp["result"].(map[string]interface{})
	tools := result["tools"].([]interface{})

	names := make(map[string]bool)
	for _, tool := range tools {
		names[tool.(map[string]interface{})["name"].(string)] = true
	}
	for _, want := range []string{
		"build_rpg", "update_rpg", "reload_rpg", "rpg_info",
		"lifting_status", "get_entities_for_lifting", "submit_lift_results", "finalize_lifting",
		"get_files_for_synthesis", "submit_file_syntheses",
		"build_semantic_hierarchy", "submit_hierarchy",
		"get_routing_candidates", "submit_routing_decisions",
		"search_node", "fetch_node", "explore_rpg", "context_pack",
		"impact_radius", "plan_change", "find_paths", "slice_between",
	} {
		if !names[want] {
			t.Errorf("tool %s missing from tools/list", want)
		}
	}
}

func TestUnknownMethod(t *testing.T) {
	s, out := newTestServer(t)
	resp := runRequest(t, s, out, `{"jsonrpc":"2.0","id":3,"method":"bogus","params":{}}`)
	if resp["error"] == nil {
		t.Error("expected error for unknown method")
	}
}

func TestUnknownTool(t *testing.T) {
	s, out := newTestServer(t)
	resp := runRequest(t, s, out, `{"jsonrpc":"2.0","id":4,"method":"tools/call","params":{"name":"nope","arguments":{}}}`)
	if resp["error"] == nil {
		t.Error("expected error for unknown tool")
	}
}

func TestToolErrorCarriesCode(t *testing.T) {
	s, out := newTestServer(t)
	// No graph built: rpg_info returns a structured failure.
	resp := runRequest(t, s, out, `{"jsonrpc":"2.0","id":5,"method":"tools/call","params":{"name":"rpg_info","arguments":{}}}`)

	result := resp["result"].(map[string]interface{})
	if result["isError"] != true {
		t.Fatalf("result = %v", result)
	}
	content := result["content"].([]interface{})
	text := content[0].(map[string]interface{})["text"].(string)
	if !strings.Contains(text, "CORRUPT_STORE") {
		t.Errorf("error payload missing code: %s", text)
	}
}

func TestParseErrorResponse(t *testing.T) {
	s, out := newTestServer(t)
	resp := runRequest(t, s, out, `{broken json`)
	errObj, ok := resp["error"].(map[string]interface{})
	if !ok || errObj["code"].(float64) != ParseError {
		t.Errorf("resp = %v", resp)
	}
}
