package protocol_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/temirov/fmtd/internal/bridge"
	"github.com/temirov/fmtd/internal/formatter"
	"github.com/temirov/fmtd/internal/services/protocol"
)

// tabEngine is a minimal external engine that rewrites tabs to two spaces.
type tabEngine struct{}

func (tabEngine) Init(context.Context, int) ([]string, error) {
	return []string{"json", "css"}, nil
}

func (tabEngine) CreateWorkspace(context.Context, string) (bridge.WorkspaceHandle, error) {
	return 1, nil
}

func (tabEngine) DeleteWorkspace(context.Context, bridge.WorkspaceHandle) error {
	return nil
}

func (tabEngine) FormatFile(_ context.Context, _ bridge.WorkspaceHandle, _ json.RawMessage, _, _, code string) (string, error) {
	return strings.ReplaceAll(code, "\t", "  "), nil
}

func (tabEngine) FormatEmbedded(_ context.Context, _ json.RawMessage, _, code string) (string, error) {
	return strings.ReplaceAll(code, "\t", "  "), nil
}

func startTestServer(t *testing.T, rootDirectory string) (string, *protocol.Service, context.CancelFunc) {
	t.Helper()

	service := protocol.NewService(context.Background(), formatter.Builder{Engine: tabEngine{}}, rootDirectory, nil, nil)
	server := protocol.NewServer(protocol.Config{
		Capabilities: service.Capabilities(),
		Executors:    service.Executors(),
	})

	serverCtx, cancel := context.WithCancel(context.Background())
	addressChannel := make(chan string, 1)
	go func() {
		_ = server.Run(serverCtx, func(address string) { addressChannel <- address })
	}()

	select {
	case address := <-addressChannel:
		return "http://" + address, service, cancel
	case <-time.After(5 * time.Second):
		cancel()
		t.Fatal("server did not report a bound address")
		return "", nil, nil
	}
}

func postCommand(t *testing.T, baseURL, command string, payload any) (*http.Response, []byte) {
	t.Helper()
	body, marshalErr := json.Marshal(payload)
	if marshalErr != nil {
		t.Fatalf("marshal payload: %v", marshalErr)
	}
	response, postErr := http.Post(baseURL+"/commands/"+command, "application/json", bytes.NewReader(body))
	if postErr != nil {
		t.Fatalf("post %s: %v", command, postErr)
	}
	defer func() { _ = response.Body.Close() }()
	var responseBody bytes.Buffer
	if _, readErr := responseBody.ReadFrom(response.Body); readErr != nil {
		t.Fatalf("read response: %v", readErr)
	}
	return response, responseBody.Bytes()
}

func TestCapabilitiesEndpoint(t *testing.T) {
	baseURL, service, cancel := startTestServer(t, t.TempDir())
	defer cancel()
	defer service.Close(context.Background())

	response, getErr := http.Get(baseURL + "/capabilities")
	if getErr != nil {
		t.Fatalf("get capabilities: %v", getErr)
	}
	defer func() { _ = response.Body.Close() }()
	if response.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status %d", response.StatusCode)
	}

	var decoded struct {
		Capabilities []protocol.Capability `json:"capabilities"`
	}
	if decodeErr := json.NewDecoder(response.Body).Decode(&decoded); decodeErr != nil {
		t.Fatalf("decode capabilities: %v", decodeErr)
	}
	names := map[string]bool{}
	for _, capability := range decoded.Capabilities {
		names[capability.Name] = true
	}
	for _, expected := range []string{"format", "patterns", "configure", "watched-change"} {
		if !names[expected] {
			t.Fatalf("capability %q missing from %v", expected, decoded.Capabilities)
		}
	}
}

func TestFormatCommandReturnsEdits(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "site.css")
	if writeErr := os.WriteFile(path, []byte("body{\tcolor:red}\n"), 0o600); writeErr != nil {
		t.Fatalf("write fixture: %v", writeErr)
	}

	baseURL, service, cancel := startTestServer(t, root)
	defer cancel()
	defer service.Close(context.Background())

	response, body := postCommand(t, baseURL, "format", protocol.FormatCommandRequest{Path: path})
	if response.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", response.StatusCode, body)
	}
	var decoded protocol.FormatCommandResponse
	if decodeErr := json.Unmarshal(body, &decoded); decodeErr != nil {
		t.Fatalf("decode format response: %v", decodeErr)
	}
	if len(decoded.Edits) != 1 {
		t.Fatalf("expected one edit, got %v", decoded.Edits)
	}
}

func TestFormatCommandSkipYieldsNullEdits(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "notes.txt")
	if writeErr := os.WriteFile(path, []byte("plain text\n"), 0o600); writeErr != nil {
		t.Fatalf("write fixture: %v", writeErr)
	}

	baseURL, service, cancel := startTestServer(t, root)
	defer cancel()
	defer service.Close(context.Background())

	response, body := postCommand(t, baseURL, "format", protocol.FormatCommandRequest{Path: path})
	if response.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", response.StatusCode, body)
	}
	var decoded map[string]json.RawMessage
	if decodeErr := json.Unmarshal(body, &decoded); decodeErr != nil {
		t.Fatalf("decode response: %v", decodeErr)
	}
	if string(decoded["edits"]) != "null" {
		t.Fatalf("a skipped file must report null edits, got %s", decoded["edits"])
	}
}

func TestFormatCommandRequiresPath(t *testing.T) {
	baseURL, service, cancel := startTestServer(t, t.TempDir())
	defer cancel()
	defer service.Close(context.Background())

	response, _ := postCommand(t, baseURL, "format", protocol.FormatCommandRequest{})
	if response.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected bad request, got %d", response.StatusCode)
	}
}

func TestUnknownCommandReturnsNotFound(t *testing.T) {
	baseURL, service, cancel := startTestServer(t, t.TempDir())
	defer cancel()
	defer service.Close(context.Background())

	response, _ := postCommand(t, baseURL, "nonsense", map[string]string{})
	if response.StatusCode != http.StatusNotFound {
		t.Fatalf("expected not found, got %d", response.StatusCode)
	}
}

func TestPatternsCommandReportsDefaults(t *testing.T) {
	baseURL, service, cancel := startTestServer(t, t.TempDir())
	defer cancel()
	defer service.Close(context.Background())

	response, body := postCommand(t, baseURL, "patterns", protocol.PatternsCommandRequest{})
	if response.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", response.StatusCode, body)
	}
	var decoded protocol.PatternsCommandResponse
	if decodeErr := json.Unmarshal(body, &decoded); decodeErr != nil {
		t.Fatalf("decode patterns response: %v", decodeErr)
	}
	if len(decoded.Patterns) != 2 {
		t.Fatalf("expected the two default config names, got %v", decoded.Patterns)
	}
}

func TestConfigureCommandRestartsOnlyOnChange(t *testing.T) {
	baseURL, service, cancel := startTestServer(t, t.TempDir())
	defer cancel()
	defer service.Close(context.Background())

	same := protocol.ConfigureCommandRequest{
		OldOptions: json.RawMessage(`{}`),
		NewOptions: json.RawMessage(`{}`),
	}
	_, body := postCommand(t, baseURL, "configure", same)
	var unchanged protocol.ConfigureCommandResponse
	if decodeErr := json.Unmarshal(body, &unchanged); decodeErr != nil {
		t.Fatalf("decode configure response: %v", decodeErr)
	}
	if unchanged.Restarted {
		t.Fatalf("identical options must not restart")
	}

	changed := protocol.ConfigureCommandRequest{
		OldOptions: json.RawMessage(`{}`),
		NewOptions: json.RawMessage(fmt.Sprintf(`{"configPath":%q}`, "configs/fmt.json")),
	}
	_, body = postCommand(t, baseURL, "configure", changed)
	var restarted protocol.ConfigureCommandResponse
	if decodeErr := json.Unmarshal(body, &restarted); decodeErr != nil {
		t.Fatalf("decode configure response: %v", decodeErr)
	}
	if !restarted.Restarted || len(restarted.Patterns) == 0 {
		t.Fatalf("changed options must restart with fresh patterns: %+v", restarted)
	}
}

func TestWatchedChangeCommandRebuilds(t *testing.T) {
	root := t.TempDir()
	baseURL, service, cancel := startTestServer(t, root)
	defer cancel()
	defer service.Close(context.Background())

	_, body := postCommand(t, baseURL, "watched-change", protocol.WatchedChangeCommandRequest{Path: filepath.Join(root, ".fmtdrc.json")})
	var decoded protocol.WatchedChangeCommandResponse
	if decodeErr := json.Unmarshal(body, &decoded); decodeErr != nil {
		t.Fatalf("decode watched-change response: %v", decodeErr)
	}
	if !decoded.Restarted {
		t.Fatalf("watched-change must rebuild the formatter")
	}
}
