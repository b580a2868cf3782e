package commands

import (
	"context"
	"strings"
	"testing"

	"github.com/halcyonchat/halcyon/internal/config"
	"github.com/halcyonchat/halcyon/internal/history"
	"github.com/halcyonchat/halcyon/internal/persona"
	"github.com/halcyonchat/halcyon/internal/schema"
	"github.com/halcyonchat/halcyon/internal/session"
	"github.com/halcyonchat/halcyon/internal/shared/tokenutils"
)

type passComp struct{}

func (passComp) Summarize(_ context.Context, text string, target int, _ string) (string, error) {
	return tokenutils.Truncate(text, target), nil
}
func (passComp) ExtractKeywords(context.Context, string, string, int) ([]string, error) {
	return nil, nil
}
func (passComp) DetectLanguage(context.Context, string) string { return "en" }

func newTestRegistry(t *testing.T) (*Registry, *session.Session) {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.DataDir = t.TempDir()

	store, err := history.NewStore(cfg.HistoriesDir())
	if err != nil {
		t.Fatal(err)
	}
	mgr := session.NewManager(&cfg, store, passComp{}, persona.NewLoader(cfg.PersonasDir()))
	reg := NewRegistry(Deps{Cfg: &cfg, Manager: mgr, Store: store})

	s, err := mgr.Get("halcyon")
	if err != nil {
		t.Fatal(err)
	}
	return reg, s
}

func TestIsCommand(t *testing.T) {
	if !IsCommand("/status") || !IsCommand("  /h on") {
		t.Error("slash lines must be commands")
	}
	if IsCommand("hello /status") || IsCommand("") {
		t.Error("plain text must not be a command")
	}
}

func TestDispatchUnknownCommand(t *testing.T) {
	reg, s := newTestRegistry(t)
	reply := reg.Dispatch(context.Background(), s, "/frobnicate")
	if !strings.Contains(reply, "Unknown command") {
		t.Errorf("reply = %q", reply)
	}
}

func TestHistoryToggle(t *testing.T) {
	reg, s := newTestRegistry(t)
	ctx := context.Background()

	reg.Dispatch(ctx, s, "/h off")
	if s.HistoryOn {
		t.Error("history still on")
	}
	reg.Dispatch(ctx, s, "/h on")
	if !s.HistoryOn {
		t.Error("history still off")
	}

	status := reg.Dispatch(ctx, s, "/h")
	if !strings.Contains(status, "History logging is on") {
		t.Errorf("status = %q", status)
	}
}

func TestHistoryFlushAndFiles(t *testing.T) {
	reg, s := newTestRegistry(t)
	ctx := context.Background()

	s.Memory.Append(ctx, schema.SpeakerUser, "persist this")

	reply := reg.Dispatch(ctx, s, "/h flush")
	if !strings.Contains(reply, "flushed to") {
		t.Errorf("flush reply = %q", reply)
	}

	files := reg.Dispatch(ctx, s, "/h files")
	if !strings.Contains(files, ".json") {
		t.Errorf("files reply = %q", files)
	}
}

func TestHistoryLoadReplacesMemory(t *testing.T) {
	reg, s := newTestRegistry(t)
	ctx := context.Background()

	s.Memory.Append(ctx, schema.SpeakerUser, "saved")
	reg.Dispatch(ctx, s, "/h flush")
	s.Memory.Append(ctx, schema.SpeakerUser, "unsaved")

	reply := reg.Dispatch(ctx, s, "/h load")
	if !strings.Contains(reply, "History reloaded") {
		t.Errorf("load reply = %q", reply)
	}
	if n0, _, _ := s.Memory.Lens(); n0 != 1 {
		t.Errorf("reload kept %d turns, want the 1 persisted", n0)
	}
}

func TestUndoDeletesNewestEntry(t *testing.T) {
	reg, s := newTestRegistry(t)
	ctx := context.Background()

	s.Memory.Append(ctx, schema.SpeakerUser, "oops")
	reply := reg.Dispatch(ctx, s, "/undo")
	if !strings.Contains(reply, "Deleted") {
		t.Errorf("undo reply = %q", reply)
	}
	if n0, _, _ := s.Memory.Lens(); n0 != 0 {
		t.Errorf("undo left %d turns", n0)
	}

	empty := reg.Dispatch(ctx, s, "/undo")
	if !strings.Contains(empty, "Nothing to delete") {
		t.Errorf("empty undo reply = %q", empty)
	}
}

func TestModelAndTemperatureCommands(t *testing.T) {
	reg, s := newTestRegistry(t)
	ctx := context.Background()

	reg.Dispatch(ctx, s, "/model llama-3.3-70b")
	if s.Model != "llama-3.3-70b" {
		t.Errorf("model = %q", s.Model)
	}
	current := reg.Dispatch(ctx, s, "/cmodel")
	if !strings.Contains(current, "llama-3.3-70b") {
		t.Errorf("cmodel reply = %q", current)
	}

	reg.Dispatch(ctx, s, "/temperature 1.2")
	if s.Temperature != 1.2 {
		t.Errorf("temperature = %v", s.Temperature)
	}
	bad := reg.Dispatch(ctx, s, "/temperature 9")
	if !strings.Contains(bad, "between 0 and 2") {
		t.Errorf("out-of-range reply = %q", bad)
	}

	reg.Dispatch(ctx, s, "/maxtokens 512")
	if s.MaxTokens != 512 {
		t.Errorf("maxTokens = %d", s.MaxTokens)
	}
}

func TestServiceSwitchResetsModel(t *testing.T) {
	reg, s := newTestRegistry(t)
	ctx := context.Background()

	s.Model = "old-model"
	reply := reg.Dispatch(ctx, s, "/service mistral")
	if !strings.Contains(reply, "Service set to mistral") {
		t.Errorf("reply = %q", reply)
	}
	if s.Service != "mistral" || s.Model != "" {
		t.Errorf("service=%q model=%q after switch", s.Service, s.Model)
	}

	unknown := reg.Dispatch(ctx, s, "/service nonsense")
	if !strings.Contains(unknown, "Unknown service") {
		t.Errorf("unknown service reply = %q", unknown)
	}
}

func TestStatusShowsSessionState(t *testing.T) {
	reg, s := newTestRegistry(t)
	reply := reg.Dispatch(context.Background(), s, "/status")
	for _, want := range []string{"Bot: halcyon", "Service:", "Temperature:", "History:"} {
		if !strings.Contains(reply, want) {
			t.Errorf("status missing %q:\n%s", want, reply)
		}
	}
}

func TestHelpListsCommands(t *testing.T) {
	reg, s := newTestRegistry(t)
	reply := reg.Dispatch(context.Background(), s, "/help")
	for _, want := range []string{"/h", "/undo", "/status", "/model"} {
		if !strings.Contains(reply, want) {
			t.Errorf("help missing %q", want)
		}
	}
}
