package cli

import (
	"bytes"
	"os"
	"slices"
	"testing"
)

func TestRootCommand(t *testing.T) {
	root := New(&bytes.Buffer{}, LogInfo).RootCommand()

	var names []string
	for _, cmd := range root.Commands() {
		names = append(names, cmd.Name())
	}
	for _, want := range []string{"render", "layout", "inspect", "explore", "serve", "cache", "completion"} {
		if !slices.Contains(names, want) {
			t.Errorf("missing command %q in %v", want, names)
		}
	}
	if root.PersistentFlags().Lookup("config") == nil {
		t.Error("missing --config flag")
	}
}

func TestInspectCommand(t *testing.T) {
	isolate(t)
	input := writeFile(t, "flow.json", testDoc)

	root := New(&bytes.Buffer{}, LogInfo).RootCommand()
	root.SetArgs([]string{"inspect", input, "--collapse", "A", "--edges", "--no-cache"})
	root.SetOut(&bytes.Buffer{})
	if err := root.Execute(); err != nil {
		t.Fatalf("inspect: %v", err)
	}

	root = New(&bytes.Buffer{}, LogInfo).RootCommand()
	root.SetArgs([]string{"inspect", input, "--collapse", "Z", "--no-cache"})
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	if err := root.Execute(); err == nil {
		t.Error("collapsing an unknown container should fail")
	}
}

func TestConfigFlag(t *testing.T) {
	isolate(t)
	input := writeFile(t, "flow.json", testDoc)
	cfg := writeFile(t, "config.toml", "[layout]\nengine = \"nope\"\n")

	root := New(os.Stderr, LogInfo).RootCommand()
	root.SetArgs([]string{"--config", cfg, "inspect", input})
	root.SetErr(&bytes.Buffer{})
	if err := root.Execute(); err == nil {
		t.Error("an unknown engine in the config file should fail")
	}
}
