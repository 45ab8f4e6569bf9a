package core

import (
	"bytes"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

// fakeProvider mirrors the shape of a provider module: it decodes an
// api_key and model, publishes itself as a service, and refuses to
// validate without a key.
type fakeProvider struct {
	calls *[]string

	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

func (p *fakeProvider) ModuleInfo() ModuleInfo {
	calls := p.calls
	return ModuleInfo{
		ID:  "provider.fake",
		New: func() Module { return &fakeProvider{calls: calls} },
	}
}

func (p *fakeProvider) Configure(node *yaml.Node) error {
	*p.calls = append(*p.calls, "configure")
	return node.Decode(p)
}

func (p *fakeProvider) Provision(ctx *AppContext) error {
	*p.calls = append(*p.calls, "provision")
	ctx.Logger.Info("provider ready", "model", p.Model)
	ctx.RegisterService("provider", p)
	return nil
}

func (p *fakeProvider) Validate() error {
	*p.calls = append(*p.calls, "validate")
	if p.APIKey == "" {
		return errors.New("api_key is required")
	}
	return nil
}

// fakeChannel has no configuration and fails provisioning when asked to.
type fakeChannel struct {
	provisionErr error
}

func (c *fakeChannel) ModuleInfo() ModuleInfo {
	err := c.provisionErr
	return ModuleInfo{
		ID:  "channel.fake",
		New: func() Module { return &fakeChannel{provisionErr: err} },
	}
}

func (c *fakeChannel) Provision(*AppContext) error { return c.provisionErr }

func moduleNode(t *testing.T, src string) yaml.Node {
	t.Helper()
	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(src), &doc); err != nil {
		t.Fatal(err)
	}
	return *doc.Content[0]
}

func TestAppContext_LoadModule_Lifecycle(t *testing.T) {
	t.Cleanup(resetRegistry)

	var calls []string
	RegisterModule(&fakeProvider{calls: &calls})

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	ctx := NewAppContext(logger, t.TempDir()).WithModuleConfigs(map[string]yaml.Node{
		"provider.fake": moduleNode(t, "api_key: gsk_test\nmodel: mixtral-8x7b-32768"),
	})

	mod, err := ctx.LoadModule("provider.fake")
	if err != nil {
		t.Fatalf("LoadModule() error = %v", err)
	}

	if want := []string{"configure", "provision", "validate"}; !slices.Equal(calls, want) {
		t.Errorf("calls = %v, want %v", calls, want)
	}
	p := mod.(*fakeProvider)
	if p.Model != "mixtral-8x7b-32768" {
		t.Errorf("Model = %q, want mixtral-8x7b-32768", p.Model)
	}
	if svc, ok := ctx.GetService("provider"); !ok || svc != p {
		t.Errorf("provider service = %v, %v", svc, ok)
	}
	if !strings.Contains(buf.String(), "module=provider.fake") {
		t.Errorf("log is not scoped to the module: %s", buf.String())
	}
}

func TestAppContext_LoadModule_Errors(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		configs map[string]string
		chanErr error
		wantErr string
	}{
		{name: "unknown", id: "channel.discord", wantErr: "unknown module"},
		{
			name:    "bad yaml",
			id:      "provider.fake",
			configs: map[string]string{"provider.fake": "api_key: [unterminated"},
			wantErr: "configuring module provider.fake",
		},
		{name: "missing key", id: "provider.fake", wantErr: "validating module provider.fake"},
		{
			name:    "provision",
			id:      "channel.fake",
			chanErr: errors.New("token rejected"),
			wantErr: "provisioning module channel.fake",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Cleanup(resetRegistry)

			var calls []string
			RegisterModule(&fakeProvider{calls: &calls})
			RegisterModule(&fakeChannel{provisionErr: tt.chanErr})

			nodes := make(map[string]yaml.Node, len(tt.configs))
			for id, src := range tt.configs {
				nodes[id] = yaml.Node{Kind: yaml.ScalarNode, Value: src}
				var doc yaml.Node
				if yaml.Unmarshal([]byte(src), &doc) == nil && len(doc.Content) > 0 {
					nodes[id] = *doc.Content[0]
				}
			}

			ctx := NewAppContext(nil, t.TempDir()).WithModuleConfigs(nodes)
			_, err := ctx.LoadModule(tt.id)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("LoadModule() error = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestAppContext_LoadModule_SkipsConfigureWithoutSection(t *testing.T) {
	t.Cleanup(resetRegistry)

	var calls []string
	RegisterModule(&fakeProvider{calls: &calls})

	ctx := NewAppContext(nil, t.TempDir())
	if _, err := ctx.LoadModule("provider.fake"); err == nil {
		t.Fatal("expected validation error without api_key")
	}
	if slices.Contains(calls, "configure") {
		t.Errorf("calls = %v, Configure ran without a config section", calls)
	}
}

func TestAppContext_LoadModule_IgnoresConfigForPlainModule(t *testing.T) {
	t.Cleanup(resetRegistry)

	RegisterModule(&fakeChannel{})

	ctx := NewAppContext(nil, t.TempDir()).WithModuleConfigs(map[string]yaml.Node{
		"channel.fake": moduleNode(t, "token: x"),
	})
	if _, err := ctx.LoadModule("channel.fake"); err != nil {
		t.Fatalf("LoadModule() error = %v", err)
	}
}

func TestAppContext_ForModule(t *testing.T) {
	ctx := NewAppContext(nil, "/data").WithModuleConfigs(map[string]yaml.Node{
		"channel.telegram": moduleNode(t, "mode: polling"),
	})
	child := ctx.ForModule("channel.telegram")

	if child.DataDir != "/data" {
		t.Errorf("DataDir = %q, want /data", child.DataDir)
	}
	if _, ok := child.moduleConfigs["channel.telegram"]; !ok {
		t.Error("child context lost the module configs")
	}
}

func TestAppContext_Services(t *testing.T) {
	ctx := NewAppContext(nil, "/data")

	ctx.ForModule("transcript.sqlite").RegisterService("transcript.store", 42)

	got, ok := ctx.ForModule("gateway.http").GetService("transcript.store")
	if !ok || got.(int) != 42 {
		t.Errorf("GetService() = %v, %v; want 42 visible across module scopes", got, ok)
	}
	if _, ok := ctx.GetService("missing"); ok {
		t.Error("GetService should report false for unknown names")
	}
}

func TestRegisterModule_RejectsInvalid(t *testing.T) {
	t.Cleanup(resetRegistry)

	RegisterModule(&fakeChannel{})

	tests := []struct {
		name string
		mod  Module
	}{
		{"duplicate", &fakeChannel{}},
		{"no namespace", &lifecycleMod{id: "telegram"}},
		{"empty name", &lifecycleMod{id: "channel."}},
		{"empty", &lifecycleMod{id: ""}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Error("expected panic")
				}
			}()
			RegisterModule(tt.mod)
		})
	}
}

func TestGetModules_Namespaces(t *testing.T) {
	t.Cleanup(resetRegistry)

	var calls []string
	RegisterModule(&fakeProvider{calls: &calls})
	RegisterModule(&fakeChannel{})
	RegisterModule(&lifecycleMod{id: "transcript.fake"})

	ids := func(infos []ModuleInfo) []ModuleID {
		out := make([]ModuleID, 0, len(infos))
		for _, info := range infos {
			out = append(out, info.ID)
		}
		return out
	}

	if got, want := ids(GetModules()), []ModuleID{"channel.fake", "provider.fake", "transcript.fake"}; !slices.Equal(got, want) {
		t.Errorf("GetModules() = %v, want %v", got, want)
	}
	if got, want := ids(GetModules("provider", "channel")), []ModuleID{"channel.fake", "provider.fake"}; !slices.Equal(got, want) {
		t.Errorf("GetModules(provider, channel) = %v, want %v", got, want)
	}
	if got := GetModules("gateway"); len(got) != 0 {
		t.Errorf("GetModules(gateway) = %v, want none", got)
	}
}
