package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

func TestDefaultSettings(t *testing.T) {
	t.Parallel()

	s := DefaultSettings()
	if s.APIURL != "https://api.chucknorris.io/jokes/random" {
		t.Errorf("unexpected default api_url %q", s.APIURL)
	}
	if s.NodeType != "jokes" {
		t.Errorf("unexpected default node_type %q", s.NodeType)
	}
	if s.PageSize != 5 {
		t.Errorf("unexpected default page_size %d", s.PageSize)
	}
	if err := s.Validate(); err != nil {
		t.Errorf("defaults should validate, got %v", err)
	}
}

func TestValidateAPIURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{name: "https url", raw: "https://api.chucknorris.io/jokes/random", wantErr: false},
		{name: "http url with port", raw: "http://127.0.0.1:8080/random", wantErr: false},
		{name: "empty", raw: "", wantErr: true},
		{name: "no scheme", raw: "api.chucknorris.io/jokes/random", wantErr: true},
		{name: "ftp scheme", raw: "ftp://example.com/joke", wantErr: true},
		{name: "missing host", raw: "http:///random", wantErr: true},
		{name: "unparseable", raw: "http://[::1", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := ValidateAPIURL(tt.raw)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidAPIURL) {
					t.Errorf("expected ErrInvalidAPIURL, got %v", err)
				}
				return
			}
			if err != nil {
				t.Errorf("expected no error, got %v", err)
			}
		})
	}
}

func TestSettingsValidate(t *testing.T) {
	t.Parallel()

	t.Run("empty node type", func(t *testing.T) {
		t.Parallel()
		s := DefaultSettings()
		s.NodeType = ""
		if err := s.Validate(); !errors.Is(err, ErrInvalidNodeType) {
			t.Errorf("expected ErrInvalidNodeType, got %v", err)
		}
	})

	t.Run("negative page size", func(t *testing.T) {
		t.Parallel()
		s := DefaultSettings()
		s.PageSize = -1
		if err := s.Validate(); !errors.Is(err, ErrInvalidPageSize) {
			t.Errorf("expected ErrInvalidPageSize, got %v", err)
		}
	})

	t.Run("page size above the limit", func(t *testing.T) {
		t.Parallel()
		s := DefaultSettings()
		s.PageSize = MaxPageSize + 1
		if err := s.Validate(); !errors.Is(err, ErrInvalidPageSize) {
			t.Errorf("expected ErrInvalidPageSize, got %v", err)
		}
	})

	t.Run("zero page size is allowed", func(t *testing.T) {
		t.Parallel()
		s := DefaultSettings()
		s.PageSize = 0
		if err := s.Validate(); err != nil {
			t.Errorf("expected no error, got %v", err)
		}
	})
}

func TestSettingsStore(t *testing.T) {
	t.Parallel()

	t.Run("open before install returns ErrSettingsNotFound", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "settings.yaml")
		_, err := OpenSettingsStore(path)
		if !errors.Is(err, ErrSettingsNotFound) {
			t.Errorf("expected ErrSettingsNotFound, got %v", err)
		}
	})

	t.Run("install writes namespaced defaults", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "nested", "settings.yaml")
		store := NewSettingsStore(path)
		if err := store.Install(false); err != nil {
			t.Fatalf("install failed: %v", err)
		}

		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("failed to read settings: %v", err)
		}
		content := string(data)
		for _, want := range []string{"norris_import.settings:", "api_url: https://api.chucknorris.io/jokes/random", "node_type: jokes", "page_size: 5"} {
			if !strings.Contains(content, want) {
				t.Errorf("expected settings file to contain %q, got:\n%s", want, content)
			}
		}
	})

	t.Run("install twice without force fails", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "settings.yaml")
		store := NewSettingsStore(path)
		if err := store.Install(false); err != nil {
			t.Fatalf("install failed: %v", err)
		}
		if err := store.Install(false); !errors.Is(err, ErrSettingsExist) {
			t.Errorf("expected ErrSettingsExist, got %v", err)
		}
	})

	t.Run("install with force resets edited settings", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "settings.yaml")
		store := NewSettingsStore(path)
		if err := store.Install(false); err != nil {
			t.Fatalf("install failed: %v", err)
		}
		if err := store.Set(KeyPageSize, "40"); err != nil {
			t.Fatalf("set failed: %v", err)
		}
		if err := store.Save(); err != nil {
			t.Fatalf("save failed: %v", err)
		}
		if err := store.Install(true); err != nil {
			t.Fatalf("forced install failed: %v", err)
		}

		reopened, err := OpenSettingsStore(path)
		if err != nil {
			t.Fatalf("open failed: %v", err)
		}
		if reopened.PageSize() != DefaultPageSize {
			t.Errorf("expected page_size reset to %d, got %d", DefaultPageSize, reopened.PageSize())
		}
	})

	t.Run("set then save round trips through disk", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "settings.yaml")
		store := NewSettingsStore(path)
		if err := store.Install(false); err != nil {
			t.Fatalf("install failed: %v", err)
		}

		if err := store.Set(KeyAPIURL, "http://127.0.0.1:9999/random"); err != nil {
			t.Fatalf("set api_url failed: %v", err)
		}
		if err := store.Set(KeyNodeType, "quips"); err != nil {
			t.Fatalf("set node_type failed: %v", err)
		}
		if err := store.Set(KeyPageSize, "12"); err != nil {
			t.Fatalf("set page_size failed: %v", err)
		}
		if err := store.Save(); err != nil {
			t.Fatalf("save failed: %v", err)
		}

		reopened, err := OpenSettingsStore(path)
		if err != nil {
			t.Fatalf("open failed: %v", err)
		}
		if reopened.APIURL() != "http://127.0.0.1:9999/random" {
			t.Errorf("unexpected api_url %q", reopened.APIURL())
		}
		if reopened.NodeType() != "quips" {
			t.Errorf("unexpected node_type %q", reopened.NodeType())
		}
		if reopened.PageSize() != 12 {
			t.Errorf("unexpected page_size %d", reopened.PageSize())
		}
	})

	t.Run("missing keys keep defaults", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "settings.yaml")
		if err := os.WriteFile(path, []byte("norris_import.settings:\n  page_size: 3\n"), 0600); err != nil {
			t.Fatalf("failed to write settings: %v", err)
		}

		store, err := OpenSettingsStore(path)
		if err != nil {
			t.Fatalf("open failed: %v", err)
		}
		if store.PageSize() != 3 {
			t.Errorf("expected page_size 3, got %d", store.PageSize())
		}
		if store.NodeType() != DefaultNodeType {
			t.Errorf("expected default node_type, got %q", store.NodeType())
		}
		if store.APIURL() != DefaultAPIURL {
			t.Errorf("expected default api_url, got %q", store.APIURL())
		}
	})

	t.Run("malformed yaml is an error", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "settings.yaml")
		if err := os.WriteFile(path, []byte("norris_import.settings: [unclosed"), 0600); err != nil {
			t.Fatalf("failed to write settings: %v", err)
		}
		if _, err := OpenSettingsStore(path); err == nil {
			t.Error("expected parse error")
		}
	})

	t.Run("save rejects invalid settings", func(t *testing.T) {
		t.Parallel()

		store := NewSettingsStore(filepath.Join(t.TempDir(), "settings.yaml"))
		if err := store.Set(KeyAPIURL, ""); err != nil {
			t.Fatalf("set failed: %v", err)
		}
		if err := store.Save(); !errors.Is(err, ErrInvalidAPIURL) {
			t.Errorf("expected ErrInvalidAPIURL, got %v", err)
		}
		if store.Exists() {
			t.Error("invalid settings should not be written")
		}
	})

	t.Run("get and set reject unknown keys", func(t *testing.T) {
		t.Parallel()

		store := NewSettingsStore(filepath.Join(t.TempDir(), "settings.yaml"))
		if _, err := store.Get("colour"); !errors.Is(err, ErrUnknownSetting) {
			t.Errorf("expected ErrUnknownSetting from Get, got %v", err)
		}
		if err := store.Set("colour", "blue"); !errors.Is(err, ErrUnknownSetting) {
			t.Errorf("expected ErrUnknownSetting from Set, got %v", err)
		}
	})

	t.Run("set rejects non numeric page size", func(t *testing.T) {
		t.Parallel()

		store := NewSettingsStore(filepath.Join(t.TempDir(), "settings.yaml"))
		for _, v := range []string{"ten", "-1", ""} {
			if err := store.Set(KeyPageSize, v); !errors.Is(err, ErrInvalidPageSize) {
				t.Errorf("Set(page_size, %q): expected ErrInvalidPageSize, got %v", v, err)
			}
		}
		if store.PageSize() != DefaultPageSize {
			t.Errorf("page size should be unchanged, got %d", store.PageSize())
		}
	})

	t.Run("get formats every key", func(t *testing.T) {
		t.Parallel()

		store := NewSettingsStore(filepath.Join(t.TempDir(), "settings.yaml"))
		want := map[string]string{
			KeyAPIURL:   DefaultAPIURL,
			KeyNodeType: DefaultNodeType,
			KeyPageSize: "5",
		}
		for key, expected := range want {
			got, err := store.Get(key)
			if err != nil {
				t.Errorf("Get(%q) failed: %v", key, err)
				continue
			}
			if got != expected {
				t.Errorf("Get(%q) = %q, want %q", key, got, expected)
			}
		}
	})

	t.Run("update validates before replacing", func(t *testing.T) {
		t.Parallel()

		store := NewSettingsStore(filepath.Join(t.TempDir(), "settings.yaml"))
		err := store.Update(Settings{APIURL: "https://example.com/joke", NodeType: "", PageSize: 1})
		if !errors.Is(err, ErrInvalidNodeType) {
			t.Errorf("expected ErrInvalidNodeType, got %v", err)
		}
		if store.NodeType() != DefaultNodeType {
			t.Errorf("settings should be unchanged, got node_type %q", store.NodeType())
		}
	})

	t.Run("delete removes the file and tolerates absence", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "settings.yaml")
		store := NewSettingsStore(path)
		if err := store.Install(false); err != nil {
			t.Fatalf("install failed: %v", err)
		}
		if err := store.Delete(); err != nil {
			t.Fatalf("delete failed: %v", err)
		}
		if store.Exists() {
			t.Error("settings file should be gone")
		}
		if err := store.Delete(); err != nil {
			t.Errorf("second delete should be a no-op, got %v", err)
		}
	})

	t.Run("load rejects invalid values", func(t *testing.T) {
		t.Parallel()

		tests := []struct {
			name    string
			content string
			want    error
		}{
			{name: "negative page size", content: "norris_import.settings:\n  page_size: -1\n", want: ErrInvalidPageSize},
			{name: "huge page size", content: "norris_import.settings:\n  page_size: 1125899906842624\n", want: ErrInvalidPageSize},
			{name: "empty node type", content: "norris_import.settings:\n  node_type: \"\"\n", want: ErrInvalidNodeType},
			{name: "relative api url", content: "norris_import.settings:\n  api_url: /jokes\n", want: ErrInvalidAPIURL},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				t.Parallel()
				path := filepath.Join(t.TempDir(), "settings.yaml")
				if err := os.WriteFile(path, []byte(tt.content), 0600); err != nil {
					t.Fatalf("failed to write settings: %v", err)
				}
				if _, err := OpenSettingsStore(path); !errors.Is(err, tt.want) {
					t.Errorf("expected %v, got %v", tt.want, err)
				}
			})
		}
	})

	t.Run("failed update keeps current settings", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		blocker := filepath.Join(dir, "blocker")
		if err := os.WriteFile(blocker, nil, 0600); err != nil {
			t.Fatalf("failed to create blocker file: %v", err)
		}
		store := NewSettingsStore(filepath.Join(blocker, "settings.yaml"))

		next := DefaultSettings()
		next.PageSize = 9
		if err := store.Update(next); err == nil {
			t.Fatal("expected write error for a path under a regular file")
		}
		if store.PageSize() != DefaultPageSize {
			t.Errorf("page_size = %d, want unchanged %d", store.PageSize(), DefaultPageSize)
		}
	})

	t.Run("patch applies changes and rejects invalid ones", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "settings.yaml")
		store := NewSettingsStore(path)
		got, err := store.Patch(func(s *Settings) { s.NodeType = "norris" })
		if err != nil {
			t.Fatalf("Patch() error = %v", err)
		}
		if got.NodeType != "norris" || got.APIURL != DefaultAPIURL {
			t.Errorf("Patch() = %+v", got)
		}

		got, err = store.Patch(func(s *Settings) { s.PageSize = -3 })
		if !errors.Is(err, ErrInvalidPageSize) {
			t.Errorf("expected ErrInvalidPageSize, got %v", err)
		}
		if got.PageSize != DefaultPageSize || store.PageSize() != DefaultPageSize {
			t.Errorf("rejected patch changed page_size to %d", store.PageSize())
		}

		reloaded, err := OpenSettingsStore(path)
		if err != nil {
			t.Fatalf("OpenSettingsStore() error = %v", err)
		}
		if reloaded.NodeType() != "norris" {
			t.Errorf("persisted node_type = %q", reloaded.NodeType())
		}
	})

	t.Run("concurrent patches do not lose updates", func(t *testing.T) {
		t.Parallel()

		store := NewSettingsStore(filepath.Join(t.TempDir(), "settings.yaml"))
		const writers = 10
		var wg sync.WaitGroup
		for range writers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := store.Patch(func(s *Settings) { s.PageSize++ }); err != nil {
					t.Errorf("Patch() error = %v", err)
				}
			}()
		}
		wg.Wait()

		if got := store.PageSize(); got != DefaultPageSize+writers {
			t.Errorf("page_size = %d, want %d", got, DefaultPageSize+writers)
		}
	})

	t.Run("concurrent readers and writers", func(t *testing.T) {
		t.Parallel()

		store := NewSettingsStore(filepath.Join(t.TempDir(), "settings.yaml"))
		var wg sync.WaitGroup
		for i := range 20 {
			wg.Add(2)
			go func() {
				defer wg.Done()
				_ = store.PageSize()
			}()
			go func() {
				defer wg.Done()
				_ = store.Set(KeyPageSize, "1"+strings.Repeat("0", i%3))
			}()
		}
		wg.Wait()
	})
}

func TestResolveSettingsPath(t *testing.T) {
	t.Parallel()

	t.Run("explicit path wins even if missing", func(t *testing.T) {
		t.Parallel()
		explicit := filepath.Join(t.TempDir(), "custom.yaml")
		if got := ResolveSettingsPath(explicit); got != explicit {
			t.Errorf("expected %q, got %q", explicit, got)
		}
	})

	t.Run("falls back to a path ending in settings.yaml", func(t *testing.T) {
		t.Parallel()
		got := ResolveSettingsPath("")
		if filepath.Base(got) != DefaultSettingsFile && filepath.Base(got) != LocalSettingsFile {
			t.Errorf("unexpected fallback path %q", got)
		}
	})
}
