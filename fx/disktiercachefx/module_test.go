package disktiercachefx

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"
	"go.uber.org/zap"

	"github.com/discochess/tiercache"
	"github.com/discochess/tiercache/internal/codec/zstdcodec"
	"github.com/discochess/tiercache/internal/store/diskstore"
)

func TestModule(t *testing.T) {
	dir := t.TempDir()
	st, err := diskstore.New(dir, zstdcodec.New())
	if err != nil {
		t.Fatalf("diskstore.New() error = %v", err)
	}
	if err := st.Write(context.Background(), "greeting", []byte("hello")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	cfgFile := filepath.Join(dir, "levels.yaml")
	yaml := "levels:\n  - capacity: 2\n    policy: LRU\n  - capacity: 4\n    policy: LFU\n"
	if err := os.WriteFile(cfgFile, []byte(yaml), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	var cache *tiercache.Cache[string, []byte]
	app := fxtest.New(t,
		fx.Supply(zap.NewNop()),
		fx.Supply(Config{DataDir: dir, ConfigFile: cfgFile}),
		Module,
		fx.Populate(&cache),
	)
	app.RequireStart()
	defer app.RequireStop()

	got, err := cache.Get(context.Background(), "greeting")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(got) != "hello" {
		t.Errorf("Get() = %q, want %q", got, "hello")
	}
	if cache.Levels() != 2 {
		t.Errorf("Levels() = %d, want 2", cache.Levels())
	}
}

func TestModule_RequiresDataDir(t *testing.T) {
	app := fx.New(
		fx.NopLogger,
		fx.Supply(zap.NewNop()),
		fx.Supply(Config{}),
		Module,
		fx.Invoke(func(*tiercache.Cache[string, []byte]) {}),
	)
	if app.Err() == nil {
		t.Error("fx.New() should fail without a data directory")
	}
}
