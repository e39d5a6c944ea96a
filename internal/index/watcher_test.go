package index

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/starford/souschef/internal/llm"
)

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

func TestWatcher_NewFileRebuilds(t *testing.T) {
	env := newEnv(t)
	m := env.manager(llm.NewHashEmbedder(32))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go Watch(ctx, m, 50*time.Millisecond, testLogger(), nil)
	time.Sleep(100 * time.Millisecond)

	env.write(t, "risotto.md", "# Risotto\n\nToast the rice.")
	eventually(t, 5*time.Second, 50*time.Millisecond, m.IsAvailable, "index not built after file creation")
	m.Wait()
}

func TestWatcher_IgnoresNonDocuments(t *testing.T) {
	env := newEnv(t)
	m := env.manager(llm.NewHashEmbedder(32))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go Watch(ctx, m, 50*time.Millisecond, testLogger(), nil)
	time.Sleep(100 * time.Millisecond)

	env.write(t, "photo.png", "binary")
	time.Sleep(300 * time.Millisecond)
	if m.IsAvailable() {
		t.Error("non-document change built an index")
	}
}

func TestWatcher_NewDirWatched(t *testing.T) {
	env := newEnv(t)
	m := env.manager(llm.NewHashEmbedder(32))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go Watch(ctx, m, 50*time.Millisecond, testLogger(), nil)
	time.Sleep(100 * time.Millisecond)

	if err := os.MkdirAll(filepath.Join(env.dir, "desserts"), 0o755); err != nil {
		t.Fatal(err)
	}
	time.Sleep(150 * time.Millisecond)
	env.write(t, "desserts/flan.txt", "Caramelize the sugar.")

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		h := m.Current()
		return h != nil && len(h.Documents) == 1
	}, "file in new directory not indexed")
	m.Wait()
}

func TestWatcher_EmptyStoreClears(t *testing.T) {
	env := newEnv(t)
	env.write(t, "soup.txt", "Simmer the stock.")
	m := env.manager(llm.NewHashEmbedder(32))
	if _, err := m.Build(context.Background()); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	cleared := make(chan Status, 1)
	go Watch(ctx, m, 50*time.Millisecond, testLogger(), func(st Status, err error) {
		if err == nil && !st.Available {
			cleared <- st
		}
	})
	time.Sleep(100 * time.Millisecond)

	os.Remove(filepath.Join(env.dir, "soup.txt"))
	select {
	case <-cleared:
	case <-time.After(5 * time.Second):
		t.Fatal("index not cleared after last document removed")
	}
	if m.IsAvailable() {
		t.Error("index still available")
	}
}

func TestReconcile_SkipsUnchangedStore(t *testing.T) {
	env := newEnv(t)
	env.write(t, "soup.txt", "Simmer the stock.")
	m := env.manager(llm.NewHashEmbedder(32))
	st, err := m.Build(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	called := false
	Reconcile(context.Background(), m, testLogger(), func(Status, error) { called = true })
	m.Wait()
	if called || m.Current().Generation != st.Generation {
		t.Error("unchanged store triggered a rebuild")
	}

	env.write(t, "stew.txt", "Brown the meat.")
	done := make(chan Status, 1)
	Reconcile(context.Background(), m, testLogger(), func(st Status, _ error) { done <- st })
	select {
	case st := <-done:
		if st.Documents != 2 {
			t.Errorf("documents = %d, want 2", st.Documents)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("changed store not rebuilt")
	}
}

func TestReconcile_RebuildsAfterDimensionChange(t *testing.T) {
	env := newEnv(t)
	env.write(t, "soup.txt", "Simmer the stock.")
	if _, err := env.manager(llm.NewHashEmbedder(64)).Build(context.Background()); err != nil {
		t.Fatal(err)
	}

	m := env.manager(llm.NewHashEmbedder(256))
	if _, err := m.Load(context.Background()); err != nil {
		t.Fatal(err)
	}
	done := make(chan error, 1)
	Reconcile(context.Background(), m, testLogger(), func(_ Status, err error) { done <- err })
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("rebuild: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("store with a stale index was not rebuilt")
	}
	if got := m.Current().Dimension; got != 256 {
		t.Errorf("dimension = %d, want 256", got)
	}
}
