package callgraph

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

// benchPySource is a realistic Python module with classes, nested calls,
// comprehensions and module-level code for exercising the full pipeline.
const benchPySource = `import json
import logging

log = logging.getLogger(__name__)


class Config:
    def __init__(self, name, retries=3):
        self.name = name
        self.retries = retries

    def validate(self):
        if not self.name:
            raise ValueError("name is required")


def load_config(path):
    with open(path) as fh:
        raw = json.load(fh)
    cfg = Config(raw["name"], retries=raw.get("retries", 3))
    validate_config(cfg)
    return cfg


def validate_config(cfg):
    assert isinstance(cfg, Config), type(cfg)
    cfg.validate()


def fetch(client, url):
    for attempt in range(3):
        try:
            resp = client.get(url)
            return parse(resp)
        except IOError:
            log.warning("retry %d", attempt)
        finally:
            client.close()


def parse(resp):
    data = resp.json()
    return {key.lower(): normalize(value) for key, value in data.items()}


def normalize(value):
    if isinstance(value, str):
        return value.strip()
    return value


def process(items):
    results = [transform(item) for item in items if keep(item)]
    total = sum(len(r) for r in results)
    while total > 100:
        total -= shrink(results)
    return results


def transform(item):
    return item.upper() + suffix()


def suffix():
    return "-" + str(counter())


def counter():
    return len(seen) + 1


def shrink(results):
    return len(results.pop())


def main():
    cfg = load_config("config.json")
    data = fetch(make_client(cfg), cfg.name)
    out = process(data)
    print(json.dumps(out))


main()
`

func BenchmarkBuild(b *testing.B) {
	ctx := context.Background()
	src := []byte(benchPySource)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Build(ctx, src, "bench.py"); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkAnalyze(b *testing.B) {
	g, err := Build(context.Background(), []byte(benchPySource), "bench.py")
	if err != nil {
		b.Fatal(err)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Analyze(g)
	}
}

// BenchmarkBuildFile measures a full build and snapshot commit. Each
// iteration uses a fresh database so the unchanged-hash shortcut never
// applies.
func BenchmarkBuildFile(b *testing.B) {
	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		b.StopTimer()
		dir := b.TempDir()
		e, err := New(filepath.Join(dir, "bench.db"))
		if err != nil {
			b.Fatal(err)
		}
		srcPath := filepath.Join(dir, "bench.py")
		if err := os.WriteFile(srcPath, []byte(benchPySource), 0o644); err != nil {
			e.Close()
			b.Fatal(err)
		}
		b.StartTimer()

		if _, err := e.BuildFile(ctx, srcPath); err != nil {
			e.Close()
			b.Fatal(err)
		}

		b.StopTimer()
		e.Close()
		b.StartTimer()
	}
}

// BenchmarkQueryGraph measures loading a stored snapshot back into a Graph.
func BenchmarkQueryGraph(b *testing.B) {
	dir := b.TempDir()
	e, err := New(filepath.Join(dir, "bench.db"))
	if err != nil {
		b.Fatal(err)
	}
	defer e.Close()
	srcPath := filepath.Join(dir, "bench.py")
	if err := os.WriteFile(srcPath, []byte(benchPySource), 0o644); err != nil {
		b.Fatal(err)
	}
	if _, err := e.BuildFile(context.Background(), srcPath); err != nil {
		b.Fatal(err)
	}

	q := e.Query()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := q.Graph(srcPath); err != nil {
			b.Fatal(err)
		}
	}
}
