package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/roach88/adl/internal/engine"
	"github.com/roach88/adl/internal/ir"
	"github.com/roach88/adl/internal/schema"
	"github.com/roach88/adl/internal/testutil"
)

// createTestStore creates a new store in a temp directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// widgetAPI pairs normalized Widget{color, size} with versioned Widget{colour -> color}.
func widgetAPI() *schema.ApiModel {
	normalized := testutil.Model("Widget", testutil.Str("color"), testutil.Num("size"))
	versioned := testutil.Model("Widget", testutil.Str("colour", testutil.Rename("color")))
	return testutil.API("widgets", normalized, "v1", versioned)
}

func newTestRuntime(t *testing.T, api *schema.ApiModel) *engine.Runtime {
	t.Helper()
	rt, err := engine.New(api, engine.WithIDGenerator(testutil.NewSequentialIDs("")))
	if err != nil {
		t.Fatalf("engine.New() failed: %v", err)
	}
	return rt
}

// recordNormalize runs a normalization and builds its record.
func recordNormalize(t *testing.T, rt *engine.Runtime, input ir.IRObject) ConversionRecord {
	t.Helper()
	res, err := rt.Normalize(context.Background(), "v1", "Widget", input)
	if err != nil {
		t.Fatalf("Normalize() failed: %v", err)
	}
	rec, err := NewConversionRecord(rt.API().Name, "v1", "Widget", engine.ToNormalized, input, res)
	if err != nil {
		t.Fatalf("NewConversionRecord() failed: %v", err)
	}
	return rec
}
