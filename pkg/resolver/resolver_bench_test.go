package resolver

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/cephforge/cephcli/pkg/signature"
)

// benchDescriptions returns a document of n pool commands plus the fixed
// descriptions, roughly the size a monitor advertises.
func benchDescriptions(b *testing.B, n int) []byte {
	b.Helper()

	var doc map[string]any
	if err := json.Unmarshal([]byte(descriptions), &doc); err != nil {
		b.Fatalf("failed to decode descriptions: %v", err)
	}
	for i := 0; i < n; i++ {
		doc[fmt.Sprintf("gen%04d", i)] = map[string]any{
			"sig": []any{
				"osd", "pool", fmt.Sprintf("op%d", i),
				map[string]any{"type": "CephPoolname", "name": "pool"},
				map[string]any{"type": "CephInt", "name": "val", "range": "0|100"},
			},
			"help": "generated",
		}
	}

	data, err := json.Marshal(doc)
	if err != nil {
		b.Fatalf("failed to encode descriptions: %v", err)
	}
	return data
}

func benchTable(b *testing.B, n int) *signature.Table {
	b.Helper()
	table, err := signature.Load(benchDescriptions(b, n), nil)
	if err != nil {
		b.Fatalf("failed to load descriptions: %v", err)
	}
	return table
}

// BenchmarkResolve_Accepted benchmarks resolving a valid command line
func BenchmarkResolve_Accepted(b *testing.B) {
	r := New(benchTable(b, 500))
	tokens := []string{"osd", "pool", "set", "rbd", "size", "3"}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := r.Resolve(tokens, Options{}); err != nil {
			b.Fatalf("failed to resolve: %v", err)
		}
	}
}

// BenchmarkResolve_NoMatch benchmarks the diagnostic path
func BenchmarkResolve_NoMatch(b *testing.B) {
	r := New(benchTable(b, 500))
	tokens := []string{"osd", "pool", "op7", "rbd", "1000"}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := r.Resolve(tokens, Options{}); err == nil {
			b.Fatal("expected no match")
		}
	}
}

// BenchmarkLoad benchmarks loading a large description document
func BenchmarkLoad(b *testing.B) {
	data := benchDescriptions(b, 500)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := signature.Load(data, nil); err != nil {
			b.Fatalf("failed to load: %v", err)
		}
	}
}
