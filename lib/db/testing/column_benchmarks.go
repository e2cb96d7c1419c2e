package testing

import (
	"testing"

	"github.com/ValentinKolb/dQuery/lib/db"
)

// RunColumnBenchmarks runs the write and lookup benchmarks for a column
func RunColumnBenchmarks(b *testing.B, name string, factory ColumnFactory, samples []any) {
	b.Run(name+"/SetValue", func(b *testing.B) {
		benchmarkSetValue(b, factory(), samples)
	})

	b.Run(name+"/Select", func(b *testing.B) {
		benchmarkSelect(b, factory(), samples)
	})

	b.Run(name+"/CheckValue", func(b *testing.B) {
		benchmarkCheckValue(b, factory(), samples)
	})
}

// --------------------------------------------------------------------------
// Benchmark functions
// --------------------------------------------------------------------------

func benchmarkSetValue(b *testing.B, c db.Column, samples []any) {
	table := newTable(b, c)
	rows := make([]*db.Row, 1024)
	for i := range rows {
		rows[i] = addRow(b, table, c, samples[i%len(samples)])
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = c.SetValue(rows[i%len(rows)], samples[i%len(samples)])
	}
}

func benchmarkSelect(b *testing.B, c db.Column, samples []any) {
	table := newTable(b, c)
	for i := 0; i < 10_000; i++ {
		addRow(b, table, c, samples[i%len(samples)])
	}

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			_, _ = c.Select(samples[i%len(samples)], db.Equal)
			i++
		}
	})
}

func benchmarkCheckValue(b *testing.B, c db.Column, samples []any) {
	table := newTable(b, c)
	row := addRow(b, table, c, samples[0])

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = c.CheckValue(row, samples[i%len(samples)], db.Equal)
	}
}
