package tape

import (
	"context"
	"io"
	"strings"
	"testing"
)

func BenchmarkEncodeHelloWorld(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := Encode(helloWorldSource); err != nil {
			b.Fatalf("encode failed: %v", err)
		}
	}
}

func BenchmarkRunHelloWorld(b *testing.B) {
	prog := encodeSource(b, helloWorldSource)
	m := MustNewMachine(Config{})
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := m.Run(context.Background(), prog, nil, io.Discard); err != nil {
			b.Fatalf("run failed: %v", err)
		}
	}
}

func BenchmarkRunNestedLoops(b *testing.B) {
	prog := encodeSource(b, strings.Repeat("+", 200)+"[>"+strings.Repeat("+", 200)+"[-]<-]")
	m := MustNewMachine(Config{TapeSize: ClassicTapeSize})
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := m.Run(context.Background(), prog, nil, io.Discard); err != nil {
			b.Fatalf("run failed: %v", err)
		}
	}
}
