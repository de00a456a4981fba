package arena_test

import (
	"fmt"
	"runtime"
	"testing"

	arena "github.com/pavanmanishd/msgarena"
	"github.com/pavanmanishd/msgarena/layout"
)

// BenchmarkConcurrencyPatterns tests various concurrent usage patterns
func BenchmarkConcurrencyPatterns(b *testing.B) {

	// Sequential vs Parallel SafeArena usage
	b.Run("SafeArena_Sequential", func(b *testing.B) {
		s := arena.NewSafeArena(1024 * 1024)
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			if _, err := s.Allocate(64, nil); err != nil {
				b.Fatal(err)
			}
		}
	})

	b.Run("SafeArena_Parallel", func(b *testing.B) {
		s := arena.NewSafeArena(1024 * 1024)
		b.ResetTimer()
		b.RunParallel(func(pb *testing.PB) {
			for pb.Next() {
				if _, err := s.Allocate(64, nil); err != nil {
					b.Error(err)
					return
				}
			}
		})
	})

	// One message per goroutine vs one shared message
	b.Run("Arena_PerGoroutine", func(b *testing.B) {
		b.RunParallel(func(pb *testing.PB) {
			a := arena.NewArena(1024 * 1024)
			for pb.Next() {
				if _, err := a.Allocate(64, nil); err != nil {
					b.Error(err)
					return
				}
			}
		})
	})
}

// BenchmarkSafeArenaOperations measures the locked wrappers one by one
func BenchmarkSafeArenaOperations(b *testing.B) {
	b.Run("InitText", func(b *testing.B) {
		s := arena.NewSafeArena(1024 * 1024)
		for i := 0; i < b.N; i++ {
			if _, err := s.InitText("concurrent", nil); err != nil {
				b.Fatal(err)
			}
		}
	})

	b.Run("InitRoot", func(b *testing.B) {
		s := arena.NewSafeArena(1024 * 1024)
		for i := 0; i < b.N; i++ {
			if _, err := s.InitRoot(layout.StructBytes{Data: 8}); err != nil {
				b.Fatal(err)
			}
		}
	})

	b.Run("Metrics", func(b *testing.B) {
		s := arena.NewSafeArena(1024)
		for i := 0; i < b.N; i++ {
			_ = s.Metrics()
		}
	})
}

// BenchmarkScalability shows lock contention as goroutines are added
func BenchmarkScalability(b *testing.B) {
	for _, procs := range []int{1, 2, 4, 8} {
		b.Run(fmt.Sprintf("Procs_%d", procs), func(b *testing.B) {
			prev := runtime.GOMAXPROCS(procs)
			defer runtime.GOMAXPROCS(prev)

			s := arena.NewSafeArena(1024 * 1024)
			b.ResetTimer()
			b.RunParallel(func(pb *testing.PB) {
				for pb.Next() {
					if _, err := s.InitData(32, nil); err != nil {
						b.Error(err)
						return
					}
				}
			})
		})
	}
}
