package cache_test

import (
	"context"
	"strconv"
	"testing"
	"time"

	pca "github.com/patrickmn/go-cache"
	cache "github.com/veartutop/feedcache"
)

func Benchmark_Store(b *testing.B) {
	s := cache.NewStore()
	defer s.Close()

	ctx := context.Background()

	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		k := "oneone" + strconv.Itoa(i%10000)

		if i < 10000 {
			s.Set(ctx, k, 123, 0)
		}

		_, _ = s.Get(ctx, k)
	}
}

func Benchmark_Store_parallel(b *testing.B) {
	s := cache.NewStore()
	defer s.Close()

	ctx := context.Background()

	for i := 0; i < 10000; i++ {
		s.Set(ctx, "oneone"+strconv.Itoa(i), 123, 0)
	}

	b.ReportAllocs()
	b.ResetTimer()

	b.RunParallel(func(pb *testing.PB) {
		i := 0

		for pb.Next() {
			_, _ = s.Get(ctx, "oneone"+strconv.Itoa(i%10000))
			i++
		}
	})
}

func Benchmark_Revalidator(b *testing.B) {
	s := cache.NewStore()
	defer s.Close()

	r := cache.NewRevalidator(s, cache.RevalidatorConfig{})
	ctx := context.Background()

	build := func(ctx context.Context) (interface{}, error) {
		return 123, nil
	}

	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		k := "oneone" + strconv.Itoa(i%10000)
		_, _ = r.Get(ctx, k, build)
	}
}

func Benchmark_Patrickmn(b *testing.B) {
	c := pca.New(5*time.Minute, 10*time.Minute)

	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		k := "oneone" + strconv.Itoa(i%10000)

		if i < 10000 {
			c.Set(k, 123, time.Minute)
		}

		_, _ = c.Get(k)
	}
}
