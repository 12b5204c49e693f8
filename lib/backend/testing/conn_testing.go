package testing

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/ValentinKolb/trol/lib/backend"
	"github.com/redis/go-redis/v9"
)

// ConnFactory creates a connection to an empty server
type ConnFactory func(t testing.TB) backend.Conn

// RunConnTests runs the conformance suite against connections produced by factory.
func RunConnTests(t *testing.T, name string, factory ConnFactory) {
	t.Run(name, func(t *testing.T) {
		t.Run("Get&Set", func(t *testing.T) {
			testGetSet(t, factory(t))
		})

		t.Run("MultiKey", func(t *testing.T) {
			testMultiKey(t, factory(t))
		})

		t.Run("Expire", func(t *testing.T) {
			testExpire(t, factory(t))
		})

		t.Run("SetNX", func(t *testing.T) {
			testSetNX(t, factory(t))
		})

		t.Run("SetStoreOps", func(t *testing.T) {
			testSetStoreOps(t, factory(t))
		})

		t.Run("ListRanges", func(t *testing.T) {
			testListRanges(t, factory(t))
		})

		t.Run("SortedSetRanges", func(t *testing.T) {
			testSortedSetRanges(t, factory(t))
		})

		t.Run("Hash", func(t *testing.T) {
			testHash(t, factory(t))
		})

		t.Run("BatchAtomic", func(t *testing.T) {
			testBatchAtomic(t, factory(t))
		})

		t.Run("WatchConflict", func(t *testing.T) {
			testWatchConflict(t, factory(t))
		})
	})
}

// --------------------------------------------------------------------------
// Test functions
// --------------------------------------------------------------------------

func testGetSet(t *testing.T, conn backend.Conn) {
	ctx := context.Background()

	_, err := conn.Get(ctx, "nonexistent-key").Result()
	if !backend.IsNil(err) {
		t.Errorf("Expected nil reply for nonexistent key, got %v", err)
	}

	if err := conn.Set(ctx, "test-key", "test-value1", 0).Err(); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	v, err := conn.Get(ctx, "test-key").Result()
	if err != nil || v != "test-value1" {
		t.Errorf("Expected value test-value1, got %q (%v)", v, err)
	}

	if err := conn.Set(ctx, "test-key", "test-value2", 0).Err(); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	v, _ = conn.Get(ctx, "test-key").Result()
	if v != "test-value2" {
		t.Errorf("Expected overwritten value test-value2, got %q", v)
	}

	n, err := conn.Del(ctx, "test-key").Result()
	if err != nil || n != 1 {
		t.Errorf("Expected Del to remove 1 key, got %d (%v)", n, err)
	}
	n, _ = conn.Del(ctx, "test-key").Result()
	if n != 0 {
		t.Errorf("Expected second Del to remove 0 keys, got %d", n)
	}
}

func testMultiKey(t *testing.T, conn backend.Conn) {
	ctx := context.Background()

	if err := conn.MSet(ctx, "k1", "v1", "k2", "v2", "k3", "v3").Err(); err != nil {
		t.Fatalf("MSet failed: %v", err)
	}

	vals, err := conn.MGet(ctx, "k1", "k2", "missing").Result()
	if err != nil {
		t.Fatalf("MGet failed: %v", err)
	}
	if vals[0] != "v1" || vals[1] != "v2" || vals[2] != nil {
		t.Errorf("Unexpected MGet result %v", vals)
	}

	n, _ := conn.Exists(ctx, "k1", "k2", "missing").Result()
	if n != 2 {
		t.Errorf("Expected 2 existing keys, got %d", n)
	}
}

func testExpire(t *testing.T, conn backend.Conn) {
	ctx := context.Background()

	ok, _ := conn.PExpire(ctx, "missing", time.Second).Result()
	if ok {
		t.Errorf("Expected PExpire on missing key to report false")
	}

	conn.Set(ctx, "expiring-key", "v", 0)
	ok, err := conn.PExpire(ctx, "expiring-key", 1500*time.Millisecond).Result()
	if err != nil || !ok {
		t.Fatalf("Expected PExpire to succeed, got %v (%v)", ok, err)
	}

	ttl, _ := conn.PTTL(ctx, "expiring-key").Result()
	if ttl <= 0 || ttl > 1500*time.Millisecond {
		t.Errorf("Expected ttl in (0, 1.5s], got %v", ttl)
	}
}

func testSetNX(t *testing.T, conn backend.Conn) {
	ctx := context.Background()

	ok, err := conn.SetNX(ctx, "lock-key", "owner-1", time.Minute).Result()
	if err != nil || !ok {
		t.Fatalf("Expected first SetNX to succeed, got %v (%v)", ok, err)
	}

	ok, _ = conn.SetNX(ctx, "lock-key", "owner-2", time.Minute).Result()
	if ok {
		t.Errorf("Expected second SetNX to fail")
	}

	v, _ := conn.Get(ctx, "lock-key").Result()
	if v != "owner-1" {
		t.Errorf("Expected owner-1 to keep the key, got %q", v)
	}
}

func testSetStoreOps(t *testing.T, conn backend.Conn) {
	ctx := context.Background()

	conn.SAdd(ctx, "s1", "a", "b", "c")
	conn.SAdd(ctx, "s2", "c", "e")

	n, err := conn.SDiffStore(ctx, "s3", "s1", "s2").Result()
	if err != nil || n != 2 {
		t.Errorf("Expected SDiffStore to store 2 members, got %d (%v)", n, err)
	}
	assertMembers(t, conn, "s3", "a", "b")

	n, _ = conn.SInterStore(ctx, "s4", "s1", "s2").Result()
	if n != 1 {
		t.Errorf("Expected SInterStore to store 1 member, got %d", n)
	}
	assertMembers(t, conn, "s4", "c")

	n, _ = conn.SUnionStore(ctx, "s5", "s1", "s2").Result()
	if n != 4 {
		t.Errorf("Expected SUnionStore to store 4 members, got %d", n)
	}

	// an empty result leaves no members under the destination (servers
	// differ on whether the key itself is removed)
	n, _ = conn.SInterStore(ctx, "s6", "s3", "s4").Result()
	if n != 0 {
		t.Errorf("Expected SInterStore to store 0 members, got %d", n)
	}
	if n, _ := conn.SCard(ctx, "s6").Result(); n != 0 {
		t.Errorf("Expected empty store result to have no members, got %d", n)
	}
}

func testListRanges(t *testing.T, conn backend.Conn) {
	ctx := context.Background()

	n, _ := conn.RPush(ctx, "l", "a", "b").Result()
	if n != 2 {
		t.Errorf("Expected length 2 after push, got %d", n)
	}
	n, _ = conn.RPush(ctx, "l", "c", "d").Result()
	if n != 4 {
		t.Errorf("Expected length 4 after push, got %d", n)
	}

	vals, _ := conn.LRange(ctx, "l", 1, 2).Result()
	if fmt.Sprint(vals) != "[b c]" {
		t.Errorf("Expected inclusive range [b c], got %v", vals)
	}

	v, _ := conn.LIndex(ctx, "l", -1).Result()
	if v != "d" {
		t.Errorf("Expected last element d, got %q", v)
	}

	if err := conn.LSet(ctx, "l", 10, "x").Err(); err == nil {
		t.Errorf("Expected LSet out of range to fail")
	}

	v, _ = conn.RPopLPush(ctx, "l", "l2").Result()
	if v != "d" {
		t.Errorf("Expected RPopLPush to move d, got %q", v)
	}
}

func testSortedSetRanges(t *testing.T, conn backend.Conn) {
	ctx := context.Background()

	conn.ZAdd(ctx, "z", redis.Z{Score: 10, Member: "a"}, redis.Z{Score: 20, Member: "b"}, redis.Z{Score: 30, Member: "c"})

	vals, _ := conn.ZRangeByScore(ctx, "z", &redis.ZRangeBy{Min: "20", Max: "30"}).Result()
	if fmt.Sprint(vals) != "[b c]" {
		t.Errorf("Expected inclusive score range [b c], got %v", vals)
	}

	vals, _ = conn.ZRangeByScore(ctx, "z", &redis.ZRangeBy{Min: "(20", Max: "+inf"}).Result()
	if fmt.Sprint(vals) != "[c]" {
		t.Errorf("Expected exclusive score range [c], got %v", vals)
	}

	n, _ := conn.ZRemRangeByRank(ctx, "z", 1, 2).Result()
	if n != 2 {
		t.Errorf("Expected 2 removed members, got %d", n)
	}
	vals, _ = conn.ZRange(ctx, "z", 0, -1).Result()
	if fmt.Sprint(vals) != "[a]" {
		t.Errorf("Expected [a] to remain, got %v", vals)
	}
}

func testHash(t *testing.T, conn backend.Conn) {
	ctx := context.Background()

	conn.HSet(ctx, "h", "a", "1", "b", "2")

	v, err := conn.HGet(ctx, "h", "a").Result()
	if err != nil || v != "1" {
		t.Errorf("Expected field a = 1, got %q (%v)", v, err)
	}

	_, err = conn.HGet(ctx, "h", "missing").Result()
	if !backend.IsNil(err) {
		t.Errorf("Expected nil reply for missing field, got %v", err)
	}

	vals, _ := conn.HMGet(ctx, "h", "a", "missing").Result()
	if vals[0] != "1" || vals[1] != nil {
		t.Errorf("Unexpected HMGet result %v", vals)
	}

	all, _ := conn.HGetAll(ctx, "h").Result()
	if len(all) != 2 || all["b"] != "2" {
		t.Errorf("Unexpected HGetAll result %v", all)
	}
}

func testBatchAtomic(t *testing.T, conn backend.Conn) {
	ctx := context.Background()

	conn.SAdd(ctx, "a", "1", "2", "3")
	conn.SAdd(ctx, "b", "1", "2", "3", "4")

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				scratch := backend.ScratchKey()
				cmds, err := backend.Batch(ctx, conn, func(p redis.Pipeliner) error {
					p.SDiffStore(ctx, scratch, "a", "b")
					p.Del(ctx, scratch)
					return nil
				})
				if err != nil {
					errs <- err
					return
				}
				if n := cmds[0].(*redis.IntCmd).Val(); n != 0 {
					errs <- fmt.Errorf("expected a to be a subset of b, diff has %d members", n)
					return
				}
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}

	keys, _ := conn.Keys(ctx, backend.ScratchPrefix+"*").Result()
	if len(keys) != 0 {
		t.Errorf("Expected no scratch keys to remain, got %v", keys)
	}
}

func testWatchConflict(t *testing.T, conn backend.Conn) {
	ctx := context.Background()

	conn.RPush(ctx, "w", "a", "b", "c")

	err := conn.Watch(ctx, func(tx *redis.Tx) error {
		if _, err := tx.LRange(ctx, "w", 0, -1).Result(); err != nil {
			return err
		}
		conn.RPush(ctx, "w", "d")
		_, err := tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Del(ctx, "w")
			return nil
		})
		return err
	}, "w")

	if !errors.Is(err, redis.TxFailedErr) {
		t.Fatalf("Expected TxFailedErr, got %v", err)
	}

	vals, _ := conn.LRange(ctx, "w", 0, -1).Result()
	if fmt.Sprint(vals) != "[a b c d]" {
		t.Errorf("Expected failed transaction to leave [a b c d], got %v", vals)
	}
}

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

func assertMembers(t *testing.T, conn backend.Conn, key string, want ...string) {
	t.Helper()
	got, err := conn.SMembers(context.Background(), key).Result()
	if err != nil {
		t.Fatalf("SMembers %s failed: %v", key, err)
	}
	sort.Strings(got)
	sort.Strings(want)
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("Expected members %v of %s, got %v", want, key, got)
	}
}
