package workerpool_test

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	wp "github.com/azargarov/rtworkerpool"
)

func TestQueue_FIFOAndCapacity(t *testing.T) {
	for _, policy := range queuePolicies {
		t.Run(policy.String(), func(t *testing.T) {
			q := wp.NewQueue[int](wp.QueueParams{Policy: policy, Size: 16})

			for i := range 16 {
				if !q.TryPush(i) {
					t.Fatalf("TryPush(%d) failed on a non-full queue", i)
				}
			}
			if q.TryPush(99) {
				t.Fatal("TryPush succeeded on a full queue")
			}
			if got := q.Len(); got != 16 {
				t.Fatalf("Len = %d; want 16", got)
			}

			for i := range 16 {
				v, ok := q.TryPop()
				if !ok {
					t.Fatalf("TryPop #%d failed", i)
				}
				if v != i {
					t.Fatalf("TryPop #%d = %d; want %d", i, v, i)
				}
			}
			if _, ok := q.TryPop(); ok {
				t.Fatal("TryPop succeeded on an empty queue")
			}
		})
	}
}

func TestQueue_Cap(t *testing.T) {
	lf := wp.NewQueue[int](wp.QueueParams{Policy: wp.LockFreeMPMC, Size: 1000})
	if got := lf.Cap(); got != 1024 {
		t.Fatalf("lock-free Cap = %d; want 1024", got)
	}
	lk := wp.NewQueue[int](wp.QueueParams{Policy: wp.LockingMPMC, Size: 1000})
	if got := lk.Cap(); got != 1000 {
		t.Fatalf("locking Cap = %d; want 1000", got)
	}
	def := wp.NewQueue[int](wp.QueueParams{})
	if got := def.Cap(); got != wp.DefaultQueueSize {
		t.Fatalf("default Cap = %d; want %d", got, wp.DefaultQueueSize)
	}
}

func TestQueue_StopDiscardsRemaining(t *testing.T) {
	for _, policy := range queuePolicies {
		t.Run(policy.String(), func(t *testing.T) {
			q := wp.NewQueue[int](wp.QueueParams{Policy: policy, Size: 8})
			for i := range 3 {
				q.TryPush(i)
			}

			q.RequestStop()
			q.RequestStop()

			if !q.Stopped() {
				t.Fatal("Stopped = false after RequestStop")
			}
			if _, ok := q.PopBlocking(); ok {
				t.Fatal("PopBlocking returned an item after stop")
			}
			if _, ok := q.TryPop(); ok {
				t.Fatal("TryPop returned an item after stop")
			}
			if q.TryPush(1) || q.PushBlocking(1) {
				t.Fatal("push accepted after stop")
			}
		})
	}
}

func TestQueue_StopReleasesBlockedCallers(t *testing.T) {
	for _, policy := range queuePolicies {
		t.Run(policy.String(), func(t *testing.T) {
			empty := wp.NewQueue[int](wp.QueueParams{Policy: policy, Size: 2})
			full := wp.NewQueue[int](wp.QueueParams{Policy: policy, Size: 2})
			for full.TryPush(0) {
			}

			var wg sync.WaitGroup
			var popOK, pushOK atomic.Bool
			wg.Add(2)
			go func() {
				defer wg.Done()
				_, ok := empty.PopBlocking()
				popOK.Store(ok)
			}()
			go func() {
				defer wg.Done()
				pushOK.Store(full.PushBlocking(1))
			}()

			time.Sleep(10 * time.Millisecond)
			empty.RequestStop()
			full.RequestStop()

			returnsWithin(t, time.Second, "blocked callers", wg.Wait)
			if popOK.Load() {
				t.Fatal("PopBlocking reported an item")
			}
			if pushOK.Load() {
				t.Fatal("PushBlocking reported success")
			}
		})
	}
}

func TestQueue_PushBlockingWaitsForSpace(t *testing.T) {
	for _, policy := range queuePolicies {
		t.Run(policy.String(), func(t *testing.T) {
			q := wp.NewQueue[int](wp.QueueParams{Policy: policy, Size: 2})
			for q.TryPush(0) {
			}

			pushed := make(chan bool, 1)
			go func() { pushed <- q.PushBlocking(7) }()

			select {
			case <-pushed:
				t.Fatal("PushBlocking returned while the queue was full")
			case <-time.After(20 * time.Millisecond):
			}

			if _, ok := q.TryPop(); !ok {
				t.Fatal("TryPop failed on a full queue")
			}
			select {
			case ok := <-pushed:
				if !ok {
					t.Fatal("PushBlocking failed")
				}
			case <-time.After(time.Second):
				t.Fatal("PushBlocking did not return after space was made")
			}
		})
	}
}

func TestQueue_PopWaitCancel(t *testing.T) {
	for _, policy := range queuePolicies {
		t.Run(policy.String(), func(t *testing.T) {
			q := wp.NewQueue[int](wp.QueueParams{Policy: policy, Size: 8})

			var cancelled atomic.Bool
			result := make(chan bool, 1)
			go func() {
				_, ok := q.PopWait(cancelled.Load)
				result <- ok
			}()

			time.Sleep(10 * time.Millisecond)
			cancelled.Store(true)
			q.Interrupt()

			select {
			case ok := <-result:
				if ok {
					t.Fatal("PopWait returned an item from an empty queue")
				}
			case <-time.After(time.Second):
				t.Fatal("PopWait did not return after cancel")
			}

			// a cancelled pop leaves the item for someone else
			q.TryPush(5)
			if _, ok := q.PopWait(func() bool { return true }); ok {
				t.Fatal("PopWait took an item despite cancel")
			}
			if v, ok := q.PopWait(nil); !ok || v != 5 {
				t.Fatalf("PopWait = %d, %v; want 5, true", v, ok)
			}
		})
	}
}

func TestQueue_MPMCNoLossNoDuplication(t *testing.T) {
	const (
		producers = 4
		consumers = 4
		perProd   = 10000
		total     = producers * perProd
	)

	for _, policy := range queuePolicies {
		t.Run(policy.String(), func(t *testing.T) {
			q := wp.NewQueue[int](wp.QueueParams{Policy: policy, Size: 64})
			seen := make([]atomic.Int32, total)
			var popped atomic.Int64

			var cwg sync.WaitGroup
			for range consumers {
				cwg.Add(1)
				go func() {
					defer cwg.Done()
					for {
						v, ok := q.PopBlocking()
						if !ok {
							return
						}
						seen[v].Add(1)
						if popped.Add(1) == total {
							q.RequestStop()
						}
					}
				}()
			}

			var pwg sync.WaitGroup
			for p := range producers {
				pwg.Add(1)
				go func(p int) {
					defer pwg.Done()
					for i := range perProd {
						if !q.PushBlocking(p*perProd + i) {
							t.Errorf("PushBlocking failed before stop")
							return
						}
					}
				}(p)
			}

			pwg.Wait()
			returnsWithin(t, 10*time.Second, "consumers", cwg.Wait)

			for v := range seen {
				if n := seen[v].Load(); n != 1 {
					t.Fatalf("value %d popped %d times", v, n)
				}
			}
		})
	}
}

func TestQueue_PerProducerOrder(t *testing.T) {
	const (
		producers = 3
		perProd   = 5000
	)

	for _, policy := range queuePolicies {
		t.Run(policy.String(), func(t *testing.T) {
			q := wp.NewQueue[[2]int](wp.QueueParams{Policy: policy, Size: 32})

			var wg sync.WaitGroup
			for p := range producers {
				wg.Add(1)
				go func(p int) {
					defer wg.Done()
					for i := range perProd {
						q.PushBlocking([2]int{p, i})
					}
				}(p)
			}

			last := [producers]int{-1, -1, -1}
			for range producers * perProd {
				v, ok := q.PopBlocking()
				if !ok {
					t.Fatal("PopBlocking failed")
				}
				if v[1] != last[v[0]]+1 {
					t.Fatalf("producer %d: got %d after %d", v[0], v[1], last[v[0]])
				}
				last[v[0]] = v[1]
			}
			wg.Wait()
		})
	}
}

func BenchmarkQueue_PushPop(b *testing.B) {
	for _, policy := range queuePolicies {
		b.Run(policy.String(), func(b *testing.B) {
			q := wp.NewQueue[int](wp.QueueParams{Policy: policy, Size: 1024})
			b.RunParallel(func(pb *testing.PB) {
				for pb.Next() {
					q.PushBlocking(1)
					q.PopBlocking()
				}
			})
		})
	}
}
