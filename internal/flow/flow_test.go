package flow

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MikeOF/demany/internal/fastq"
)

func completedGroup(t *testing.T) *fastq.Group {
	t.Helper()
	g := fastq.NewGroup([]string{fastq.Index1ReadType}, 0)
	if err := g.Complete(); err != nil {
		t.Fatal(err)
	}
	return g
}

func TestQueueOrder(t *testing.T) {
	q := NewQueue[int](2)
	if _, ok := q.TryPop(); ok {
		t.Fatal("pop from an empty queue")
	}
	for i := 0; i < 3; i++ {
		q.Push(i)
	}
	if !q.Full() || q.Len() != 3 {
		t.Errorf("len %d, full %v", q.Len(), q.Full())
	}
	for want := 0; want < 3; want++ {
		got, ok := q.TryPop()
		if !ok || got != want {
			t.Errorf("received %d, %v, want %d", got, ok, want)
		}
	}
	if q.Full() || q.Len() != 0 {
		t.Errorf("len %d, full %v", q.Len(), q.Full())
	}
}

func TestNewErrors(t *testing.T) {
	type test struct {
		lanes       []string
		classifiers int
		depth       int
	}
	for _, test := range []test{
		{nil, 1, 1},
		{[]string{"L001"}, 0, 1},
		{[]string{"L001"}, 1, 0},
		{[]string{"L001", "L001"}, 1, 1},
	} {
		if _, err := New(test.lanes, test.classifiers, test.depth); err == nil {
			t.Errorf("Test: %#v, expected an error", test)
		}
	}
}

func TestLanePriority(t *testing.T) {
	f, err := New([]string{"L001", "L002", "L003"}, 1, 5)
	if err != nil {
		t.Fatal(err)
	}
	f.PushInput("L002", completedGroup(t))
	f.PushInput("L002", completedGroup(t))
	f.PushInput("L003", completedGroup(t))

	got := f.LanePriority()
	want := []string{"L002", "L003", "L001"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("received %v, want %v", got, want)
		}
	}
	if !f.InputAvailable() || f.InputDepth("L002") != 2 {
		t.Errorf("input depth %d", f.InputDepth("L002"))
	}
	if f.OutputAvailable("L002") || !f.OutputNeeded("L002") {
		t.Errorf("unexpected output state")
	}
}

func TestFinishedFlags(t *testing.T) {
	f, err := New([]string{"L001", "L002"}, 2, 1)
	if err != nil {
		t.Fatal(err)
	}
	if f.AllReadersFinished() || f.AllClassifiersFinished() {
		t.Fatal("finished before starting")
	}
	f.MarkReaderFinished("L001")
	f.MarkClassifierFinished(0)
	if f.AllReadersFinished() || f.AllClassifiersFinished() {
		t.Fatal("finished with workers still running")
	}
	f.MarkReaderFinished("L002")
	f.MarkClassifierFinished(1)
	if !f.AllReadersFinished() || !f.AllClassifiersFinished() {
		t.Fatal("not finished after every worker")
	}
}

func TestCounts(t *testing.T) {
	a := make(Counts)
	a.Add("L001", "P-S", "AGG")
	a.Add("L001", "P-S", "AGG")
	a.Add("L001", fastq.UndeterminedID, "TTT")
	b := make(Counts)
	b.Add("L002", "P-S", "AGG")
	b.AddN("L001", "P-S", "AGT", 3)

	f, err := New([]string{"L001", "L002"}, 2, 1)
	if err != nil {
		t.Fatal(err)
	}
	f.SubmitCounts(a)
	f.SubmitCounts(b)
	c := f.Counts()

	if c["L001"]["P-S"]["AGG"] != 2 || c["L001"]["P-S"]["AGT"] != 3 {
		t.Errorf("received %v", c)
	}
	if c.LaneTotal("L001") != 6 || c.LaneTotal("L002") != 1 || c.LaneTotal("L003") != 0 {
		t.Errorf("lane totals %d, %d", c.LaneTotal("L001"), c.LaneTotal("L002"))
	}
	totals := c.IDTotals()
	if totals["P-S"] != 6 || totals[fastq.UndeterminedID] != 1 {
		t.Errorf("id totals %v", totals)
	}
	if lanes := c.Lanes(); len(lanes) != 2 || lanes[0] != "L001" {
		t.Errorf("lanes %v", lanes)
	}

	// the snapshot does not share storage
	c.Add("L001", "P-S", "AGG")
	if f.Counts()["L001"]["P-S"]["AGG"] != 2 {
		t.Errorf("counts snapshot shares storage")
	}
}

func TestBackoff(t *testing.T) {
	b := NewBackoff(time.Millisecond, 4*time.Millisecond)
	ctx := context.Background()
	for i := 0; i < 4; i++ {
		if err := b.Wait(ctx); err != nil {
			t.Fatal(err)
		}
	}
	if b.Current() != 4*time.Millisecond {
		t.Errorf("idle interval %v", b.Current())
	}
	for i := 0; i < 4; i++ {
		b.Busy()
	}
	if b.Current() != time.Millisecond {
		t.Errorf("busy interval %v", b.Current())
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if err := NewBackoff(time.Hour, time.Hour).Wait(cancelled); err != context.Canceled {
		t.Errorf("received %v", err)
	}
}

func TestQueueDepthUnderLoad(t *testing.T) {
	const depth = 3
	const batches = 2000
	f, err := New([]string{"L001"}, 1, depth)
	if err != nil {
		t.Fatal(err)
	}

	g := completedGroup(t)
	var wg sync.WaitGroup
	var maxSeen int64
	stop := make(chan struct{})

	// monitor
	go func() {
		for {
			select {
			case <-stop:
				return
			default:
			}
			if n := int64(f.InputDepth("L001")); n > atomic.LoadInt64(&maxSeen) {
				atomic.StoreInt64(&maxSeen, n)
			}
		}
	}()

	wg.Add(2)
	go func() {
		defer wg.Done()
		for pushed := 0; pushed < batches; {
			if f.InputNeeded("L001") {
				f.PushInput("L001", g)
				pushed++
			}
		}
		f.MarkReaderFinished("L001")
	}()
	go func() {
		defer wg.Done()
		taken := 0
		for {
			if _, ok := f.TakeInput("L001"); ok {
				taken++
				continue
			}
			if f.AllReadersFinished() && !f.InputAvailable() {
				break
			}
		}
		if taken != batches {
			t.Errorf("took %d of %d batches", taken, batches)
		}
	}()
	wg.Wait()
	close(stop)

	if n := atomic.LoadInt64(&maxSeen); n > depth+1 {
		t.Errorf("queue depth reached %d, maximum %d", n, depth)
	}
}

func TestQueueReserve(t *testing.T) {
	q := NewQueue[int](2)
	if !q.TryReserve() || !q.TryReserve() {
		t.Fatal("could not reserve an empty queue")
	}
	if q.TryReserve() || !q.Full() || q.Len() != 0 {
		t.Errorf("reserved past the depth: len %d, full %v", q.Len(), q.Full())
	}
	q.Release()
	q.PushReserved(7)
	if !q.Full() || q.Len() != 1 {
		t.Errorf("len %d, full %v", q.Len(), q.Full())
	}
	if got, ok := q.TryPop(); !ok || got != 7 {
		t.Errorf("received %d, %v", got, ok)
	}
	if q.Full() || !q.TryReserve() {
		t.Errorf("slot not freed after pop")
	}
}

func TestOutputReservationContention(t *testing.T) {
	const classifiers = 4
	f, err := New([]string{"L001"}, classifiers, 2)
	if err != nil {
		t.Fatal(err)
	}
	if !f.ReserveOutput("L001") {
		t.Fatal("could not reserve an empty output queue")
	}
	f.PushOutput("L001", Classified{})

	start := make(chan struct{})
	var wg sync.WaitGroup
	var pushed int64
	for i := 0; i < classifiers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if f.ReserveOutput("L001") {
				f.PushOutput("L001", Classified{})
				atomic.AddInt64(&pushed, 1)
			}
		}()
	}
	close(start)
	wg.Wait()

	if n := f.OutputDepth("L001"); n != 2 || pushed != 1 {
		t.Errorf("output depth %d with max 2, %d pushes", n, pushed)
	}
	if f.OutputNeeded("L001") {
		t.Errorf("full output queue reported room")
	}
}

func TestOutputDepthUnderLoad(t *testing.T) {
	const depth = 2
	const classifiers = 4
	const batches = 500
	f, err := New([]string{"L001"}, classifiers, depth)
	if err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	var maxSeen, written int64
	stop := make(chan struct{})
	go func() {
		for {
			select {
			case <-stop:
				return
			default:
			}
			if n := int64(f.OutputDepth("L001")); n > atomic.LoadInt64(&maxSeen) {
				atomic.StoreInt64(&maxSeen, n)
			}
		}
	}()

	for id := 0; id < classifiers; id++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for pushed := 0; pushed < batches; {
				if f.ReserveOutput("L001") {
					f.PushOutput("L001", Classified{})
					pushed++
				}
			}
			f.MarkClassifierFinished(id)
		}(id)
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			if _, ok := f.TakeOutput("L001"); ok {
				atomic.AddInt64(&written, 1)
				continue
			}
			if f.AllClassifiersFinished() && !f.OutputAvailable("L001") {
				break
			}
		}
	}()
	wg.Wait()
	close(stop)

	if n := atomic.LoadInt64(&written); n != classifiers*batches {
		t.Errorf("wrote %d of %d batches", n, classifiers*batches)
	}
	if n := atomic.LoadInt64(&maxSeen); n > depth {
		t.Errorf("output depth reached %d, maximum %d", n, depth)
	}
}
