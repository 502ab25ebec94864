package olog

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// collectSink accumulates everything the async writer submits.
type collectSink struct {
	mu  sync.Mutex
	buf strings.Builder
}

func (c *collectSink) Write(b []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf.Write(b)
}

func (c *collectSink) String() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf.String()
}

func newTestLogger(sink io.Writer) *Logger {
	return newLogger(DefaultStagingBufferSize, 1<<16, DefaultLineEnding, sink, nil)
}

func TestEndToEndBasic(t *testing.T) {
	sink := &collectSink{}
	l := newTestLogger(sink)

	p := l.NewProducer()
	var cs Callsite
	p.Logf(&cs, "a.cc", 10, LevelInfo, "Hello %d World\n", 42)
	p.Close()
	l.Close()

	out := sink.String()
	assert.Contains(t, out, "a.cc:10 [INFO][0]: Hello 42 World\n\r\n")
	require.Regexp(t, timestampRe, out)
	assert.Equal(t, uint64(1), l.Stats().RecordsWritten)
}

func TestEndToEndCommitOrder(t *testing.T) {
	sink := &collectSink{}
	l := newTestLogger(sink)

	p := l.NewProducer()
	var cs Callsite
	const records = 5000
	for i := 0; i < records; i++ {
		p.Logf(&cs, "ord.go", 1, LevelInfo, "seq %d", i)
	}
	p.Close()
	l.Close()

	lines := strings.Split(strings.TrimSuffix(sink.String(), "\r\n"), "\r\n")
	require.Len(t, lines, records)
	for i, line := range lines {
		require.True(t, strings.HasSuffix(line, fmt.Sprintf("seq %d", i)),
			"line %d out of order: %q", i, line)
	}
}

func TestEndToEndMultipleProducers(t *testing.T) {
	sink := &collectSink{}
	l := newTestLogger(sink)

	const producers = 4
	const records = 1000

	var wg sync.WaitGroup
	for g := 0; g < producers; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p := l.NewProducer()
			defer p.Close()
			var cs Callsite
			for i := 0; i < records; i++ {
				p.Logf(&cs, "mp.go", 2, LevelInfo, "n=%d", i)
			}
		}()
	}
	wg.Wait()
	l.Close()

	// Per-producer order is guaranteed; across producers only the total.
	lines := strings.Split(strings.TrimSuffix(sink.String(), "\r\n"), "\r\n")
	assert.Len(t, lines, producers*records)

	next := make(map[string]int)
	for _, line := range lines {
		start := strings.Index(line, "][")
		end := strings.Index(line[start+2:], "]")
		producer := line[start+2 : start+2+end]
		var n int
		_, err := fmt.Sscanf(line[strings.Index(line, "n="):], "n=%d", &n)
		require.NoError(t, err)
		require.Equal(t, next[producer], n, "producer %s out of order", producer)
		next[producer] = n + 1
	}
}

func TestSeverityThreshold(t *testing.T) {
	sink := &collectSink{}
	l := newTestLogger(sink)
	l.SetLevel(LevelError)

	p := l.NewProducer()
	var csInfo, csErr Callsite
	p.Logf(&csInfo, "sev.go", 1, LevelInfo, "filtered %d", 1)
	p.Logf(&csErr, "sev.go", 2, LevelError, "kept %d", 2)
	p.Close()
	l.Close()

	out := sink.String()
	assert.NotContains(t, out, "filtered")
	assert.Contains(t, out, "[ERROR][0]: kept 2")
}

func TestLevelNoneDisablesOutput(t *testing.T) {
	sink := &collectSink{}
	l := newTestLogger(sink)
	l.SetLevel(LevelNone)

	p := l.NewProducer()
	var cs Callsite
	p.Logf(&cs, "none.go", 1, LevelError, "never %d", 1)
	p.Close()
	l.Close()

	assert.Empty(t, sink.String())
}

func TestSetLevelClamps(t *testing.T) {
	l := newTestLogger(io.Discard)
	defer l.Close()
	l.SetLevel(Level(200))
	assert.Equal(t, LevelDebug, l.Level())
}

// A departed producer's staging buffer is drained, then freed by the
// consumer; nothing leaks and nothing is freed twice.
func TestProducerBufferReclaimed(t *testing.T) {
	sink := &collectSink{}
	l := newTestLogger(sink)

	p := l.NewProducer()
	var cs Callsite
	p.Logf(&cs, "exit.go", 1, LevelInfo, "parting %s", "record")
	require.Equal(t, 1, l.numProducerBuffers())
	p.Close()

	require.Eventually(t, func() bool {
		return l.numProducerBuffers() == 0
	}, 5*time.Second, time.Millisecond)

	l.Close()
	assert.Contains(t, sink.String(), "parting record")
}

func TestNonBlockingDropsOversizedRecord(t *testing.T) {
	sink := &collectSink{}
	l := newLogger(64, 1<<16, DefaultLineEnding, sink, nil)

	p := l.NewProducer()
	p.SetBlocking(false)
	var cs Callsite
	p.Logf(&cs, "drop.go", 1, LevelInfo, "%s", strings.Repeat("x", 100))
	p.Close()
	l.Close()

	assert.Empty(t, sink.String())
	assert.Equal(t, uint64(1), l.Stats().RecordsDropped)
}

func TestLogIDStableAcrossInvocations(t *testing.T) {
	l := newTestLogger(io.Discard)
	p := l.NewProducer()

	var cs1, cs2 Callsite
	p.Logf(&cs1, "id.go", 1, LevelInfo, "first %d", 1)
	id1 := cs1.id.Load()
	p.Logf(&cs1, "id.go", 1, LevelInfo, "first %d", 2)
	assert.Equal(t, id1, cs1.id.Load())

	p.Logf(&cs2, "id.go", 2, LevelInfo, "second %d", 1)
	assert.NotEqual(t, id1, cs2.id.Load())

	p.Close()
	l.Close()
}

// A wrong-argument-count first call must not publish a descriptor: the
// parameter sizes would stay zero and corrupt every later record of the
// callsite. The next correct call registers cleanly instead.
func TestMismatchedFirstCallDoesNotRegister(t *testing.T) {
	sink := &collectSink{}
	l := newTestLogger(sink)

	p := l.NewProducer()
	var cs Callsite
	p.Logf(&cs, "mm.go", 1, LevelInfo, "%d and %d", 1)
	assert.Nil(t, cs.info.Load())
	assert.Equal(t, uint64(1), l.Stats().RecordsMismatched)

	p.Logf(&cs, "mm.go", 1, LevelInfo, "%d and %d", 1, 2)
	require.NotNil(t, cs.info.Load())
	assert.Equal(t, []int{8, 8}, cs.info.Load().ParamSizes)

	// A later mismatched call is rejected without touching the descriptor.
	p.Logf(&cs, "mm.go", 1, LevelInfo, "%d and %d", 3)
	assert.Equal(t, uint64(2), l.Stats().RecordsMismatched)

	p.Close()
	l.Close()

	out := sink.String()
	assert.Contains(t, out, "1 and 2")
	assert.NotContains(t, out, "[INFO][0]: 1 and \r\n")
	assert.Equal(t, uint64(0), l.Stats().RecordsDropped)
}

func TestMalformedFormatPanicsAtFirstUse(t *testing.T) {
	l := newTestLogger(io.Discard)
	defer l.Close()
	p := l.NewProducer()
	defer p.Close()

	var cs Callsite
	assert.Panics(t, func() {
		p.Logf(&cs, "bad.go", 1, LevelInfo, "count: %n", 7)
	})
}

func TestConvenienceAPI(t *testing.T) {
	sink := &collectSink{}
	l := newTestLogger(sink)
	l.SetLevel(LevelDebug)

	l.Infof("answer=%d", 42)
	l.Errorf("boom %s", "now")
	l.Debugf("dbg %x", uint(255))
	l.Warningf("warn %.1f", 2.5)
	l.Close()

	out := sink.String()
	assert.Contains(t, out, "[INFO]")
	assert.Contains(t, out, "answer=42")
	assert.Contains(t, out, "[ERROR]")
	assert.Contains(t, out, "boom now")
	assert.Contains(t, out, "[DEBUG]")
	assert.Contains(t, out, "dbg ff")
	assert.Contains(t, out, "[WARNING]")
	assert.Contains(t, out, "warn 2.5")
	// The callsite resolves to this test file.
	assert.Contains(t, out, "olog_test.go:")
}

func TestBytesSubmittedMatchesOutput(t *testing.T) {
	sink := &collectSink{}
	l := newTestLogger(sink)

	p := l.NewProducer()
	var cs Callsite
	for i := 0; i < 100; i++ {
		p.Logf(&cs, "b.go", 1, LevelInfo, "record %d", i)
	}
	p.Close()
	l.Close()

	assert.Equal(t, uint64(len(sink.String())), l.Stats().BytesSubmitted)
}

func TestStatsCollector(t *testing.T) {
	l := newTestLogger(io.Discard)
	defer l.Close()
	c := l.Collector()
	require.NotNil(t, c)
}

func TestGlobalDefaultLogger(t *testing.T) {
	sink := &collectSink{}
	l := newTestLogger(sink)
	SetDefault(l)

	Infof("global %d", 1)
	Errorf("global %s", "two")
	l.Close()

	out := sink.String()
	assert.Contains(t, out, "[INFO]")
	assert.Contains(t, out, "global 1")
	assert.Contains(t, out, "[ERROR]")
	assert.Contains(t, out, "global two")
}
