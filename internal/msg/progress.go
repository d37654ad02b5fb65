package msg

import (
	"fmt"
	"strconv"
	"sync/atomic"
	"time"
)

// Progress numbers the steps of a build, e.g. "[ 3/12] CC src/main.cpp"
type Progress struct {
	Total   int64
	Start   time.Time
	current atomic.Int64
}

func NewProgress(total int) *Progress {
	return &Progress{
		Total: int64(total),
		Start: time.Now(),
	}
}

// Step announces the next step and returns its 1-based index
func (p *Progress) Step(verb, name string) int64 {
	n := p.current.Add(1)
	width := len(strconv.FormatInt(max(p.Total, n), 10))

	mu.Lock()
	defer mu.Unlock()
	fmt.Fprintf(Stdout, "[%*d/%d] %s %s\n", width, n, max(p.Total, n), verb, name)
	return n
}

// Elapsed returns the time since the progress was created, rounded for display
func (p *Progress) Elapsed() time.Duration {
	return time.Since(p.Start).Round(time.Millisecond)
}
