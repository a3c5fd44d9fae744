package intake

import (
	"bufio"
	"bytes"
	"context"
	"io"
)

const maxLineSize = 1 << 20

// Lines reads one JSON command per line.
type Lines struct {
	r    io.Reader
	exec Executor
}

func NewLines(r io.Reader, exec Executor) *Lines {
	return &Lines{r: r, exec: exec}
}

// Run executes lines until EOF or ctx is done. Blank lines are skipped and
// failed commands are logged, not returned.
func (l *Lines) Run(ctx context.Context) error {
	sc := bufio.NewScanner(l.r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		_, _ = dispatch(ctx, l.exec, "lines", line)
	}
	return sc.Err()
}
