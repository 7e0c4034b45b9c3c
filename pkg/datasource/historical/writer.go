package historical

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"os"

	"github.com/peter-kozarec/flowdelta/pkg/common"
)

// Writer appends trades to a binary trade file. Ticks must be written in
// time order for the reader's range lookup to work. Without hasSide every
// record is marked as carrying no side indicator.
type Writer struct {
	file    *os.File
	buf     *bufio.Writer
	hasSide bool
	last    int64
	n       int64
}

func Create(path string, hasSide bool) (*Writer, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("unable to create %q: %w", path, err)
	}
	return &Writer{file: file, buf: bufio.NewWriter(file), hasSide: hasSide}, nil
}

func (w *Writer) Write(tick common.Tick) error {
	record, err := NewBinaryTrade(tick, w.hasSide)
	if err != nil {
		return err
	}
	if w.n > 0 && record.TimeStamp < w.last {
		return fmt.Errorf("tick at %d precedes last written tick at %d: %w", record.TimeStamp, w.last, common.ErrInsufficientData)
	}
	if err := binary.Write(w.buf, binary.LittleEndian, record); err != nil {
		return fmt.Errorf("unable to write record %d: %w", w.n, err)
	}
	w.last = record.TimeStamp
	w.n++
	return nil
}

func (w *Writer) Count() int64 { return w.n }

func (w *Writer) Close() error {
	if err := w.buf.Flush(); err != nil {
		_ = w.file.Close()
		return fmt.Errorf("unable to flush: %w", err)
	}
	return w.file.Close()
}
