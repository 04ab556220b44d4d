package notify

import (
	"fmt"
	"io"
	"sync"

	"github.com/natefinch/lumberjack"

	"github.com/janelia-flyem/segedit/vol"
)

// LogSink writes one record per line.
type LogSink struct {
	mu sync.Mutex
	w  io.Writer
}

// NewLogSink returns a sink writing to w.  A nil writer sends records to the
// engine log at info level.
func NewLogSink(w io.Writer) *LogSink {
	return &LogSink{w: w}
}

// NewFileSink returns a sink appending to a size-rotated file.
func NewFileSink(filename string, maxSizeMB, maxAgeDays int) *LogSink {
	return &LogSink{w: &lumberjack.Logger{
		Filename: filename,
		MaxSize:  maxSizeMB,
		MaxAge:   maxAgeDays,
	}}
}

func (s *LogSink) Produce(value []byte) error {
	if s.w == nil {
		vol.Infof("mutation: %s\n", value)
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.w.Write(append(append([]byte(nil), value...), '\n')); err != nil {
		return fmt.Errorf("unable to write mutation record: %v", err)
	}
	return nil
}

func (s *LogSink) Close() error {
	if c, ok := s.w.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
