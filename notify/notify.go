/*
Package notify publishes JSON mutation records to external listeners: a rotated
log file, Kafka, or both.
*/
package notify

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/janelia-flyem/segedit/vol"
)

// Sink receives encoded mutation records.
type Sink interface {
	Produce(value []byte) error
	Close() error
}

// Publish encodes a mutation record as JSON and hands it to the sink.  A nil sink
// drops the record.
func Publish(s Sink, msg map[string]interface{}) error {
	if s == nil {
		return nil
	}
	value, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("unable to marshal mutation record %v: %v", msg["Action"], err)
	}
	return s.Produce(value)
}

// Multi fans records out to several sinks.
type Multi []Sink

// Produce sends the record to every sink and returns the first error.
func (m Multi) Produce(value []byte) error {
	var first error
	for _, s := range m {
		if err := s.Produce(value); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Close closes every sink and returns the first error.
func (m Multi) Close() error {
	var first error
	for _, s := range m {
		if err := s.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Memory keeps records in memory, mostly for tests and scripted sessions that
// report their mutations at the end.
type Memory struct {
	mu      sync.Mutex
	records [][]byte
}

func (m *Memory) Produce(value []byte) error {
	m.mu.Lock()
	m.records = append(m.records, append([]byte(nil), value...))
	m.mu.Unlock()
	return nil
}

func (m *Memory) Close() error {
	return nil
}

// Records returns the decoded records received so far.
func (m *Memory) Records() []map[string]interface{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]map[string]interface{}, 0, len(m.records))
	for _, value := range m.records {
		var msg map[string]interface{}
		if err := json.Unmarshal(value, &msg); err != nil {
			vol.Errorf("bad mutation record in memory sink: %v\n", err)
			continue
		}
		out = append(out, msg)
	}
	return out
}
