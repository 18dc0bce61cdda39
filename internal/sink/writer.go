package sink

import (
	"errors"
	"fmt"

	jsoniter "github.com/json-iterator/go"
)

// RowWriter accepts one row for table. Rows must match the table's column order.
type RowWriter interface {
	WriteRow(table Table, row []string) error
}

// Sink is a RowWriter that holds resources until closed. Close publishes what was
// written; Abort discards it.
type Sink interface {
	RowWriter
	Close() error
	Abort() error
}

// Finish closes s when runErr is nil and aborts it otherwise, so a failed run leaves no
// rows behind. The run error takes precedence over any cleanup error.
func Finish(s Sink, runErr error) error {
	if runErr != nil {
		if err := s.Abort(); err != nil {
			return errors.Join(runErr, fmt.Errorf("abort sinks: %w", err))
		}
		return runErr
	}
	if err := s.Close(); err != nil {
		return fmt.Errorf("close sinks: %w", err)
	}
	return nil
}

// RowWriterFunc adapts a function to the RowWriter interface.
type RowWriterFunc func(table Table, row []string) error

// WriteRow implements RowWriter.
func (f RowWriterFunc) WriteRow(table Table, row []string) error {
	return f(table, row)
}

// Discard drops every row.
var Discard RowWriter = RowWriterFunc(func(Table, []string) error { return nil })

// Fanout writes every row to each sink in order and closes all of them on Close.
type Fanout []Sink

// WriteRow implements RowWriter.
func (f Fanout) WriteRow(table Table, row []string) error {
	for _, s := range f {
		if err := s.WriteRow(table, row); err != nil {
			return err
		}
	}
	return nil
}

// Close closes every sink and joins their errors.
func (f Fanout) Close() error {
	var errs []error
	for _, s := range f {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Abort aborts every sink and joins their errors.
func (f Fanout) Abort() error {
	var errs []error
	for _, s := range f {
		if err := s.Abort(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Counter forwards rows and counts them per table.
type Counter struct {
	next   RowWriter
	order  []string
	counts map[string]int
}

// NewCounter wraps next. The given tables are reported even when they receive no rows.
func NewCounter(next RowWriter, tables []Table) *Counter {
	c := &Counter{next: next, counts: make(map[string]int, len(tables))}
	for _, t := range tables {
		c.track(t.Name)
	}
	return c
}

func (c *Counter) track(name string) {
	if _, ok := c.counts[name]; !ok {
		c.order = append(c.order, name)
		c.counts[name] = 0
	}
}

// WriteRow implements RowWriter.
func (c *Counter) WriteRow(table Table, row []string) error {
	if len(row) != len(table.Columns) {
		return fmt.Errorf("table %s: row has %d fields, want %d", table.Name, len(row), len(table.Columns))
	}
	if err := c.next.WriteRow(table, row); err != nil {
		return err
	}
	c.track(table.Name)
	c.counts[table.Name]++
	return nil
}

// Count returns the rows written to table so far.
func (c *Counter) Count(table string) int {
	return c.counts[table]
}

// Counts returns a snapshot of the per-table totals.
func (c *Counter) Counts() RowCounts {
	out := RowCounts{Order: append([]string(nil), c.order...), Counts: make(map[string]int, len(c.counts))}
	for k, v := range c.counts {
		out.Counts[k] = v
	}
	return out
}

// RowCounts is an insertion-ordered table -> rows mapping.
type RowCounts struct {
	Order  []string
	Counts map[string]int
}

// MarshalJSON keeps table order instead of sorting keys.
func (r RowCounts) MarshalJSON() ([]byte, error) {
	cfg := jsoniter.ConfigCompatibleWithStandardLibrary
	stream := cfg.BorrowStream(nil)
	defer cfg.ReturnStream(stream)

	stream.WriteObjectStart()
	for i, name := range r.Order {
		if i > 0 {
			stream.WriteMore()
		}
		stream.WriteObjectField(name)
		stream.WriteInt(r.Counts[name])
	}
	stream.WriteObjectEnd()
	if stream.Error != nil {
		return nil, stream.Error
	}
	return append([]byte(nil), stream.Buffer()...), nil
}
