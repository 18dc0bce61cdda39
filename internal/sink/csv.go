package sink

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/miradorstack/mirador-rca-corpus/internal/utils"
)

type csvFile struct {
	file   *os.File
	buf    *bufio.Writer
	writer *csv.Writer
}

// CSV writes one headed CSV file per table into a directory.
type CSV struct {
	dir   string
	files map[string]*csvFile
}

// NewCSV creates dir and one file per table, each starting with its header row.
func NewCSV(dir string, tables []Table) (*CSV, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, utils.NewAppError("create data dir", "", err)
	}
	c := &CSV{dir: dir, files: make(map[string]*csvFile, len(tables))}
	for _, t := range tables {
		if err := c.open(t); err != nil {
			_ = c.Close()
			return nil, err
		}
	}
	return c, nil
}

func (c *CSV) open(t Table) error {
	f, err := os.Create(filepath.Join(c.dir, t.FileName()))
	if err != nil {
		return utils.NewAppError("create csv", t.Name, err)
	}
	buf := bufio.NewWriterSize(f, 256*1024)
	w := csv.NewWriter(buf)
	if err := w.Write(t.Columns); err != nil {
		f.Close()
		return utils.NewAppError("write header", t.Name, err)
	}
	c.files[t.Name] = &csvFile{file: f, buf: buf, writer: w}
	return nil
}

// WriteRow implements RowWriter.
func (c *CSV) WriteRow(table Table, row []string) error {
	f, ok := c.files[table.Name]
	if !ok {
		return utils.NewAppError("write csv", table.Name, fmt.Errorf("table not opened"))
	}
	return utils.NewAppError("write csv", table.Name, f.writer.Write(row))
}

// Close flushes and closes every file.
func (c *CSV) Close() error {
	var errs []error
	for name, f := range c.files {
		f.writer.Flush()
		if err := f.writer.Error(); err != nil {
			errs = append(errs, utils.NewAppError("flush csv", name, err))
		}
		if err := f.buf.Flush(); err != nil {
			errs = append(errs, utils.NewAppError("flush csv", name, err))
		}
		if err := f.file.Close(); err != nil {
			errs = append(errs, utils.NewAppError("close csv", name, err))
		}
	}
	c.files = map[string]*csvFile{}
	return errors.Join(errs...)
}

// Abort closes and removes every file without flushing buffered rows.
func (c *CSV) Abort() error {
	var errs []error
	for name, f := range c.files {
		if err := f.file.Close(); err != nil {
			errs = append(errs, utils.NewAppError("close csv", name, err))
		}
		if err := os.Remove(f.file.Name()); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, utils.NewAppError("remove csv", name, err))
		}
	}
	c.files = map[string]*csvFile{}
	return errors.Join(errs...)
}
