package export

import (
	"bufio"
	"io"
	"strconv"
	"strings"
)

// Cell is one CSV field. Numeric cells are written bare; everything else
// is always quoted, empty strings included.
type Cell struct {
	Value   string
	Numeric bool
}

func Text(s string) Cell { return Cell{Value: s} }

func Int(n int64) Cell { return Cell{Value: strconv.FormatInt(n, 10), Numeric: true} }

// Writer writes rows with non-numeric quoting and CRLF line endings.
// encoding/csv only quotes when a field needs it, so it cannot be used.
type Writer struct {
	w *bufio.Writer
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w)}
}

func (w *Writer) Write(row []Cell) error {
	for i, c := range row {
		if i > 0 {
			if err := w.w.WriteByte(','); err != nil {
				return err
			}
		}
		if _, err := w.w.WriteString(format(c)); err != nil {
			return err
		}
	}
	_, err := w.w.WriteString("\r\n")
	return err
}

func (w *Writer) Flush() error {
	return w.w.Flush()
}

func format(c Cell) string {
	if c.Numeric {
		return c.Value
	}
	return `"` + strings.ReplaceAll(c.Value, `"`, `""`) + `"`
}
