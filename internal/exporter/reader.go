package exporter

import (
	"bufio"
	"errors"
	"io"
	"strings"
)

// readState is the position of the record reader within the current field.
type readState int

const (
	stateFieldStart readState = iota
	stateInField
	stateInQuotedField
	stateQuoteSeenInQuoted
)

func (s readState) String() string {
	switch s {
	case stateFieldStart:
		return "FieldStart"
	case stateInField:
		return "InField"
	case stateInQuotedField:
		return "InQuotedField"
	case stateQuoteSeenInQuoted:
		return "QuoteSeenInQuoted"
	}
	return "Unknown"
}

// readAction tells the reader what to do after a transition.
type readAction int

const (
	actNone readAction = iota
	actAppend
	actEndField
	actEndRecord
)

// transition is the reader's state table. It returns the next state, the
// action to perform and, for actAppend, the rune to append to the field.
//
// "\r" never reaches transition; the reader drops it beforehand.
func transition(state readState, ch rune) (readState, readAction, rune) {
	switch state {
	case stateFieldStart:
		switch ch {
		case '"':
			return stateInQuotedField, actNone, 0
		case ',':
			return stateFieldStart, actEndField, 0
		case '\n':
			return stateFieldStart, actEndRecord, 0
		}
		return stateInField, actAppend, ch

	case stateInField:
		switch ch {
		case ',':
			return stateFieldStart, actEndField, 0
		case '\n':
			return stateFieldStart, actEndRecord, 0
		}
		// A quote inside an unquoted field is taken literally.
		return stateInField, actAppend, ch

	case stateInQuotedField:
		if ch == '"' {
			return stateQuoteSeenInQuoted, actNone, 0
		}
		return stateInQuotedField, actAppend, ch

	case stateQuoteSeenInQuoted:
		switch ch {
		case '"':
			return stateInQuotedField, actAppend, '"'
		case ',':
			return stateFieldStart, actEndField, 0
		case '\n':
			return stateFieldStart, actEndRecord, 0
		}
		// Closing quote followed by more text: leave quoted mode and keep going.
		return stateInField, actAppend, ch
	}
	return state, actNone, 0
}

// Reader decodes records written by Writer. It is lenient: unterminated
// quotes run to the end of input, stray quotes in unquoted fields are kept,
// and the last record does not need a trailing newline.
type Reader struct {
	r *bufio.Reader
}

// NewReader creates a Reader over r.
func NewReader(r io.Reader) *Reader {
	if br, ok := r.(*bufio.Reader); ok {
		return &Reader{r: br}
	}
	return &Reader{r: bufio.NewReader(r)}
}

// Read returns the next record. It returns io.EOF, and no record, once the
// input holds nothing beyond the previous record.
func (r *Reader) Read() ([]string, error) {
	var (
		record   []string
		field    strings.Builder
		state    = stateFieldStart
		consumed bool
	)

	for {
		ch, _, err := r.r.ReadRune()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				return nil, err
			}
			if !consumed {
				return nil, io.EOF
			}
			return append(record, field.String()), nil
		}

		if ch == '\r' {
			continue
		}
		consumed = true

		next, action, out := transition(state, ch)
		switch action {
		case actAppend:
			field.WriteRune(out)
		case actEndField:
			record = append(record, field.String())
			field.Reset()
		case actEndRecord:
			return append(record, field.String()), nil
		}
		state = next
	}
}

// ReadAll reads every remaining record.
func (r *Reader) ReadAll() ([][]string, error) {
	var records [][]string
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			return records, nil
		}
		if err != nil {
			return records, err
		}
		records = append(records, rec)
	}
}

// Skip discards up to n records and returns how many were skipped. It
// returns io.EOF when the input ran out first.
func (r *Reader) Skip(n int) (int, error) {
	if n <= 0 {
		return 0, nil
	}
	for i := 0; i < n; i++ {
		if _, err := r.Read(); err != nil {
			return i, err
		}
	}
	return n, nil
}
