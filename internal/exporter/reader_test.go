package exporter

import (
	"errors"
	"io"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransition(t *testing.T) {
	tests := []struct {
		state      readState
		ch         rune
		wantState  readState
		wantAction readAction
		wantRune   rune
	}{
		// FieldStart
		{stateFieldStart, '"', stateInQuotedField, actNone, 0},
		{stateFieldStart, ',', stateFieldStart, actEndField, 0},
		{stateFieldStart, '\n', stateFieldStart, actEndRecord, 0},
		{stateFieldStart, 'a', stateInField, actAppend, 'a'},
		{stateFieldStart, ' ', stateInField, actAppend, ' '},

		// InField
		{stateInField, 'b', stateInField, actAppend, 'b'},
		{stateInField, '"', stateInField, actAppend, '"'},
		{stateInField, ',', stateFieldStart, actEndField, 0},
		{stateInField, '\n', stateFieldStart, actEndRecord, 0},

		// InQuotedField
		{stateInQuotedField, 'x', stateInQuotedField, actAppend, 'x'},
		{stateInQuotedField, ',', stateInQuotedField, actAppend, ','},
		{stateInQuotedField, '\n', stateInQuotedField, actAppend, '\n'},
		{stateInQuotedField, '"', stateQuoteSeenInQuoted, actNone, 0},

		// QuoteSeenInQuoted
		{stateQuoteSeenInQuoted, '"', stateInQuotedField, actAppend, '"'},
		{stateQuoteSeenInQuoted, ',', stateFieldStart, actEndField, 0},
		{stateQuoteSeenInQuoted, '\n', stateFieldStart, actEndRecord, 0},
		{stateQuoteSeenInQuoted, 'z', stateInField, actAppend, 'z'},
	}

	for _, tt := range tests {
		t.Run(tt.state.String()+"/"+strings.ReplaceAll(string(tt.ch), "\n", `\n`), func(t *testing.T) {
			next, action, out := transition(tt.state, tt.ch)
			assert.Equal(t, tt.wantState, next)
			assert.Equal(t, tt.wantAction, action)
			assert.Equal(t, tt.wantRune, out)
		})
	}
}

func TestReader_ReadAll(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  [][]string
	}{
		{
			name:  "empty input has no records",
			input: "",
			want:  nil,
		},
		{
			name:  "simple records",
			input: "Id,Name\n1,Acme\n",
			want:  [][]string{{"Id", "Name"}, {"1", "Acme"}},
		},
		{
			name:  "no trailing newline",
			input: "Id,Name\n1,Acme",
			want:  [][]string{{"Id", "Name"}, {"1", "Acme"}},
		},
		{
			name:  "crlf line endings",
			input: "Id,Name\r\n1,Acme\r\n",
			want:  [][]string{{"Id", "Name"}, {"1", "Acme"}},
		},
		{
			name:  "carriage return dropped inside quotes",
			input: "\"a\r\nb\"\n",
			want:  [][]string{{"a\nb"}},
		},
		{
			name:  "lone carriage return at end is not a record",
			input: "a\n\r",
			want:  [][]string{{"a"}},
		},
		{
			name:  "quoted comma and doubled quote",
			input: "\"Acme, \"\"Inc\"\"\",2\n",
			want:  [][]string{{`Acme, "Inc"`, "2"}},
		},
		{
			name:  "newline inside quotes",
			input: "\"line1\nline2\",x\n",
			want:  [][]string{{"line1\nline2", "x"}},
		},
		{
			name:  "quote inside unquoted field is literal",
			input: "5\" screen,ok\n",
			want:  [][]string{{`5" screen`, "ok"}},
		},
		{
			name:  "text after closing quote continues the field",
			input: "\"ab\"cd,e\n",
			want:  [][]string{{"abcd", "e"}},
		},
		{
			name:  "empty quoted field",
			input: "\"\",x\n",
			want:  [][]string{{"", "x"}},
		},
		{
			name:  "empty fields and empty line",
			input: ",,\n\n",
			want:  [][]string{{"", "", ""}, {""}},
		},
		{
			name:  "trailing comma gives trailing empty field",
			input: "a,",
			want:  [][]string{{"a", ""}},
		},
		{
			name:  "unterminated quote runs to end of input",
			input: "\"open,ended\nstill",
			want:  [][]string{{"open,ended\nstill"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewReader(strings.NewReader(tt.input)).ReadAll()
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReader_EOFSentinel(t *testing.T) {
	r := NewReader(strings.NewReader("a,b\n"))

	rec, err := r.Read()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, rec)

	rec, err = r.Read()
	assert.Nil(t, rec)
	assert.ErrorIs(t, err, io.EOF)

	_, err = r.Read()
	assert.ErrorIs(t, err, io.EOF, "EOF is sticky")
}

func TestReader_PropagatesReadErrors(t *testing.T) {
	boom := errors.New("boom")
	r := NewReader(iotest.ErrReader(boom))

	_, err := r.Read()
	assert.ErrorIs(t, err, boom)
}

func TestReader_Skip(t *testing.T) {
	input := "h\n1\n2\n3\n"

	t.Run("skips requested records", func(t *testing.T) {
		r := NewReader(strings.NewReader(input))
		n, err := r.Skip(2)
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		rec, err := r.Read()
		require.NoError(t, err)
		assert.Equal(t, []string{"2"}, rec)
	})

	t.Run("reports short skip at EOF", func(t *testing.T) {
		r := NewReader(strings.NewReader(input))
		n, err := r.Skip(10)
		assert.ErrorIs(t, err, io.EOF)
		assert.Equal(t, 4, n)
	})

	t.Run("non-positive counts skip nothing", func(t *testing.T) {
		r := NewReader(strings.NewReader(input))
		n, err := r.Skip(-3)
		require.NoError(t, err)
		assert.Equal(t, 0, n)

		rec, _ := r.Read()
		assert.Equal(t, []string{"h"}, rec)
	})
}

func TestRoundTrip(t *testing.T) {
	records := [][]string{
		{"Id", "Company", "Notes"},
		{"1", `Acme, "Inc"`, "multi\nline"},
		{"2", "", `""`},
		{"3", "  spaced  ", "tab\there"},
		{"4", "quote\"inside", "comma,"},
		{"5", "München", "a\r\nb"},
	}

	data, err := Encode(records[0], records[1:])
	require.NoError(t, err)

	got, err := NewReader(strings.NewReader(string(data))).ReadAll()
	require.NoError(t, err)

	// "\r" is always dropped on read.
	want := make([][]string, len(records))
	for i, rec := range records {
		want[i] = make([]string, len(rec))
		for j, f := range rec {
			want[i][j] = strings.ReplaceAll(f, "\r", "")
		}
	}
	assert.Equal(t, want, got)
}

func TestRoundTrip_AcmeInc(t *testing.T) {
	data, err := Encode([]string{"Company"}, [][]string{{`Acme, "Inc"`}})
	require.NoError(t, err)

	r := NewReader(strings.NewReader(string(data)))
	_, err = r.Read()
	require.NoError(t, err)

	rec, err := r.Read()
	require.NoError(t, err)
	assert.Equal(t, []string{`Acme, "Inc"`}, rec)
}
