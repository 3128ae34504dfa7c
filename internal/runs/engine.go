package runs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"deskreport/internal/definition"
	"deskreport/internal/exporter"
	"deskreport/internal/sources"
	"deskreport/pkg/contracts/domain"
)

// cancelCheckInterval is how many projected rows pass between context checks.
const cancelCheckInterval = 256

// ErrNoFields fails a run whose definition keeps no projectable field.
var ErrNoFields = errors.New("report definition has no fields")

// Result is the outcome of one execution. Err is nil on success; on failure
// the other fields are meaningless.
type Result struct {
	Source      string
	RowCount    int
	FileBytes   []byte
	FileName    string
	ContentType string
	Err         error
}

// Succeeded reports whether the execution produced an artifact.
func (r Result) Succeeded() bool {
	return r.Err == nil
}

func failed(source string, err error) Result {
	return Result{Source: source, Err: err}
}

// Executor turns a report into an artifact.
type Executor interface {
	Execute(ctx context.Context, workspaceID string, report domain.Report) Result
}

// SourceResolver maps a definition source key to a source.
type SourceResolver interface {
	Resolve(name string) (sources.Source, error)
}

// Engine executes report definitions against the registered sources. All
// rows are read and projected in memory.
type Engine struct {
	sources SourceResolver
	logger  *slog.Logger
}

// NewEngine creates an Engine.
func NewEngine(resolver SourceResolver, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		sources: resolver,
		logger:  logger.With(slog.String("component", "report_engine")),
	}
}

// Execute decodes the report definition, reads every entity of its source in
// the workspace, projects the requested fields and encodes the artifact.
//
// Fields the source does not have stay in the header with empty values. A
// definition with no fields at all fails with ErrNoFields.
func (e *Engine) Execute(ctx context.Context, workspaceID string, report domain.Report) Result {
	def := definition.Parse(report.DefinitionJSON)

	src, err := e.sources.Resolve(def.Source)
	if err != nil {
		return failed(def.Source, err)
	}
	source := src.Kind().String()

	if len(def.Fields) == 0 {
		return failed(source, ErrNoFields)
	}

	if err := ctx.Err(); err != nil {
		return failed(source, err)
	}

	data, err := src.Fetch(ctx, workspaceID)
	if err != nil {
		return failed(source, fmt.Errorf("failed to read %s: %w", source, err))
	}

	accessors := make([]sources.Accessor, len(def.Fields))
	for i, field := range def.Fields {
		acc, ok := data.Accessor(field)
		if !ok {
			e.logger.WarnContext(ctx, "report field not available on source",
				slog.String("workspace_id", workspaceID),
				slog.String("report_id", report.ID),
				slog.String("source", source),
				slog.String("field", field))
			continue
		}
		accessors[i] = acc
	}

	rows := make([][]string, data.Len())
	for i := range rows {
		if i%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return failed(source, err)
			}
		}
		row := make([]string, len(accessors))
		for j, acc := range accessors {
			if acc != nil {
				row[j] = exporter.FormatValue(acc(i))
			}
		}
		rows[i] = row
	}

	artifact, err := exporter.Encode(def.Fields, rows)
	if err != nil {
		return failed(source, fmt.Errorf("failed to encode artifact: %w", err))
	}

	return Result{
		Source:      source,
		RowCount:    len(rows),
		FileBytes:   artifact,
		FileName:    FileName(report),
		ContentType: exporter.ContentType,
	}
}

// FileName derives the artifact file name from the report name, falling back
// to the report id.
func FileName(report domain.Report) string {
	if slug := slugify(report.Name); slug != "" {
		return slug + ".csv"
	}
	return "report_" + report.ID + ".csv"
}

func slugify(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case b.Len() > 0 && !dash:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
