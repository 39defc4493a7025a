// Package transcript records backend calls in the line-oriented relation
// mini-language:
//
//	new parent(string, string)
//	+parent("bob", "greg")
//	-parent("bob", "greg")
//	cousin(X, Y) <= __rgxlog__3(X, Y)
//	print(cousin(X, Y))
//	  ("bob", "greg")
//
// A Recorder wraps any backend.Backend. Rule-body computation is replayed
// through the Recorder itself, so every temporary relation the engine
// creates shows up in the transcript. Query results follow their print line,
// indented by two spaces.
package transcript

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/roach88/rgxlog/internal/backend"
	"github.com/roach88/rgxlog/internal/iefunc"
	"github.com/roach88/rgxlog/internal/ir"
)

// Recorder is a backend.Backend that writes each call to w before
// forwarding it to the wrapped backend.
type Recorder struct {
	inner backend.Backend
	w     io.Writer
	namer *backend.Namer
}

var _ backend.Backend = (*Recorder)(nil)

// New wraps inner. namer must be the namer inner was created with.
func New(inner backend.Backend, w io.Writer, namer *backend.Namer) *Recorder {
	return &Recorder{inner: inner, w: w, namer: namer}
}

func (r *Recorder) line(format string, args ...any) error {
	if _, err := fmt.Fprintf(r.w, format+"\n", args...); err != nil {
		return fmt.Errorf("write transcript: %w", err)
	}
	return nil
}

// FormatRule renders head <= b1 & b2.
func FormatRule(head ir.Relation, body []ir.Relation) string {
	parts := make([]string, len(body))
	for i, rel := range body {
		parts[i] = rel.String()
	}
	return head.String() + " <= " + strings.Join(parts, " & ")
}

// DeclareRelation records "new name(types)".
func (r *Recorder) DeclareRelation(ctx context.Context, decl ir.RelationDeclaration) error {
	if err := r.line("new %s", decl); err != nil {
		return err
	}
	return r.inner.DeclareRelation(ctx, decl)
}

// AddFact records "+name(args)".
func (r *Recorder) AddFact(ctx context.Context, fact ir.Relation) error {
	if err := r.line("+%s", fact); err != nil {
		return err
	}
	return r.inner.AddFact(ctx, fact)
}

// RemoveFact records "-name(args)".
func (r *Recorder) RemoveFact(ctx context.Context, fact ir.Relation) error {
	if err := r.line("-%s", fact); err != nil {
		return err
	}
	return r.inner.RemoveFact(ctx, fact)
}

// AddRule records "head <= body1 & body2".
func (r *Recorder) AddRule(ctx context.Context, head ir.Relation, body []ir.Relation) error {
	if err := r.line("%s", FormatRule(head, body)); err != nil {
		return err
	}
	return r.inner.AddRule(ctx, head, body)
}

// Query records "print(name(args))" followed by the result rows.
func (r *Recorder) Query(ctx context.Context, q ir.Relation) ([]ir.Tuple, error) {
	if err := r.line("print(%s)", q); err != nil {
		return nil, err
	}
	rows, err := r.inner.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		if err := r.line("  %s", row); err != nil {
			return nil, err
		}
	}
	return rows, nil
}

// ComputeRuleBodyRelation projects rel through the recorder.
func (r *Recorder) ComputeRuleBodyRelation(ctx context.Context, rel ir.Relation) (ir.Relation, error) {
	return backend.Project(ctx, r, r.namer, rel)
}

// ComputeRuleBodyIERelation materializes an IE relation through the recorder.
func (r *Recorder) ComputeRuleBodyIERelation(ctx context.Context, rel ir.IERelation, fn *iefunc.Function, bounding *ir.Relation) (ir.Relation, error) {
	return backend.ComputeIE(ctx, r, r.namer, rel, fn, bounding)
}

// RemoveTempResult is forwarded without a transcript line.
func (r *Recorder) RemoveTempResult(ctx context.Context, rel ir.Relation) error {
	return r.inner.RemoveTempResult(ctx, rel)
}

// Close closes the wrapped backend.
func (r *Recorder) Close() error {
	return r.inner.Close()
}
