package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/manifoldco/promptui"

	"github.com/jonathan/jobly/internal/apply"
	"github.com/jonathan/jobly/internal/ats"
	"github.com/jonathan/jobly/internal/db"
	"github.com/jonathan/jobly/internal/llm"
	"github.com/jonathan/jobly/internal/observability"
)

const (
	// submitWord must be typed exactly to submit an application.
	submitWord = "YES"
	skipOption = "(skip)"
)

// prompter implements apply.Prompter on a terminal with promptui.
type prompter struct {
	in      io.ReadCloser
	out     io.WriteCloser
	printer *observability.Printer
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

func newPrompter(in io.Reader, out io.Writer) *prompter {
	return &prompter{
		in:      io.NopCloser(in),
		out:     nopWriteCloser{out},
		printer: observability.NewPrinter(out),
	}
}

// promptErr maps promptui's abort signals onto apply.ErrInterrupted.
func promptErr(err error) error {
	if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
		return apply.ErrInterrupted
	}
	return err
}

func (p *prompter) confirm(label string) (bool, error) {
	prompt := promptui.Prompt{
		Label:     label,
		IsConfirm: true,
		Stdin:     p.in,
		Stdout:    p.out,
	}
	if _, err := prompt.Run(); err != nil {
		if errors.Is(err, promptui.ErrAbort) {
			return false, nil
		}
		return false, promptErr(err)
	}
	return true, nil
}

func (p *prompter) text(label, def string) (string, error) {
	prompt := promptui.Prompt{
		Label:     label,
		Default:   def,
		AllowEdit: true,
		Stdin:     p.in,
		Stdout:    p.out,
	}
	answer, err := prompt.Run()
	if err != nil {
		return "", promptErr(err)
	}
	return strings.TrimSpace(answer), nil
}

// Ask prompts for a custom question. Choice questions are a select list with
// the suggestion first; an empty answer skips the field.
func (p *prompter) Ask(ctx context.Context, atsType ats.Type, q apply.UnknownQuestion, suggestion string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	fmt.Fprintf(p.out, "\n❓ %s [%s]\n", q.Label, atsType)
	if q.Context != "" {
		fmt.Fprintf(p.out, "   %s\n", q.Context)
	}

	if len(q.Options) > 0 {
		items := choiceItems(q.Options, suggestion)
		sel := promptui.Select{
			Label:  q.Label,
			Items:  items,
			Size:   min(len(items), 10),
			Stdin:  p.in,
			Stdout: p.out,
		}
		_, choice, err := sel.Run()
		if err != nil {
			return "", promptErr(err)
		}
		if choice == skipOption {
			return "", nil
		}
		return choice, nil
	}
	return p.text("Answer (empty to skip)", suggestion)
}

// choiceItems lists options with the suggestion moved first and a skip entry last.
func choiceItems(options []string, suggestion string) []string {
	items := make([]string, 0, len(options)+1)
	for _, o := range options {
		if strings.EqualFold(o, suggestion) {
			items = append(items, o)
		}
	}
	for _, o := range options {
		if !strings.EqualFold(o, suggestion) {
			items = append(items, o)
		}
	}
	return append(items, skipOption)
}

func (p *prompter) ConfirmStart(ctx context.Context, job db.JobPost) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return p.confirm("Open and fill this application")
}

func (p *prompter) ConfirmGuided(ctx context.Context, job db.JobPost) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	fmt.Fprintf(p.out, "⚠ %s forms are only partly automated; you finish them in the browser.\n", job.ATSType)
	return p.confirm("Continue in guided mode")
}

func (p *prompter) WaitForReview(ctx context.Context, _ db.JobPost) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := p.text("Complete the form in the browser, then press Enter", "")
	return err
}

// ConfirmSubmit shows the evaluation and submits only on the exact word YES.
func (p *prompter) ConfirmSubmit(ctx context.Context, _ db.JobPost, eval *llm.Evaluation) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	p.printer.PrintEvaluation(eval)
	answer, err := p.text(fmt.Sprintf("Review the browser. Type %s to submit, anything else skips", submitWord), "")
	if err != nil {
		return false, err
	}
	return isSubmitConfirmation(answer), nil
}

func isSubmitConfirmation(answer string) bool {
	return strings.TrimSpace(answer) == submitWord
}

var _ apply.Prompter = (*prompter)(nil)
