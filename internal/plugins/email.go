package plugins

import (
	"context"
	"fmt"
	"net/smtp"

	"github.com/organize/organize/internal/execctx"
	"github.com/organize/organize/internal/resource"
)

// EmailAction sends a rendered notification about a matched resource,
// supplementing the distilled spec's action set per original_source's
// Email action (SPEC_FULL.md §D). It never attaches file content; callers
// wanting that should chain a Write or Extract action first.
type EmailAction struct {
	SMTPAddr    string
	From        string
	To          []string
	SubjectTmpl string
	BodyTmpl    string
}

func (EmailAction) Name() string          { return "email" }
func (EmailAction) Model() ExecutionModel { return Single }

func (a EmailAction) ActSingle(ctx context.Context, ectx execctx.ExecutionContext, r *resource.Resource) (Receipt, error) {
	svc := ectx.Services
	tctx := ectx.WithResource(r).TemplateContext()

	subjectTmpl, err := svc.Compiler.Compile(a.SubjectTmpl)
	if err != nil {
		return Receipt{}, err
	}
	bodyTmpl, err := svc.Compiler.Compile(a.BodyTmpl)
	if err != nil {
		return Receipt{}, err
	}
	subject, err := subjectTmpl.Render(tctx)
	if err != nil {
		return Receipt{}, err
	}
	body, err := bodyTmpl.Render(tctx)
	if err != nil {
		return Receipt{}, err
	}

	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s\r\n",
		a.From, joinAddrs(a.To), subject, body)

	if err := smtp.SendMail(a.SMTPAddr, nil, a.From, a.To, []byte(msg)); err != nil {
		return Receipt{}, fmt.Errorf("email action: %w", err)
	}

	return Receipt{
		Inputs: []InputEntry{{Status: InputProcessed, Resource: r}},
		Next:   []*resource.Resource{r},
	}, nil
}

func (a EmailAction) ActBatch(ctx context.Context, ectx execctx.ExecutionContext, files []*resource.Resource) (Receipt, error) {
	return actBatchFromSingle(ctx, ectx, files, a.ActSingle)
}

func joinAddrs(addrs []string) string {
	out := ""
	for i, a := range addrs {
		if i > 0 {
			out += ", "
		}
		out += a
	}
	return out
}
