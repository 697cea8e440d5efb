package plugins

import (
	"bytes"
	"context"
	"encoding/json"
	"os/exec"

	organizeerrors "github.com/organize/organize/internal/errors"
	"github.com/organize/organize/internal/execctx"
	"github.com/organize/organize/internal/resource"
)

// ScriptAction runs an external command against the resource's path,
// supplementing the distilled spec's action set per original_source's
// Script action (SPEC_FULL.md §D). A non-zero exit is a KindScript error;
// stdout is attached to the receipt metadata for the reporter to surface.
type ScriptAction struct {
	Command string
	Args    []string
}

func (ScriptAction) Name() string          { return "script" }
func (ScriptAction) Model() ExecutionModel { return Single }

func (a ScriptAction) ActSingle(ctx context.Context, ectx execctx.ExecutionContext, r *resource.Resource) (Receipt, error) {
	args := append([]string{}, a.Args...)
	args = append(args, r.Path)

	cmd := exec.CommandContext(ctx, a.Command, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return Receipt{}, organizeerrors.Script(organizeerrors.Context{}, a.Command, err)
	}

	stdoutJSON, err := json.Marshal(stdout.String())
	if err != nil {
		return Receipt{}, err
	}
	return Receipt{
		Inputs:   []InputEntry{{Status: InputProcessed, Resource: r}},
		Next:     []*resource.Resource{r},
		Metadata: map[string]json.RawMessage{"stdout": stdoutJSON},
	}, nil
}

func (a ScriptAction) ActBatch(ctx context.Context, ectx execctx.ExecutionContext, files []*resource.Resource) (Receipt, error) {
	return actBatchFromSingle(ctx, ectx, files, a.ActSingle)
}
