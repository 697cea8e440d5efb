package pipeline

import (
	"context"
	"testing"

	"github.com/organize/organize/internal/batch"
	"github.com/organize/organize/internal/execctx"
	"github.com/organize/organize/internal/fsmanager"
	"github.com/organize/organize/internal/plugins"
	"github.com/organize/organize/internal/providers"
	"github.com/organize/organize/internal/providers/vfs"
	"github.com/organize/organize/internal/resource"
)

type pdfFilter struct{}

func (pdfFilter) Name() string                  { return "pdf" }
func (pdfFilter) Model() plugins.ExecutionModel { return plugins.Single }
func (pdfFilter) CheckSingle(_ context.Context, _ execctx.ExecutionContext, r *resource.Resource) (bool, error) {
	return len(r.Path) > 4 && r.Path[len(r.Path)-4:] == ".pdf", nil
}
func (pdfFilter) CheckBatch(_ context.Context, _ execctx.ExecutionContext, files []*resource.Resource) ([]*resource.Resource, error) {
	return files, nil
}

type extPartitioner struct{}

func (extPartitioner) Name() string { return "ext" }
func (extPartitioner) Partition(_ context.Context, _ execctx.ExecutionContext, b batch.Batch) (map[string]batch.Batch, error) {
	out := map[string]batch.Batch{}
	for _, r := range b.Files {
		key := "other"
		if len(r.Path) > 4 && r.Path[len(r.Path)-4:] == ".pdf" {
			key = "pdf"
		}
		child := out[key]
		child.Files = append(child.Files, r)
		child.Context = batch.InheritContext(b.Context, "ext", key)
		out[key] = child
	}
	return out, nil
}

type noopAction struct{ calls int }

func (a *noopAction) Name() string                  { return "noop" }
func (a *noopAction) Model() plugins.ExecutionModel { return plugins.Single }
func (a *noopAction) ActSingle(_ context.Context, _ execctx.ExecutionContext, r *resource.Resource) (plugins.Receipt, error) {
	a.calls++
	return plugins.Receipt{Next: []*resource.Resource{r}}, nil
}
func (a *noopAction) ActBatch(_ context.Context, _ execctx.ExecutionContext, files []*resource.Resource) (plugins.Receipt, error) {
	return plugins.Receipt{Next: files}, nil
}

type dropAllAction struct{}

func (dropAllAction) Name() string                  { return "drop" }
func (dropAllAction) Model() plugins.ExecutionModel { return plugins.Single }
func (dropAllAction) ActSingle(context.Context, execctx.ExecutionContext, *resource.Resource) (plugins.Receipt, error) {
	return plugins.Receipt{}, nil
}
func (dropAllAction) ActBatch(context.Context, execctx.ExecutionContext, []*resource.Resource) (plugins.Receipt, error) {
	return plugins.Receipt{}, nil
}

func newTestServices(t *testing.T) execctx.Services {
	t.Helper()
	v := vfs.New("dryrun")
	fs := fsmanager.New(v, nil)
	return execctx.Services{FS: fs}
}

func TestSearchPopulatesRootBatch(t *testing.T) {
	svc := newTestServices(t)
	ctx := context.Background()
	if err := svc.FS.WriteAll(ctx, "dryrun:///inbox/a.pdf", []byte("x")); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := svc.FS.WriteAll(ctx, "dryrun:///inbox/b.txt", []byte("y")); err != nil {
		t.Fatalf("seed: %v", err)
	}

	rule := Rule{Name: "r", Stages: []Stage{
		{Kind: KindSearch, Params: NewParams(), Location: providers.Location{
			Host: "dryrun", Path: "/inbox", Mode: providers.MergeReplace,
		}},
	}}
	stream, err := New(rule).Run(ctx, execctx.ExecutionContext{Services: svc})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	root, ok := stream.Batches[batch.RootName]
	if !ok || len(root.Files) != 2 {
		t.Fatalf("expected root batch with 2 files, got %+v", stream.Batches)
	}
}

func TestFilterDropsNonMatchingBatches(t *testing.T) {
	svc := newTestServices(t)
	ctx := context.Background()
	if err := svc.FS.WriteAll(ctx, "dryrun:///inbox/a.pdf", []byte("x")); err != nil {
		t.Fatalf("seed: %v", err)
	}

	rule := Rule{Name: "r", Stages: []Stage{
		{Kind: KindSearch, Params: NewParams(), Location: providers.Location{Host: "dryrun", Path: "/inbox", Mode: providers.MergeReplace}},
		{Kind: KindFilter, Params: NewParams(), Filter: pdfFilter{}},
	}}
	stream, err := New(rule).Run(ctx, execctx.ExecutionContext{Services: svc})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(stream.Batches[batch.RootName].Files) != 1 {
		t.Fatalf("expected surviving pdf, got %+v", stream.Batches)
	}
}

func TestFilterDropsBatchWhenEmpty(t *testing.T) {
	svc := newTestServices(t)
	ctx := context.Background()
	if err := svc.FS.WriteAll(ctx, "dryrun:///inbox/a.txt", []byte("x")); err != nil {
		t.Fatalf("seed: %v", err)
	}

	rule := Rule{Name: "r", Stages: []Stage{
		{Kind: KindSearch, Params: NewParams(), Location: providers.Location{Host: "dryrun", Path: "/inbox", Mode: providers.MergeReplace}},
		{Kind: KindFilter, Params: NewParams(), Filter: pdfFilter{}},
	}}
	stream, err := New(rule).Run(ctx, execctx.ExecutionContext{Services: svc})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if _, ok := stream.Batches[batch.RootName]; ok {
		t.Fatalf("expected root batch to be dropped, got %+v", stream.Batches)
	}
}

func TestPartitionSplitsIntoNamedBatches(t *testing.T) {
	svc := newTestServices(t)
	ctx := context.Background()
	for _, p := range []string{"dryrun:///inbox/a.pdf", "dryrun:///inbox/b.pdf", "dryrun:///inbox/c.txt"} {
		if err := svc.FS.WriteAll(ctx, p, []byte("x")); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	rule := Rule{Name: "r", Stages: []Stage{
		{Kind: KindSearch, Params: NewParams(), Location: providers.Location{Host: "dryrun", Path: "/inbox", Mode: providers.MergeReplace}},
		{Kind: KindPartition, Params: NewParams(), Partitioner: extPartitioner{}},
	}}
	stream, err := New(rule).Run(ctx, execctx.ExecutionContext{Services: svc})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if _, ok := stream.Batches[batch.RootName]; ok {
		t.Fatalf("expected root batch removed after partition")
	}
	if len(stream.Batches["pdf"].Files) != 2 || len(stream.Batches["other"].Files) != 1 {
		t.Fatalf("unexpected partition result: %+v", stream.Batches)
	}
}

func TestDisabledStageIsSkipped(t *testing.T) {
	svc := newTestServices(t)
	ctx := context.Background()
	if err := svc.FS.WriteAll(ctx, "dryrun:///inbox/a.pdf", []byte("x")); err != nil {
		t.Fatalf("seed: %v", err)
	}

	rule := Rule{Name: "r", Stages: []Stage{
		{Kind: KindSearch, Params: NewParams(), Location: providers.Location{Host: "dryrun", Path: "/inbox", Mode: providers.MergeReplace}},
		{Kind: KindFilter, Params: Params{Enabled: false}, Filter: pdfFilter{}},
	}}
	stream, err := New(rule).Run(ctx, execctx.ExecutionContext{Services: svc})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(stream.Batches[batch.RootName].Files) != 1 {
		t.Fatalf("disabled filter should not have run: %+v", stream.Batches)
	}
}

func TestActionRecordsTransactionAndAdvancesStream(t *testing.T) {
	svc := newTestServices(t)
	ctx := context.Background()
	if err := svc.FS.WriteAll(ctx, "dryrun:///inbox/a.pdf", []byte("x")); err != nil {
		t.Fatalf("seed: %v", err)
	}

	action := &noopAction{}
	rule := Rule{Name: "r", Stages: []Stage{
		{Kind: KindSearch, Params: NewParams(), Location: providers.Location{Host: "dryrun", Path: "/inbox", Mode: providers.MergeReplace}},
		{Kind: KindAction, Params: NewParams(), Action: action},
	}}
	stream, err := New(rule).Run(ctx, execctx.ExecutionContext{Services: svc})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if action.calls != 1 {
		t.Fatalf("expected action invoked once, got %d", action.calls)
	}
	if len(stream.Batches[batch.RootName].Files) != 1 {
		t.Fatalf("expected file carried through Next")
	}
}

func TestActionDropsBatchWhenNextIsEmpty(t *testing.T) {
	svc := newTestServices(t)
	ctx := context.Background()
	if err := svc.FS.WriteAll(ctx, "dryrun:///inbox/a.pdf", []byte("x")); err != nil {
		t.Fatalf("seed: %v", err)
	}

	rule := Rule{Name: "r", Stages: []Stage{
		{Kind: KindSearch, Params: NewParams(), Location: providers.Location{Host: "dryrun", Path: "/inbox", Mode: providers.MergeReplace}},
		{Kind: KindAction, Params: NewParams(), Action: dropAllAction{}},
	}}
	stream, err := New(rule).Run(ctx, execctx.ExecutionContext{Services: svc})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if _, ok := stream.Batches[batch.RootName]; ok {
		t.Fatalf("expected batch dropped once action returns no Next files")
	}
}
