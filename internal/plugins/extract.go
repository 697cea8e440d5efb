package plugins

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/organize/organize/internal/execctx"
	"github.com/organize/organize/internal/resource"
)

// ExtractAction unpacks a .zip, .tar, or .tar.gz archive next to (or
// under) a rendered destination directory, supplementing the distilled
// spec's action set per original_source's Extract action (SPEC_FULL.md
// §D). The archive format is inferred from the resource's extension.
type ExtractAction struct {
	DestinationTemplate string
}

func (ExtractAction) Name() string          { return "extract" }
func (ExtractAction) Model() ExecutionModel { return Single }

func (a ExtractAction) ActSingle(ctx context.Context, ectx execctx.ExecutionContext, r *resource.Resource) (Receipt, error) {
	svc := ectx.Services
	destTmpl, err := svc.Compiler.Compile(a.DestinationTemplate)
	if err != nil {
		return Receipt{}, err
	}
	destDir, err := destTmpl.Render(ectx.WithResource(r).TemplateContext())
	if err != nil {
		return Receipt{}, err
	}

	data, err := r.Bytes(ctx)
	if err != nil {
		return Receipt{}, err
	}

	var entries map[string][]byte
	switch {
	case strings.HasSuffix(strings.ToLower(r.Name()), ".zip"):
		entries, err = extractZip(data)
	case strings.HasSuffix(strings.ToLower(r.Name()), ".tar.gz"), strings.HasSuffix(strings.ToLower(r.Name()), ".tgz"):
		entries, err = extractTarGz(data)
	case strings.HasSuffix(strings.ToLower(r.Name()), ".tar"):
		entries, err = extractTar(bytes.NewReader(data))
	default:
		return Receipt{}, fmt.Errorf("extract action: unsupported archive %q", r.Name())
	}
	if err != nil {
		return Receipt{}, err
	}

	var outputs []OutputEntry
	var next []*resource.Resource
	for name, content := range entries {
		target := path.Join(destDir, name)
		if err := svc.FS.WriteAll(ctx, target, content); err != nil {
			return Receipt{}, err
		}
		out := resource.New(r.Host, target, nil)
		outputs = append(outputs, OutputEntry{Status: OutputCreated, Resource: out})
		next = append(next, out)
	}

	return Receipt{
		Inputs:  []InputEntry{{Status: InputProcessed, Resource: r}},
		Outputs: outputs,
		Next:    next,
	}, nil
}

func (a ExtractAction) ActBatch(ctx context.Context, ectx execctx.ExecutionContext, files []*resource.Resource) (Receipt, error) {
	return actBatchFromSingle(ctx, ectx, files, a.ActSingle)
}

func extractZip(data []byte) (map[string][]byte, error) {
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("extract zip: %w", err)
	}
	out := map[string][]byte{}
	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("extract zip entry %s: %w", f.Name, err)
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("extract zip entry %s: %w", f.Name, err)
		}
		out[f.Name] = content
	}
	return out, nil
}

func extractTarGz(data []byte) (map[string][]byte, error) {
	gz, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("extract tar.gz: %w", err)
	}
	defer gz.Close()
	return extractTar(gz)
}

func extractTar(r io.Reader) (map[string][]byte, error) {
	tr := tar.NewReader(r)
	out := map[string][]byte{}
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("extract tar: %w", err)
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		content, err := io.ReadAll(tr)
		if err != nil {
			return nil, fmt.Errorf("extract tar entry %s: %w", hdr.Name, err)
		}
		out[hdr.Name] = content
	}
	return out, nil
}
