package scan

import (
	"context"
	"fmt"

	"github.com/tendant/qgl-content/pkg/qcproj"
)

// EntryProcessor processes individual project entries.
//
// Example implementations:
//   - Integrity check (opens every entry through its extension)
//   - Exporter (copies entry content to another store)
//   - Reporter (lists entries per resource type)
type EntryProcessor interface {
	// Process is called for each entry selected by the scan. Return an error
	// to mark the entry as failed; the scan continues with the next entry.
	Process(ctx context.Context, index int, entry qcproj.ContentProjectEntry) error
}

// ProcessorFunc adapts a function to the EntryProcessor interface.
type ProcessorFunc func(ctx context.Context, index int, entry qcproj.ContentProjectEntry) error

func (f ProcessorFunc) Process(ctx context.Context, index int, entry qcproj.ContentProjectEntry) error {
	return f(ctx, index, entry)
}

// OpenProcessor opens each entry through its installed extension and
// discards the content. It fails entries whose file is missing or whose
// extension cannot read it.
func OpenProcessor(svc qcproj.Service) EntryProcessor {
	return ProcessorFunc(func(ctx context.Context, index int, entry qcproj.ContentProjectEntry) error {
		if _, err := svc.OpenContent(ctx, entry); err != nil {
			return err
		}
		return nil
	})
}

// ChainProcessor runs processors in order and stops at the first failure.
func ChainProcessor(processors ...EntryProcessor) EntryProcessor {
	return ProcessorFunc(func(ctx context.Context, index int, entry qcproj.ContentProjectEntry) error {
		for i, p := range processors {
			if err := p.Process(ctx, index, entry); err != nil {
				return fmt.Errorf("processor %d: %w", i, err)
			}
		}
		return nil
	})
}
