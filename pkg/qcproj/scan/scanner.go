package scan

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tendant/qgl-content/pkg/qcproj"
)

// Scanner loads a project and processes its entries with the provided processor.
type Scanner struct {
	svc    qcproj.Service
	logger *slog.Logger
}

// New creates a new Scanner instance. A nil logger uses slog.Default().
func New(svc qcproj.Service, logger *slog.Logger) *Scanner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scanner{svc: svc, logger: logger}
}

// ScanOptions configures the scan operation.
type ScanOptions struct {
	// ResourceTypeID limits the scan to entries of one resource type
	ResourceTypeID *uint16

	// SkipUnresolved skips entries whose extension is not installed instead of
	// handing them to the processor
	SkipUnresolved bool

	// Processor defines the processing logic (required unless DryRun is true)
	Processor EntryProcessor

	// DryRun if true, doesn't process entries, just reports what would be processed
	DryRun bool

	// OnProgress is called after each entry is handled (optional)
	OnProgress func(handled, total int)
}

// EntryFailure records an entry the processor rejected.
type EntryFailure struct {
	Index    int    `json:"index"`
	FilePath string `json:"file_path"`
	Error    string `json:"error"`
}

// ScanResult contains statistics about the scan operation.
type ScanResult struct {
	// TotalFound is the number of entries matching the options
	TotalFound int `json:"total_found"`

	// TotalProcessed is the number of entries successfully processed
	TotalProcessed int `json:"total_processed"`

	// TotalFailed is the number of entries that failed processing
	TotalFailed int `json:"total_failed"`

	// TotalSkipped is the number of unresolved entries skipped
	TotalSkipped int `json:"total_skipped"`

	Failures []EntryFailure `json:"failures,omitempty"`
}

// Scan loads the project at path and processes each selected entry in order.
// A failing entry is recorded and scanning continues. Cancelling ctx stops
// the scan and returns the partial result with the context error.
func (s *Scanner) Scan(ctx context.Context, path string, opts ScanOptions) (*ScanResult, error) {
	result := &ScanResult{}

	if !opts.DryRun && opts.Processor == nil {
		return result, fmt.Errorf("processor is required when DryRun is false")
	}

	loaded, err := s.svc.LoadProject(ctx, path)
	if err != nil {
		return result, fmt.Errorf("failed to load project: %w", err)
	}
	return s.scanProject(ctx, loaded.Project, opts, result)
}

// ScanProject processes entries of a project that is already in memory.
func (s *Scanner) ScanProject(ctx context.Context, project *qcproj.ContentProject, opts ScanOptions) (*ScanResult, error) {
	result := &ScanResult{}
	if !opts.DryRun && opts.Processor == nil {
		return result, fmt.Errorf("processor is required when DryRun is false")
	}
	return s.scanProject(ctx, project, opts, result)
}

func (s *Scanner) scanProject(ctx context.Context, project *qcproj.ContentProject, opts ScanOptions, result *ScanResult) (*ScanResult, error) {
	var selected []int
	for i, entry := range project.Entries {
		if opts.ResourceTypeID != nil && entry.Metadata.ResourceTypeID != *opts.ResourceTypeID {
			continue
		}
		selected = append(selected, i)
	}
	result.TotalFound = len(selected)

	for n, i := range selected {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		entry := project.Entries[i]

		switch {
		case opts.SkipUnresolved && !s.svc.Supports(entry.Metadata):
			s.logger.DebugContext(ctx, "Skipping unresolved entry", "index", i, "file", entry.FilePath,
				"resource_type", entry.Metadata.ResourceTypeID, "loader", entry.Metadata.LoaderID)
			result.TotalSkipped++
		case opts.DryRun:
			s.logger.InfoContext(ctx, "Would process entry", "index", i, "file", entry.FilePath, "name", entry.Metadata.Name)
			result.TotalProcessed++
		default:
			if err := opts.Processor.Process(ctx, i, entry); err != nil {
				s.logger.WarnContext(ctx, "Failed to process entry", "index", i, "file", entry.FilePath, "err", err)
				result.TotalFailed++
				result.Failures = append(result.Failures, EntryFailure{Index: i, FilePath: entry.FilePath, Error: err.Error()})
			} else {
				result.TotalProcessed++
			}
		}

		if opts.OnProgress != nil {
			opts.OnProgress(n+1, len(selected))
		}
	}

	return result, nil
}

// ForEach is a convenience method that processes each entry of the project at
// path with a callback function.
//
// Example:
//
//	scanner.ForEach(ctx, "demo.qcproj", func(ctx context.Context, i int, e qcproj.ContentProjectEntry) error {
//	    fmt.Printf("%d: %s\n", i, e.FilePath)
//	    return nil
//	})
func (s *Scanner) ForEach(ctx context.Context, path string, fn func(context.Context, int, qcproj.ContentProjectEntry) error) (*ScanResult, error) {
	return s.Scan(ctx, path, ScanOptions{Processor: ProcessorFunc(fn)})
}
