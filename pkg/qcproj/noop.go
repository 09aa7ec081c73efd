package qcproj

import (
	"context"
	"log/slog"
)

// NoopEventSink is a no-operation implementation of EventSink
type NoopEventSink struct{}

// NewNoopEventSink creates a new no-operation event sink
func NewNoopEventSink() EventSink {
	return &NoopEventSink{}
}

// ProjectSaved does nothing and returns nil
func (n *NoopEventSink) ProjectSaved(ctx context.Context, result *SaveResult) error {
	return nil
}

// ProjectLoaded does nothing and returns nil
func (n *NoopEventSink) ProjectLoaded(ctx context.Context, path string, result *LoadResult) error {
	return nil
}

// ExtensionUnresolved does nothing and returns nil
func (n *NoopEventSink) ExtensionUnresolved(ctx context.Context, path string, issue EntryIssue) error {
	return nil
}

// LoggingEventSink logs events but takes no other action
type LoggingEventSink struct {
	logger *slog.Logger
}

// NewLoggingEventSink creates a new logging event sink. A nil logger uses slog.Default().
func NewLoggingEventSink(logger *slog.Logger) EventSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingEventSink{logger: logger}
}

// ProjectSaved logs the save event
func (l *LoggingEventSink) ProjectSaved(ctx context.Context, result *SaveResult) error {
	l.logger.InfoContext(ctx, "Project saved",
		"path", result.Path, "size", result.Size, "entries", result.Entries, "checksum", result.Checksum)
	return nil
}

// ProjectLoaded logs the load event
func (l *LoggingEventSink) ProjectLoaded(ctx context.Context, path string, result *LoadResult) error {
	l.logger.InfoContext(ctx, "Project loaded",
		"path", path, "version", result.Version.String(), "entries", result.Project.Len(), "issues", len(result.Issues))
	return nil
}

// ExtensionUnresolved logs the entry that has no installed extension
func (l *LoggingEventSink) ExtensionUnresolved(ctx context.Context, path string, issue EntryIssue) error {
	l.logger.WarnContext(ctx, "Extension not installed",
		"project", path, "index", issue.Index, "file", issue.FilePath, "name", issue.Name, "err", issue.Err)
	return nil
}
