package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"
	"github.com/tendant/qgl-content/pkg/qcproj"
	"github.com/tendant/qgl-content/pkg/qcproj/config"
	"github.com/tendant/qgl-content/pkg/qcproj/scan"
)

const usage = `qcproj

Inspects and checks content project files.

USAGE:
  qcproj <command> [arguments] [options]

COMMANDS:
  inspect <file>   Print a project's metadata and entries
  check <file>     Open every entry through its extension and report failures
  types            List registered resource types and loaders
  recent           List recently used projects

ENVIRONMENT VARIABLES:
  STORAGE_URL      Where project files live (default: file://.)
                   e.g. file:///data/projects or s3://bucket/prefix?region=us-east-1
  DATABASE_URL     PostgreSQL connection string for the access lists (default: in memory)

  Configuration can be loaded from a .env file in the current directory.
  Command line environment variables override .env file values.

EXAMPLES:
  qcproj inspect demo.qcproj
  qcproj check demo.qcproj --resource-type=1 --skip-unresolved
  qcproj types --json
  qcproj recent --clear

OPTIONS:
  --resource-type=<id>   Only check entries of this resource type (check only)
  --skip-unresolved      Skip entries whose extension is not installed (check only)
  --dry-run              List the entries check would open
  --clear                Clear the recent list (recent only)
  --json                 Output as JSON
`

type options struct {
	json           bool
	dryRun         bool
	skipUnresolved bool
	clear          bool
	resourceType   *uint16
	args           []string
}

func main() {
	// Load .env file if it exists (silently ignore if not found)
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		fmt.Print(usage + "\n")
		os.Exit(1)
	}

	command := os.Args[1]

	if command == "help" || command == "--help" || command == "-h" {
		fmt.Print(usage + "\n")
		os.Exit(0)
	}

	cfg, err := config.Load(config.WithFilesystemStorage("."), config.WithEnv())
	if err != nil {
		fatal("Failed to load configuration", err)
	}
	svc, err := cfg.BuildService()
	if err != nil {
		fatal("Failed to create service", err)
	}

	ctx := context.Background()
	opts := parseOptions(os.Args[2:])

	switch command {
	case "inspect":
		handleInspect(ctx, svc, opts)
	case "check":
		handleCheck(ctx, svc, opts)
	case "types":
		handleTypes(svc, opts)
	case "recent":
		handleRecent(ctx, svc, opts)
	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		fmt.Print(usage + "\n")
		os.Exit(1)
	}
}

func fatal(msg string, err error) {
	slog.Error(msg, "err", err)
	os.Exit(1)
}

func parseOptions(args []string) options {
	var opts options
	for _, arg := range args {
		key, value, ok := parseFlag(arg)
		if !ok {
			opts.args = append(opts.args, arg)
			continue
		}
		switch key {
		case "json":
			opts.json = true
		case "dry-run":
			opts.dryRun = true
		case "skip-unresolved":
			opts.skipUnresolved = true
		case "clear":
			opts.clear = true
		case "resource-type":
			if n, err := strconv.ParseUint(value, 10, 16); err == nil {
				id := uint16(n)
				opts.resourceType = &id
			}
		}
	}
	return opts
}

func parseFlag(arg string) (string, string, bool) {
	if len(arg) > 2 && arg[:2] == "--" {
		arg = arg[2:]
		for i, c := range arg {
			if c == '=' {
				return arg[:i], arg[i+1:], true
			}
		}
		return arg, "true", true
	}
	return "", "", false
}

func projectArg(opts options) string {
	if len(opts.args) != 1 {
		fmt.Println("Expected exactly one project file")
		fmt.Print(usage + "\n")
		os.Exit(1)
	}
	return opts.args[0]
}

func printJSON(v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fatal("Failed to encode output", err)
	}
	fmt.Println(string(data))
}

func handleInspect(ctx context.Context, svc qcproj.Service, opts options) {
	path := projectArg(opts)
	result, err := svc.LoadProject(ctx, path)
	if err != nil {
		fatal("Failed to load project", err)
	}

	if opts.json {
		printJSON(map[string]any{
			"path":     path,
			"version":  result.Version.String(),
			"size":     result.Size,
			"checksum": fmt.Sprintf("%016x", result.Checksum),
			"project":  result.Project,
			"resolved": result.Resolved(),
		})
		return
	}

	meta := result.Project.Metadata
	fmt.Printf("Project:   %s\n", meta.Name)
	fmt.Printf("ID:        %s\n", meta.ID())
	fmt.Printf("Version:   %s\n", result.Version)
	fmt.Printf("Type:      %d/%d\n", meta.ResourceTypeID, meta.LoaderID)
	fmt.Printf("Size:      %d bytes (xxhash %016x)\n\n", result.Size, result.Checksum)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "#\tNAME\tFILE\tTYPE\tLOADER\tVERSION\tVISIBLE\tPHYSICS\tEXTENSION\n")
	for i, entry := range result.Project.Entries {
		m := entry.Metadata
		ext := "installed"
		if !svc.Supports(m) {
			ext = "missing"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%d\t%s\t%t\t%t\t%s\n",
			i, truncate(m.Name, 24), entry.FilePath, m.ResourceTypeID, m.LoaderID, m.Version, m.Visible, m.ObeyPhysics, ext)
	}
	w.Flush()

	fmt.Printf("\nEntries: %d", result.Project.Len())
	if n := len(result.Issues); n > 0 {
		fmt.Printf(" (%d without an installed extension)", n)
	}
	fmt.Println()
}

func handleCheck(ctx context.Context, svc qcproj.Service, opts options) {
	path := projectArg(opts)
	scanner := scan.New(svc, slog.Default())

	result, err := scanner.Scan(ctx, path, scan.ScanOptions{
		ResourceTypeID: opts.resourceType,
		SkipUnresolved: opts.skipUnresolved,
		Processor:      scan.OpenProcessor(svc),
		DryRun:         opts.dryRun,
	})
	if err != nil {
		fatal("Failed to check project", err)
	}

	if opts.json {
		printJSON(result)
	} else {
		fmt.Printf("Found: %d  Processed: %d  Failed: %d  Skipped: %d\n",
			result.TotalFound, result.TotalProcessed, result.TotalFailed, result.TotalSkipped)
		for _, f := range result.Failures {
			fmt.Printf("  [%d] %s: %s\n", f.Index, f.FilePath, f.Error)
		}
	}

	if result.TotalFailed > 0 {
		os.Exit(2)
	}
}

func handleTypes(svc qcproj.Service, opts options) {
	types := svc.ResourceTypes()

	if opts.json {
		printJSON(types)
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "TYPE\tNAME\tLOADER\tSUFFIX\n")
	for _, rt := range types {
		for _, loaderID := range rt.LoaderIDs {
			fmt.Fprintf(w, "%d\t%s\t%d\t%s\n", rt.ID, rt.Name, loaderID, svc.FileExtensionFor(loaderID))
		}
	}
	w.Flush()
}

func handleRecent(ctx context.Context, svc qcproj.Service, opts options) {
	if opts.clear {
		if err := svc.ClearRecentProjects(ctx); err != nil {
			fatal("Failed to clear recent projects", err)
		}
		fmt.Println("Recent projects cleared")
		return
	}

	entries, err := svc.RecentProjects(ctx)
	if err != nil {
		fatal("Failed to list recent projects", err)
	}

	if opts.json {
		printJSON(entries)
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "NAME\tPATH\tUPDATED\n")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\n", truncate(e.Name, 24), e.Path, e.UpdatedAt.Format(time.RFC3339))
	}
	w.Flush()

	fmt.Printf("\nTotal: %d\n", len(entries))
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
