package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"pdf-page-server/internal/domain"

	"github.com/shirou/gopsutil/v4/process"
)

// processInfo is the subset of a running process the locator looks at.
type processInfo struct {
	PID       int32
	Name      string
	Args      []string
	Cwd       string
	CreatedAt int64
}

// LocatorService finds PDFs held open by desktop reader processes.
type LocatorService struct {
	readers   []string
	logger    domain.Logger
	processes func(ctx context.Context) ([]processInfo, error)
}

// NewLocatorService creates a locator matching the given reader process names
func NewLocatorService(readers []string, logger domain.Logger) *LocatorService {
	normalized := make([]string, 0, len(readers))
	for _, r := range readers {
		if r = normalizeProcessName(r); r != "" {
			normalized = append(normalized, r)
		}
	}
	return &LocatorService{
		readers:   normalized,
		logger:    logger,
		processes: listProcesses,
	}
}

// OpenDocuments returns open PDFs, most recently started reader first. A path
// opened by several readers is reported once.
func (s *LocatorService) OpenDocuments(ctx context.Context) ([]domain.OpenDocument, error) {
	procs, err := s.processes(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrDiscoveryUnavailable, err)
	}

	sort.SliceStable(procs, func(i, j int) bool {
		return procs[i].CreatedAt > procs[j].CreatedAt
	})

	seen := make(map[string]bool)
	var docs []domain.OpenDocument
	for _, p := range procs {
		if !s.isReader(p.Name) {
			continue
		}
		path := pdfArgument(p.Args, p.Cwd)
		if path == "" || seen[path] {
			continue
		}
		seen[path] = true
		docs = append(docs, domain.OpenDocument{
			Path:        path,
			ProcessID:   p.PID,
			ProcessName: p.Name,
		})
	}

	s.logger.Debug("Scanned reader processes", "processes", len(procs), "open_documents", len(docs))
	return docs, nil
}

// ResolveOpenDocument returns the path of the most recently opened PDF.
func (s *LocatorService) ResolveOpenDocument(ctx context.Context) (string, error) {
	docs, err := s.OpenDocuments(ctx)
	if err != nil {
		return "", err
	}
	if len(docs) == 0 {
		return "", domain.ErrOpenDocumentNotFound
	}
	return docs[0].Path, nil
}

func (s *LocatorService) isReader(name string) bool {
	name = normalizeProcessName(name)
	if name == "" {
		return false
	}
	for _, r := range s.readers {
		if name == r || strings.HasPrefix(name, r) {
			return true
		}
	}
	return false
}

func normalizeProcessName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	return strings.TrimSuffix(name, ".exe")
}

// pdfArgument returns the last argument naming an existing PDF file.
func pdfArgument(args []string, cwd string) string {
	for i := len(args) - 1; i >= 1; i-- {
		arg := strings.Trim(args[i], `"'`)
		if !strings.EqualFold(filepath.Ext(arg), ".pdf") {
			continue
		}
		if !filepath.IsAbs(arg) {
			if cwd == "" {
				continue
			}
			arg = filepath.Join(cwd, arg)
		}
		info, err := os.Stat(arg)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		return filepath.Clean(arg)
	}
	return ""
}

func listProcesses(ctx context.Context) ([]processInfo, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, err
	}

	infos := make([]processInfo, 0, len(procs))
	for _, p := range procs {
		name, err := p.NameWithContext(ctx)
		if err != nil {
			continue
		}
		args, err := p.CmdlineSliceWithContext(ctx)
		if err != nil || len(args) < 2 {
			continue
		}
		// Both are best effort; permission errors are common for other users' processes.
		cwd, _ := p.CwdWithContext(ctx)
		created, _ := p.CreateTimeWithContext(ctx)

		infos = append(infos, processInfo{
			PID:       p.Pid,
			Name:      name,
			Args:      args,
			Cwd:       cwd,
			CreatedAt: created,
		})
	}
	return infos, nil
}
