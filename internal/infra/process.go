package infra

import (
	"strings"

	"github.com/shirou/gopsutil/v3/process"

	"github.com/codingiran/applicationskit/internal/domain"
)

const bundleExecMarker = ".app/Contents/MacOS/"

// ProcessResolver maps the process table back to application bundles
// using gopsutil.
type ProcessResolver struct{}

// NewProcessResolver creates a process resolver.
func NewProcessResolver() *ProcessResolver {
	return &ProcessResolver{}
}

// RunningBundlePaths returns bundle path -> PID for every process whose
// executable lives inside an application bundle. The first process seen
// per bundle wins.
func (r *ProcessResolver) RunningBundlePaths() (map[string]int32, error) {
	procs, err := process.Processes()
	if err != nil {
		return nil, err
	}

	running := make(map[string]int32)
	for _, p := range procs {
		exe, err := p.Exe()
		if err != nil {
			continue // process may have exited
		}
		idx := strings.Index(exe, bundleExecMarker)
		if idx < 0 {
			continue
		}
		bundle := exe[:idx+len(AppBundleExt)]
		if _, seen := running[bundle]; !seen {
			running[bundle] = p.Pid
		}
	}
	return running, nil
}

var _ domain.RunningAppResolver = (*ProcessResolver)(nil)
