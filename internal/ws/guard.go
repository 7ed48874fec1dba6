package ws

import "wsync-go/internal/model"

// FilterContaminated drops every file whose workspace id does not match the
// workspace it was fetched through. It returns the clean set and the records
// that were dropped. Contamination is detected-and-corrected, never fatal:
// the caller gets a degraded-but-correct view, and another workspace's files
// are never surfaced under the wrong workspace.
func FilterContaminated(files []*model.File, workspaceID string) (clean, dropped []*model.File) {
	clean = files[:0:0]
	for _, f := range files {
		if f.WorkspaceID == workspaceID {
			clean = append(clean, f)
		} else {
			dropped = append(dropped, f)
		}
	}
	return clean, dropped
}

// contaminationSample returns up to three offending paths for diagnostics.
func contaminationSample(dropped []*model.File) []string {
	n := len(dropped)
	if n > 3 {
		n = 3
	}
	sample := make([]string, 0, n)
	for _, f := range dropped[:n] {
		sample = append(sample, f.Path)
	}
	return sample
}
