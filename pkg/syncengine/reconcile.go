package syncengine

import "github.com/notewell/notewell/pkg/models"

// Reconcile merges a remote note list into the local one with a per-note
// last-writer-wins rule: for each ID present on both sides, the local
// version is kept when local.UpdatedAt >= remote.UpdatedAt, otherwise the
// remote version replaces it. Notes present on only one side are kept.
//
// Ties go to local so a round-tripped note never bounces back as a remote
// "change". The result preserves the local collection's order, with
// remote-only notes appended in their remote order; Reconcile is idempotent
// under repeated application of the same remote list.
func Reconcile(local, remote []models.Note) []models.Note {
	remoteByID := make(map[models.NoteID]models.Note, len(remote))
	for _, r := range remote {
		remoteByID[r.ID] = r
	}

	out := make([]models.Note, 0, len(local)+len(remote))
	seen := make(map[models.NoteID]struct{}, len(local))
	for _, l := range local {
		seen[l.ID] = struct{}{}
		if r, ok := remoteByID[l.ID]; ok && r.UpdatedAt > l.UpdatedAt {
			out = append(out, r.Clone())
			continue
		}
		out = append(out, l.Clone())
	}
	for _, r := range remote {
		if _, ok := seen[r.ID]; ok {
			continue
		}
		out = append(out, r.Clone())
	}
	return out
}
