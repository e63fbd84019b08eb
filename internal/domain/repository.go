package domain

import "time"

// Repository is the remote platform's description of one repository at
// listing time.
type Repository struct {
	Owner         string
	Name          string
	CloneURL      string // always https
	Description   string
	Size          int64 // KiB, as reported by the platform
	DefaultBranch string
	Fork          bool
	Archived      bool
	CreatedAt     time.Time
	UpdatedAt     time.Time // changes on metadata edits
	PushedAt      time.Time // changes on new commits, zero if never pushed
}

// SizeBytes returns the reported size in bytes.
func (r *Repository) SizeBytes() uint64 {
	if r.Size <= 0 {
		return 0
	}
	return uint64(r.Size) * 1024
}

// LatestActivity returns the most recent of UpdatedAt and PushedAt. A
// repository that was never pushed to falls back to UpdatedAt, and one with
// neither timestamp falls back to CreatedAt.
func (r *Repository) LatestActivity() time.Time {
	latest := r.UpdatedAt
	if r.PushedAt.After(latest) {
		latest = r.PushedAt
	}
	if latest.IsZero() {
		latest = r.CreatedAt
	}
	return latest
}

// MirrorRecord is the persisted state of one mirrored repository. A record
// exists only for repositories that were fully mirrored at least once.
type MirrorRecord struct {
	Name          string    `json:"name"`
	LastUpdatedAt time.Time `json:"last_updated_at"`
	LastPushedAt  time.Time `json:"last_pushed_at"`
	LocalPath     string    `json:"local_path"`
	Description   string    `json:"description"`
	MirroredAt    time.Time `json:"mirrored_at"`
}

// IsStale reports whether repo carries a newer state than the record. Either
// timestamp advancing counts; equal timestamps are unchanged.
func (m *MirrorRecord) IsStale(repo *Repository) bool {
	return repo.UpdatedAt.After(m.LastUpdatedAt) || repo.PushedAt.After(m.LastPushedAt)
}
