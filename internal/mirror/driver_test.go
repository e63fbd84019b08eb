package mirror

import (
	"testing"

	"github.com/kurihiro0119/github-mirror/internal/domain"
)

func TestPath(t *testing.T) {
	tests := []struct {
		name string
		repo domain.Repository
		want string
	}{
		{"source", domain.Repository{Name: "foo"}, "/srv/git/foo.git"},
		{"fork", domain.Repository{Name: "bar", Fork: true}, "/srv/git/fork/bar.git"},
		{"dotted", domain.Repository{Name: "octocat.github.io"}, "/srv/git/octocat.github.io.git"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Path("/srv/git", &tt.repo); got != tt.want {
				t.Errorf("Path() = %q, want %q", got, tt.want)
			}
		})
	}
}
