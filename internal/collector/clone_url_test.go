package collector

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestNormaliseCloneURL(t *testing.T) {
	tests := []struct {
		name    string
		rawURL  string
		want    string
		wantErr bool
	}{
		{"https", "https://github.com/octocat/hello.git", "https://github.com/octocat/hello.git", false},
		{"git", "git://github.com/octocat/hello.git", "https://github.com/octocat/hello.git", false},
		{"http", "http://github.com/octocat/hello.git", "https://github.com/octocat/hello.git", false},
		{"ssh", "ssh://git@github.com:22/octocat/hello.git", "https://github.com/octocat/hello.git", false},
		{"scp", "git@github.com:octocat/hello.git", "https://github.com/octocat/hello.git", false},
		{"whitespace", "  https://github.com/octocat/hello.git\n", "https://github.com/octocat/hello.git", false},
		{"enterprise", "git://ghe.example.com/team/tool.git", "https://ghe.example.com/team/tool.git", false},

		{"empty", "", "", true},
		{"file", "file:///srv/git/hello.git", "", true},
		{"no_path", "https://github.com/", "", true},
		{"no_host", "git:///hello.git", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormaliseCloneURL(tt.rawURL)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NormaliseCloneURL() error = %v, wantErr %v", err, tt.wantErr)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("NormaliseCloneURL() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
