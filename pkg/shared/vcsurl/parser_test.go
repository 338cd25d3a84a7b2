package vcsurl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name       string
		raw        string
		vcsType    VCSType
		namespace  string
		repository string
		host       string
		wantErr    bool
	}{
		{
			name:       "github https",
			raw:        "https://github.com/org/project.git",
			vcsType:    Github,
			namespace:  "org",
			repository: "project",
			host:       "github.com",
		},
		{
			name:       "gitlab scp style with subgroups",
			raw:        "git@gitlab.example.com:group/sub/project.git",
			vcsType:    Gitlab,
			namespace:  "group/sub",
			repository: "project",
			host:       "gitlab.example.com",
		},
		{
			name:       "generic ssh",
			raw:        "ssh://git@git.example.com/team/tool",
			vcsType:    GenericVCS,
			namespace:  "team",
			repository: "tool",
			host:       "git.example.com",
		},
		{
			name:       "bitbucket scm",
			raw:        "https://bitbucket.example.com/scm/proj/repo.git",
			vcsType:    Bitbucket,
			namespace:  "proj",
			repository: "repo",
			host:       "bitbucket.example.com",
		},
		{
			name:       "bitbucket ssh user repo",
			raw:        "ssh://git@bitbucket.example.com:7989/~jdoe/repo.git",
			vcsType:    Bitbucket,
			namespace:  "~jdoe",
			repository: "repo",
			host:       "bitbucket.example.com",
		},
		{name: "no repository", raw: "https://github.com/org", wantErr: true},
		{name: "bad scheme", raw: "ftp://github.com/org/repo", wantErr: true},
		{name: "bitbucket project only", raw: "https://bitbucket.example.com/projects/proj", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := Parse(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.vcsType, u.VCSType)
			assert.Equal(t, tt.namespace, u.Namespace)
			assert.Equal(t, tt.repository, u.Repository)
			assert.Equal(t, tt.host, u.Host)
		})
	}
}

func TestStringToVCSType(t *testing.T) {
	assert.Equal(t, Github, StringToVCSType("GitHub"))
	assert.Equal(t, Bitbucket, StringToVCSType("bitbucket"))
	assert.Equal(t, GenericVCS, StringToVCSType("generic"))
	assert.Equal(t, UnknownVCS, StringToVCSType(""))
}
