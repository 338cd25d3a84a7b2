package ci

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scan-io-git/skim/internal/git"
)

func lookupFrom(vars map[string]string) LookupFunc {
	return func(key string) string { return vars[key] }
}

func TestDetect(t *testing.T) {
	tests := []struct {
		name string
		vars map[string]string
		want Kind
	}{
		{name: "GitHub", vars: map[string]string{"GITHUB_ACTIONS": "true"}, want: GitHub},
		{name: "GitLab", vars: map[string]string{"GITLAB_CI": "true"}, want: GitLab},
		{name: "Bitbucket", vars: map[string]string{"BITBUCKET_BUILD_NUMBER": "17"}, want: Bitbucket},
		{name: "Local", vars: map[string]string{"CI": "true"}, want: Unknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Detect(lookupFrom(tt.vars))
			assert.Equal(t, tt.want, got)
			assert.Equal(t, map[Kind]string{GitHub: "github", GitLab: "gitlab", Bitbucket: "bitbucket", Unknown: "unknown"}[tt.want], got.String())
		})
	}
}

func TestFromEnvironment(t *testing.T) {
	tests := []struct {
		name     string
		vars     map[string]string
		want     Environment
		wantBase string
		wantHead string
		wantErr  error
	}{
		{
			name: "GitHub pull request",
			vars: map[string]string{
				"GITHUB_ACTIONS":    "true",
				"GITHUB_SHA":        "abc123",
				"GITHUB_HEAD_REF":   "feature/login",
				"GITHUB_BASE_REF":   "main",
				"GITHUB_SERVER_URL": "https://github.com/",
				"GITHUB_REPOSITORY": "org/app",
			},
			want: Environment{
				Kind:          GitHub,
				CommitHash:    "abc123",
				ReferenceName: "feature/login",
				RepositoryURL: "https://github.com/org/app",
				TargetBranch:  "main",
			},
			wantBase: "origin/main",
			wantHead: "abc123",
		},
		{
			name:    "GitHub push",
			vars:    map[string]string{"GITHUB_ACTIONS": "true", "GITHUB_SHA": "abc123", "GITHUB_REF_NAME": "main"},
			want:    Environment{Kind: GitHub, CommitHash: "abc123", ReferenceName: "main"},
			wantErr: ErrNoDiffRange,
		},
		{
			name: "GitLab merge request",
			vars: map[string]string{
				"GITLAB_CI":                           "true",
				"CI_COMMIT_SHA":                       "def456",
				"CI_COMMIT_REF_NAME":                  "fix",
				"CI_PROJECT_URL":                      "https://gitlab.com/group/app",
				"CI_MERGE_REQUEST_TARGET_BRANCH_NAME": "develop",
				"CI_MERGE_REQUEST_DIFF_BASE_SHA":      "0001",
			},
			want: Environment{
				Kind:          GitLab,
				CommitHash:    "def456",
				ReferenceName: "fix",
				RepositoryURL: "https://gitlab.com/group/app",
				TargetBranch:  "develop",
				BaseCommit:    "0001",
			},
			wantBase: "0001",
			wantHead: "def456",
		},
		{
			name: "Bitbucket pull request",
			vars: map[string]string{
				"BITBUCKET_BUILD_NUMBER":          "3",
				"BITBUCKET_BRANCH":                "topic",
				"BITBUCKET_PR_DESTINATION_BRANCH": "master",
				"BITBUCKET_GIT_HTTP_ORIGIN":       "http://bitbucket.org/team/app",
			},
			want: Environment{
				Kind:          Bitbucket,
				ReferenceName: "topic",
				RepositoryURL: "http://bitbucket.org/team/app",
				TargetBranch:  "master",
			},
			wantBase: "origin/master",
			wantHead: "HEAD",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, err := FromEnvironment(lookupFrom(tt.vars))
			require.NoError(t, err)
			assert.Equal(t, tt.want, env)

			base, head, err := env.DiffRange()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantBase, base)
			assert.Equal(t, tt.wantHead, head)
		})
	}

	_, err := FromEnvironment(lookupFrom(nil))
	assert.ErrorIs(t, err, ErrNotDetected)
}

func TestEnrich(t *testing.T) {
	env := Environment{Kind: GitLab, CommitHash: "def456", ReferenceName: "fix", RepositoryURL: "https://gitlab.com/group/app.git"}

	md := &git.RepositoryMetadata{RepoRootFolder: "/builds/app"}
	env.Enrich(md)
	require.NotNil(t, md.CommitHash)
	assert.Equal(t, "def456", *md.CommitHash)
	assert.Equal(t, "fix", *md.BranchName)
	assert.Equal(t, "https://gitlab.com/group/app", *md.RepositoryURL)

	local := "feedbeef"
	md = &git.RepositoryMetadata{CommitHash: &local}
	env.Enrich(md)
	assert.Equal(t, "feedbeef", *md.CommitHash)

	env.Enrich(nil)
}
