package security

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatePathWithinDirectory(t *testing.T) {
	safe := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(safe, "plots"), 0o755))

	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{"file in dir", filepath.Join(safe, "results.bbox.json"), false},
		{"new nested file", filepath.Join(safe, "plots", "new", "bbox_pr.png"), false},
		{"dir itself", safe, false},
		{"dot dot inside", filepath.Join(safe, "plots", "..", "x.json"), false},
		{"parent", filepath.Join(safe, ".."), true},
		{"escape", filepath.Join(safe, "..", "other", "x.json"), true},
		{"absolute elsewhere", "/etc/passwd", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePathWithinDirectory(tt.path, safe)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrPathTraversal)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidatePathWithinDirectorySymlink(t *testing.T) {
	safe := t.TempDir()
	outside := t.TempDir()
	link := filepath.Join(safe, "link")
	if err := os.Symlink(outside, link); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	assert.ErrorIs(t, ValidatePathWithinDirectory(filepath.Join(link, "new.json"), safe), ErrPathTraversal)
}

func TestValidatePathWithinDirectoryMissingSafeDir(t *testing.T) {
	err := ValidatePathWithinDirectory("x.json", filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrPathTraversal)
}

func TestValidateOutputPath(t *testing.T) {
	assert.NoError(t, ValidateOutputPath("results/out"))
	assert.NoError(t, ValidateOutputPath(filepath.Join(os.TempDir(), "cocoeval", "out")))
	assert.ErrorIs(t, ValidateOutputPath("/proc/self/out"), ErrPathTraversal)
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"bbox", "bbox"},
		{"proposal_fast", "proposal_fast"},
		{"../../etc/passwd", "etc_passwd"},
		{"a b\tc", "a_b_c"},
		{"", "unknown"},
		{"...", "unknown"},
		{"seg m@v2.0", "seg_m_v2.0"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeFilename(tt.in))
		})
	}
	assert.LessOrEqual(t, len(SanitizeFilename(strings.Repeat("a", 500))), 128)
}
