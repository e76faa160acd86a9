package stack

import (
	"fmt"
	"strings"
)

// DescribeFileStacks renders every file stack as a compact, human-readable
// trace: one line per stack, one "fileRev:owner/path(preview)" token per
// revision, in file-stack order. The CLI's show/watch commands print
// Describe, not this.
func (s *CommitStackState) DescribeFileStacks() []string {
	lines := make([]string, 0, len(s.fileStacks))
	for idx, fs := range s.fileStacks {
		var tokens []string
		for _, r := range fs.Revs() {
			content, err := fs.GetRev(r)
			if err != nil {
				continue
			}
			owner, path := "bottom", "?"
			if ck, ok := s.fileToCommit[fileStackKey{StackIdx: idx, FileRev: r}]; ok {
				owner = fmt.Sprintf("rev%d", ck.Rev)
				path = ck.Path
			}
			preview := content
			if len(preview) > 20 {
				preview = preview[:20] + "..."
			}
			tokens = append(tokens, fmt.Sprintf("%d:%s/%s(%s)", r, owner, path, preview))
		}
		lines = append(lines, strings.Join(tokens, " "))
	}
	return lines
}

// Describe renders a one-line-per-commit summary: rev, message headline,
// and the paths it modifies.
func (s *CommitStackState) Describe() []string {
	lines := make([]string, 0, len(s.commits))
	for _, c := range s.commits {
		headline := c.Text
		if i := strings.IndexByte(headline, '\n'); i >= 0 {
			headline = headline[:i]
		}
		paths := make([]string, 0, len(c.Files))
		for p := range c.Files {
			paths = append(paths, p)
		}
		lines = append(lines, fmt.Sprintf("rev %d: %s [%s]", c.Rev, headline, strings.Join(paths, ", ")))
	}
	return lines
}
