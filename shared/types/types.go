// Package shared holds the wire-level and value types shared across the
// engine, the CLI, and the session store: revisions, file states, and the
// ExportStack/ImportStack shapes exchanged with a host repository.
package shared

import mapset "github.com/deckarep/golang-set/v2"

// Rev is the position of a commit in the stack. RevBottom is the sentinel
// meaning "before any commit".
type Rev int

const RevBottom Rev = -1

// Hash is an opaque identifier for an original (pre-edit) commit.
type Hash string

// ImmutableKind controls what an edit operator is allowed to touch.
type ImmutableKind string

const (
	ImmutableNone    ImmutableKind = "none"
	ImmutableHash    ImmutableKind = "hash"
	ImmutableContent ImmutableKind = "content"
	ImmutableDiff    ImmutableKind = "diff"
)

// FlagAbsent marks a FileState as "does not exist at this revision".
const FlagAbsent = "a"

// FileDataKind selects which field of FileState carries the payload.
type FileDataKind int

const (
	DataNone FileDataKind = iota
	DataText
	DataBinary
	DataLazy
)

// FileState is one path's content at one revision.
type FileState struct {
	Kind     FileDataKind
	Text     string // valid when Kind == DataText
	Binary   []byte // valid when Kind == DataBinary (opaque, compared by equality only)
	FileIdx  int    // valid when Kind == DataLazy
	FileRev  Rev    // valid when Kind == DataLazy
	CopyFrom string // optional rename/copy source path
	Flags    string // "" or FlagAbsent
}

// IsAbsent reports whether the file does not exist at this revision.
func (f FileState) IsAbsent() bool { return f.Flags == FlagAbsent }

// Absent returns the canonical "file does not exist" state.
func Absent() FileState {
	return FileState{Kind: DataText, Text: "", Flags: FlagAbsent}
}

// Equal compares two FileStates the way the exporter needs to: same
// presence, same copy-from, and same content. Lazy references compare by
// the (fileIdx, fileRev) they point to; callers that need content equality
// across lazy/materialized forms must call useFileContent first.
func (f FileState) Equal(o FileState) bool {
	if f.IsAbsent() != o.IsAbsent() {
		return false
	}
	if f.IsAbsent() {
		return true
	}
	if f.CopyFrom != o.CopyFrom {
		return false
	}
	if f.Kind != o.Kind {
		return false
	}
	switch f.Kind {
	case DataText:
		return f.Text == o.Text
	case DataBinary:
		return string(f.Binary) == string(o.Binary)
	case DataLazy:
		return f.FileIdx == o.FileIdx && f.FileRev == o.FileRev
	}
	return true
}

// BottomFiles is the snapshot of every referenced path just below rev 0.
type BottomFiles map[string]FileState

// CommitState is one commit's metadata and its modified files.
type CommitState struct {
	Rev           Rev
	OriginalNodes mapset.Set[Hash]
	Key           string
	Author        string
	Date          int64 // unix seconds
	TZOffset      int   // minutes
	Text          string
	ImmutableKind ImmutableKind
	Parents       []Rev // length <= 1
	Files         map[string]FileState
}

// Clone returns a deep-enough copy for copy-on-write edits: Files and
// Parents get their own backing storage, OriginalNodes its own set.
func (c CommitState) Clone() CommitState {
	nc := c
	nc.Parents = append([]Rev(nil), c.Parents...)
	nc.Files = make(map[string]FileState, len(c.Files))
	for k, v := range c.Files {
		nc.Files[k] = v
	}
	if c.OriginalNodes != nil {
		nc.OriginalNodes = c.OriginalNodes.Clone()
	} else {
		nc.OriginalNodes = mapset.NewSet[Hash]()
	}
	return nc
}

// --- External wire shapes (ExportStack / ImportStack) ---

// ExportFile mirrors one path's pre-stack or modified content as received
// from (or sent to) a host repository.
type ExportFile struct {
	Data       string // UTF-8 text, mutually exclusive with DataBase85/Binary
	DataBase85 string
	Binary     []byte
	CopyFrom   string
	Flags      string
	Deleted    bool // true <=> the host represents this entry as `null`
}

// ExportCommit is one record of an ExportStack.
type ExportCommit struct {
	Node          Hash
	Immutable     bool
	Requested     bool
	Author        string
	Date          int64
	TZOffset      int
	Text          string
	Parents       []Hash
	RelevantFiles map[string]ExportFile
	Files         map[string]ExportFile
}

// ExportStack is the ordered input sequence of commits, lowest (root) first.
type ExportStack []ExportCommit

// ImportActionKind enumerates the four ImportStack action shapes.
type ImportActionKind string

const (
	ActionCommit ImportActionKind = "commit"
	ActionGoto   ImportActionKind = "goto"
	ActionReset  ImportActionKind = "reset"
	ActionHide   ImportActionKind = "hide"
)

// ImportCommit is the payload of a "commit" ImportStack action.
type ImportCommit struct {
	Mark         string
	Author       string
	Date         int64
	TZOffset     int
	Text         string
	Parents      []string // marks or original hashes
	Predecessors []string // original hashes (originalNodes)
	Files        map[string]*ExportFile
}

// ImportAction is one entry of an ImportStack.
type ImportAction struct {
	Kind   ImportActionKind
	Commit *ImportCommit // ActionCommit
	Mark   string        // ActionGoto / ActionReset
	Nodes  []Hash        // ActionHide
}

// ImportStack is the ordered list of actions to submit to a host repository.
type ImportStack []ImportAction
