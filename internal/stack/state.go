package stack

import (
	"fmt"
	"sync"

	mapset "github.com/deckarep/golang-set/v2"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/google/uuid"

	"histedit/internal/config"
	"histedit/internal/filestack"
	"histedit/internal/stackerr"
	shared "histedit/shared/types"
)

// CommitStackState is the in-memory, immutable-by-convention model of a
// linear commit stack (spec §3). Every edit operator returns a new
// *CommitStackState; the receiver is never mutated. commits[i].Rev == i
// (I2): ordering is always index order, never a separately-tracked field.
type CommitStackState struct {
	commits      []shared.CommitState
	bottomFiles  shared.BottomFiles
	fileStacks   []*filestack.FileStack
	commitToFile map[commitFileKey]fileStackKey
	fileToCommit map[fileStackKey]commitFileKey

	depMapOnce sync.Once
	depMapVal  map[shared.Rev]mapset.Set[shared.Rev]

	legalityCacheSize int
	legalityCache     *lru.Cache[uint64, bool]

	// Snapshot of the state as originally constructed, kept for Export's
	// minimal-diff detection. Never mutated after NewCommitStackState
	// returns, so it's shared by reference across every clone.
	originalByKey     map[string]shared.CommitState
	originalHashByKey map[string]shared.Hash
	originalOrder     []string
	allOriginalHashes mapset.Set[shared.Hash]
}

// NewCommitStackState builds a CommitStackState from a host-supplied
// ExportStack (spec §4.9 inverse: import), using cfg's LegalityCacheSize
// (at least 16) for the legality memoization cache. The dep map is not
// size-bounded: it is computed once per state instance.
func NewCommitStackState(export shared.ExportStack, cfg *config.Config) (*CommitStackState, error) {
	if cfg == nil {
		d := config.Defaults()
		cfg = &d
	}
	if len(export) == 0 {
		return nil, stackerr.StructuralRejection("export stack is empty", nil)
	}

	bottom, err := buildBottomFiles(export)
	if err != nil {
		return nil, stackerr.StructuralRejection(err.Error(), export)
	}

	hashToRev := make(map[shared.Hash]shared.Rev, len(export))
	for i, ec := range export {
		if ec.Node == "" {
			continue
		}
		if _, dup := hashToRev[ec.Node]; dup {
			return nil, stackerr.StructuralRejection(fmt.Sprintf("duplicate commit hash %q", ec.Node), nil)
		}
		hashToRev[ec.Node] = shared.Rev(i)
	}

	commits := make([]shared.CommitState, len(export))
	for i, ec := range export {
		parents := make([]shared.Rev, 0, len(ec.Parents))
		for _, ph := range ec.Parents {
			if pr, ok := hashToRev[ph]; ok {
				parents = append(parents, pr)
			}
		}
		files := make(map[string]shared.FileState, len(ec.Files))
		for path, ef := range ec.Files {
			files[path] = exportFileToState(ef)
		}
		immKind := shared.ImmutableNone
		if ec.Immutable {
			immKind = shared.ImmutableHash
		}
		originNodes := mapset.NewSet[shared.Hash]()
		if ec.Node != "" {
			originNodes.Add(ec.Node)
		}
		commits[i] = shared.CommitState{
			Rev:           shared.Rev(i),
			OriginalNodes: originNodes,
			Key:           uuid.NewString(),
			Author:        ec.Author,
			Date:          ec.Date,
			TZOffset:      ec.TZOffset,
			Text:          ec.Text,
			ImmutableKind: immKind,
			Parents:       parents,
			Files:         files,
		}
	}

	if err := verifyLinearChain(commits); err != nil {
		return nil, stackerr.StructuralRejection(err.Error(), nil)
	}

	stacks, c2f, f2c, err := buildFileStacks(commits, bottom)
	if err != nil {
		return nil, stackerr.InvariantViolation(err.Error(), nil)
	}

	size := maxInt(cfg.LegalityCacheSize, 16)
	legalityCache, _ := lru.New[uint64, bool](size)

	originalByKey := make(map[string]shared.CommitState, len(commits))
	originalHashByKey := make(map[string]shared.Hash, len(commits))
	originalOrder := make([]string, len(commits))
	allHashes := mapset.NewSet[shared.Hash]()
	for i, c := range commits {
		originalByKey[c.Key] = c
		originalOrder[i] = c.Key
		if node := export[i].Node; node != "" {
			originalHashByKey[c.Key] = node
			allHashes.Add(node)
		}
	}

	return &CommitStackState{
		commits:           commits,
		bottomFiles:       bottom,
		fileStacks:        stacks,
		commitToFile:      c2f,
		fileToCommit:      f2c,
		legalityCacheSize: size,
		legalityCache:     legalityCache,
		originalByKey:     originalByKey,
		originalHashByKey: originalHashByKey,
		originalOrder:     originalOrder,
		allOriginalHashes: allHashes,
	}, nil
}

// verifyLinearChain enforces that this is a single stack, not merely a
// single-rooted tree: commit i's sole parent must be i-1 (except commit 0,
// which is rootless). Fold/drop/reorder below all lean on this to keep
// their rev bookkeeping a plain sequential renumbering.
func verifyLinearChain(commits []shared.CommitState) error {
	for i, c := range commits {
		if i == 0 {
			if len(c.Parents) != 0 {
				return fmt.Errorf("commit 0 must be rootless, got %d parents", len(c.Parents))
			}
			continue
		}
		if len(c.Parents) != 1 || c.Parents[0] != shared.Rev(i-1) {
			return fmt.Errorf("commit %d does not linearly follow commit %d", i, i-1)
		}
	}
	return nil
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// clone builds a shallow-but-independent copy suitable as the basis for an
// edit operator's result: new backing slices/maps for everything an
// operator might mutate, sharing immutable leaves (FileStack pointers,
// BottomFiles values) until an operator explicitly replaces them.
func (s *CommitStackState) clone() *CommitStackState {
	commits := make([]shared.CommitState, len(s.commits))
	for i, c := range s.commits {
		nc := c
		nc.Parents = append([]shared.Rev(nil), c.Parents...)
		nc.Files = make(map[string]shared.FileState, len(c.Files))
		for p, f := range c.Files {
			nc.Files[p] = f
		}
		nc.OriginalNodes = c.OriginalNodes.Clone()
		commits[i] = nc
	}

	stacks := make([]*filestack.FileStack, len(s.fileStacks))
	copy(stacks, s.fileStacks)

	c2f := make(map[commitFileKey]fileStackKey, len(s.commitToFile))
	for k, v := range s.commitToFile {
		c2f[k] = v
	}
	f2c := make(map[fileStackKey]commitFileKey, len(s.fileToCommit))
	for k, v := range s.fileToCommit {
		f2c[k] = v
	}
	bottom := make(shared.BottomFiles, len(s.bottomFiles))
	for k, v := range s.bottomFiles {
		bottom[k] = v
	}

	cache, _ := lru.New[uint64, bool](maxInt(s.legalityCacheSize, 16))
	return &CommitStackState{
		commits:           commits,
		bottomFiles:       bottom,
		fileStacks:        stacks,
		commitToFile:      c2f,
		fileToCommit:      f2c,
		legalityCacheSize: s.legalityCacheSize,
		legalityCache:     cache,
		originalByKey:     s.originalByKey,
		originalHashByKey: s.originalHashByKey,
		originalOrder:     s.originalOrder,
		allOriginalHashes: s.allOriginalHashes,
	}
}

// Len returns the number of commits in the stack.
func (s *CommitStackState) Len() int { return len(s.commits) }

// Commit returns the commit at rev.
func (s *CommitStackState) Commit(rev shared.Rev) (shared.CommitState, bool) {
	if rev < 0 || int(rev) >= len(s.commits) {
		return shared.CommitState{}, false
	}
	return s.commits[rev], true
}

// Commits returns every commit, in rev order.
func (s *CommitStackState) Commits() []shared.CommitState {
	return append([]shared.CommitState(nil), s.commits...)
}

// DepMap returns the memoized dependency map (spec §4.6), computed once per
// state instance since the state is never mutated in place.
func (s *CommitStackState) DepMap() map[shared.Rev]mapset.Set[shared.Rev] {
	s.depMapOnce.Do(func() {
		s.depMapVal = calculateDepMap(s.commits, s.fileStacks, s.fileToCommit, s.bottomFiles)
	})
	return s.depMapVal
}

// log returns rev and its ancestors, depth-first (spec §4.5).
func (s *CommitStackState) log(rev shared.Rev) []shared.Rev {
	return logRevs(s.commits, rev)
}

// logFile returns the revs (rev first) that modify path, walking ancestors
// of rev and optionally following renames through CopyFrom.
func (s *CommitStackState) logFile(rev shared.Rev, path string, followRenames bool) []shared.Rev {
	return logFileRevs(s.commits, rev, path, followRenames)
}

// getFile implements spec §4.4: the file a commit's tree actually contains
// at path, which may differ from commit.Files[path] when the commit didn't
// itself modify path. Walks log(rev) and returns the first ancestor's
// modification, falling back to BottomFiles.
func (s *CommitStackState) getFile(rev shared.Rev, path string) (shared.FileState, shared.Rev, error) {
	for _, r := range s.log(rev) {
		if f, ok := s.commits[r].Files[path]; ok {
			return f, r, nil
		}
	}
	if bf, ok := s.bottomFiles[path]; ok {
		return bf, shared.RevBottom, nil
	}
	return shared.FileState{}, shared.RevBottom, stackerr.InvariantViolation("path not tracked: "+path, path)
}

// memoLegal memoizes a legality predicate's result under key, computing it
// via compute on a cache miss.
func (s *CommitStackState) memoLegal(key uint64, compute func() bool) bool {
	if v, ok := s.legalityCache.Get(key); ok {
		return v
	}
	v := compute()
	s.legalityCache.Add(key, v)
	return v
}

// rebuildFileStacksFromScratch recomputes the dual index in place, per the
// drop/reorder operators' documented "rebuild file stacks from scratch"
// finishing step. Clears the memoized dependency map, since it's keyed off
// the stacks it just replaced.
func (s *CommitStackState) rebuildFileStacksFromScratch() error {
	stacks, c2f, f2c, err := buildFileStacks(s.commits, s.bottomFiles)
	if err != nil {
		return err
	}
	s.fileStacks = stacks
	s.commitToFile = c2f
	s.fileToCommit = f2c
	s.depMapOnce = sync.Once{}
	s.depMapVal = nil
	return nil
}

func (s *CommitStackState) isStackLinear() bool {
	for i, c := range s.commits {
		if i == 0 {
			if len(c.Parents) != 0 {
				return false
			}
			continue
		}
		if len(c.Parents) != 1 || c.Parents[0] != shared.Rev(i-1) {
			return false
		}
	}
	return true
}
