package stack

import shared "histedit/shared/types"

// commitFileKey addresses one path as modified by one commit; fileStackKey
// addresses one revision inside one file stack. The dual index (§3, I5) is
// a bijection between the two.
type commitFileKey struct {
	Rev  shared.Rev
	Path string
}

type fileStackKey struct {
	StackIdx int
	FileRev  shared.Rev
}
