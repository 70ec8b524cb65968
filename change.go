package kvdoc

import (
	"fmt"
)

type (
	// Change describes one structural mutation made through a cursor.
	Change struct {
		op     Op
		key    string
		oldKey string
	}

	Op int
)

const (
	OpNone   Op = 0
	OpInsert Op = 1
	OpDelete Op = 2
	OpRename Op = 3
)

func insertChange(key string) Change {
	return Change{op: OpInsert, key: key}
}

func deleteChange(key string) Change {
	return Change{op: OpDelete, key: key}
}

func renameChange(oldKey, newKey string) Change {
	return Change{op: OpRename, key: newKey, oldKey: oldKey}
}

func (chg Change) Op() Op {
	return chg.op
}

// Key is the inserted, deleted or new key.
func (chg Change) Key() string {
	return chg.key
}

// OldKey is the key before a rename.
func (chg Change) OldKey() string {
	return chg.oldKey
}

func (chg Change) String() string {
	switch chg.op {
	case OpRename:
		return fmt.Sprintf("%v %q -> %q", chg.op, chg.oldKey, chg.key)
	case OpNone:
		return chg.op.String()
	default:
		return fmt.Sprintf("%v %q", chg.op, chg.key)
	}
}

func (v Op) String() string {
	switch v {
	case OpNone:
		return "none"
	case OpInsert:
		return "insert"
	case OpDelete:
		return "delete"
	case OpRename:
		return "rename"
	default:
		return fmt.Sprintf("invalid op %d", int(v))
	}
}
