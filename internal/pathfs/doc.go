// Package pathfs provides path-oriented filesystem helpers built around a
// UTF-8 Path type.
//
// Single entries are handled by methods on Path (Write, ReadString, Rm, Mv,
// Mkdir, Mkdirs and the Assert guards); failures carry the operation and the
// offending path in a *Error.
//
// Trees are handled by a lazy breadth-first Walker:
//
//	for p := range pathfs.Ls(root).Recurse().Files().All() {
//		fmt.Println(p)
//	}
//
// A Walker skips directories it cannot list. Its Try variant stops at the
// first failure instead:
//
//	for p, err := range pathfs.Ls(root).Recurse().Try().All() {
//		if err != nil {
//			return err
//		}
//		fmt.Println(p)
//	}
//
// Copy mirrors a tree onto a destination and RmMatching removes the
// immediate children of a directory that satisfy a Predicate. Neither rolls
// back on failure.
package pathfs
