package pathfs

import (
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
)

// Glob returns a Predicate that matches a path against a doublestar pattern
// such as "**/*.tmp" or "vendor/**". Paths are compared in slash form.
func Glob(pattern string) (Predicate, error) {
	pattern = filepath.ToSlash(pattern)
	if !doublestar.ValidatePattern(pattern) {
		return nil, &Error{Kind: KindInvalidInput, Op: "compile glob", Path: Path(pattern), Err: doublestar.ErrBadPattern}
	}
	return func(p Path) bool {
		ok, _ := doublestar.Match(pattern, filepath.ToSlash(string(p)))
		return ok
	}, nil
}

// GlobName is like Glob but matches only the last element of the path.
func GlobName(pattern string) (Predicate, error) {
	match, err := Glob(pattern)
	if err != nil {
		return nil, err
	}
	return func(p Path) bool {
		return match(Path(p.Base()))
	}, nil
}

// Not negates pred.
func Not(pred Predicate) Predicate {
	return func(p Path) bool { return !pred(p) }
}

// AnyOf matches when at least one of preds matches. With no predicates it
// matches nothing.
func AnyOf(preds ...Predicate) Predicate {
	return func(p Path) bool {
		for _, pred := range preds {
			if pred(p) {
				return true
			}
		}
		return false
	}
}
