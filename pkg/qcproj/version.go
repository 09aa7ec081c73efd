package qcproj

import "fmt"

// CompilerVersion tags every metadata record and project file with the format
// revision that produced it.
type CompilerVersion uint16

const (
	CompilerVersion0_1 CompilerVersion = 1
	CompilerVersion0_2 CompilerVersion = 2

	// CompilerVersionLatest is always the highest tag defined above.
	CompilerVersionLatest = CompilerVersion0_2
)

// Supported reports whether a reader built at CompilerVersionLatest can
// interpret data stamped with v.
func (v CompilerVersion) Supported() bool {
	return v <= CompilerVersionLatest
}

func (v CompilerVersion) String() string {
	switch v {
	case CompilerVersion0_1:
		return "0.1"
	case CompilerVersion0_2:
		return "0.2"
	default:
		return fmt.Sprintf("unknown(%d)", uint16(v))
	}
}
