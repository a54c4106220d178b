package upload

import "fmt"

// Policy decides what a sync does after one unit of work failed
type Policy int

const (
	// SkipImage drops the remaining sizes of the image and goes on with the next one
	SkipImage Policy = iota
	// ContinueSizes goes on with the next size of the same image
	ContinueSizes
	// AbortRun stops the folder run
	AbortRun
)

var policyNames = map[Policy]string{
	SkipImage:     "skip-image",
	ContinueSizes: "continue",
	AbortRun:      "abort",
}

func (p Policy) String() string {
	if name, ok := policyNames[p]; ok {
		return name
	}
	return fmt.Sprintf("Policy(%d)", int(p))
}

// ParsePolicy reads the configuration name of a policy; empty means SkipImage
func ParsePolicy(name string) (Policy, error) {
	if name == "" {
		return SkipImage, nil
	}
	for p, n := range policyNames {
		if n == name {
			return p, nil
		}
	}
	return SkipImage, fmt.Errorf("unknown error policy '%s', want one of skip-image, continue, abort", name)
}
