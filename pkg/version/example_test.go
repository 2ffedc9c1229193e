package version_test

import (
	"fmt"

	"github.com/matzehuels/depresolve/pkg/version"
)

func ExampleParseRange() {
	r, err := version.ParseRange("[1.0,2.0)")
	if err != nil {
		panic(err)
	}
	best, _ := r.Highest([]string{"0.9", "1.2", "1.10", "2.0"})
	fmt.Println(best)
	// Output: 1.10
}

func ExampleCompare() {
	fmt.Println(version.Compare("1.0-SNAPSHOT", "1.0"))
	fmt.Println(version.Compare("1.10", "1.9"))
	// Output:
	// -1
	// 1
}
