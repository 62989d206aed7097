package pkgutil

import (
	"go/types"
	"strings"

	"golang.org/x/tools/go/ssa"
)

// TestFunctions collects the Test* functions of all loaded packages.
// They are ordinary functions to the lifter; the testing package only
// determines the expected signature.
func TestFunctions(prog *ssa.Program) (res []*ssa.Function) {
	testingPkg := prog.ImportedPackage("testing")
	if testingPkg == nil {
		// testing package is not loaded so no tests are defined.
		return
	}

	arg0Type := types.NewPointer(testingPkg.Type("T").Type())

	for _, pkg := range AllPackages(prog) {
		for name, member := range pkg.Members {
			if fun, ok := member.(*ssa.Function); ok && strings.HasPrefix(name, "Test") &&
				len(fun.Params) == 1 && types.Identical(arg0Type, fun.Params[0].Type()) {

				res = append(res, fun)
			}
		}
	}

	return
}
