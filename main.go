package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/XVilka/fcd/analysis/backend"
	"github.com/XVilka/fcd/analysis/preast"
	"github.com/XVilka/fcd/ast"
	"github.com/XVilka/fcd/lift"
	"github.com/XVilka/fcd/metadata"
	"github.com/XVilka/fcd/pkgutil"
	"github.com/XVilka/fcd/utils"

	"github.com/fatih/color"
	"golang.org/x/tools/go/ssa"
	"golang.org/x/tools/go/ssa/ssautil"
)

var (
	opts = utils.Opts()
	task = opts.Task()
)

func main() {
	utils.ParseArgs()
	path := utils.MakePath()

	color.NoColor = opts.NoColorize()

	pkgs, err := pkgutil.LoadPackages(pkgutil.LoadConfig{
		GoPath:       opts.GoPath(),
		ModulePath:   opts.ModulePath(),
		IncludeTests: opts.IncludeTests(),
	}, path)
	if err != nil {
		log.Println("Failed pkgutil.LoadPackages")
		log.Println(err)
		os.Exit(1)
	}

	prog, _ := lift.BuildProgram(pkgs)

	mains := ssautil.MainPackages(prog.AllPackages())
	if len(mains) == 0 {
		log.Println("No main packages detected")
		return
	}

	if err := pkgutil.GetLocalPackages(mains, pkgutil.AllPackages(prog)); err != nil {
		log.Fatalln(err)
	}

	fns := targetFunctions(prog, pkgutil.GetMain(mains))
	if len(fns) == 0 {
		log.Fatalf("No function matching \"%s\"", opts.Function())
	}

	md, err := metadata.Load(opts.Metadata())
	if err != nil {
		log.Fatalln(err)
	}

	switch {
	case task.IsCfgToDot():
		cfgToDot(fns)
	case task.IsVerify():
		verify(fns)
	default:
		structurize(md, fns)
	}
}

// targetFunctions resolves the -fun option to the functions the task
// runs on: all main package functions for ".", otherwise the first
// function matching the given name.
func targetFunctions(prog *ssa.Program, mainPkg *ssa.Package) []backend.Function {
	if opts.AnalyzeAllFuncs() {
		fns := lift.Functions(mainPkg)
		if opts.IncludeTests() {
			for _, fun := range pkgutil.TestFunctions(prog) {
				if pkgutil.IsLocal(fun) {
					fns = append(fns, lift.Wrap(fun))
				}
			}
		}
		return fns
	}

	if fun := findFunction(prog, mainPkg); fun != nil {
		return []backend.Function{lift.Wrap(fun)}
	}
	return nil
}

// findFunction looks the -fun name up in the main package first, then
// across the remaining loaded packages, skipping GOROOT.
func findFunction(prog *ssa.Program, mainPkg *ssa.Package) *ssa.Function {
	lookup := func(pkg *ssa.Package) *ssa.Function {
		if fun := pkg.Func(opts.Function()); fun != nil && len(fun.Blocks) > 0 {
			return fun
		}
		return nil
	}

	if fun := lookup(mainPkg); fun != nil {
		return fun
	}
	for _, pkg := range pkgutil.AllPackages(prog) {
		if pkg == mainPkg || pkgutil.CheckPkgInGoroot(pkg.Pkg) {
			continue
		}
		if fun := lookup(pkg); fun != nil {
			return fun
		}
	}
	return nil
}

func structurize(md *metadata.Table, fns []backend.Function) {
	defer utils.TimeTrack(time.Now(), "structurization")

	be := backend.New(md)
	be.RegisterPass(func(nodes []*backend.FunctionNode) {
		utils.VerbosePrint("structurized %d functions\n", len(nodes))
	})

	for _, node := range be.RunOnModule(ast.NewContext(), fns) {
		if addr := node.VirtualAddress(); addr != 0 {
			fmt.Printf("// %#x\n", addr)
		}
		fmt.Print(node.Pseudo())
		fmt.Println()
	}
}

func cfgToDot(fns []backend.Function) {
	for _, f := range fns {
		cfg := buildNormalized(f)
		if opts.Visualize() {
			if opts.OutputFormat() == "xdot" {
				cfg.ToDotGraph().ShowDot()
				continue
			}
			out, err := cfg.Visualize(f.Name())
			if err != nil {
				log.Fatalln(err)
			}
			log.Println("Rendered", out)
			continue
		}
		if err := cfg.ToDotGraph().WriteDot(os.Stdout); err != nil {
			log.Fatalln(err)
		}
	}
}

func verify(fns []backend.Function) {
	for _, f := range fns {
		buildNormalized(f)
		utils.VerbosePrint("%s: ok\n", f.Name())
	}
	log.Println("All control-flow graphs pass the invariant checks")
}

// buildNormalized runs the pipeline up to, but not including, region
// reduction, checking the graph invariants before and after.
func buildNormalized(f backend.Function) *preast.CFG {
	cfg := f.Build(ast.NewContext())
	cfg.Verify()

	preast.Compress(cfg)
	preast.EnsureSingleEntrySingleExitCycles(cfg)
	cfg.Verify()
	return cfg
}
