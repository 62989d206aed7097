package utils

import (
	"flag"
	"fmt"
	"log"
	"strings"
)

type options struct {
	minlen       uint
	nodesep      float64
	function     string
	outputFormat string
	gopath       string
	modulePath   string
	metadata     string
	task         string
	noColorize   bool
	verbose      bool
	includeTests bool
	visualize    bool
}

const (
	_STRUCTURIZE = iota
	_CFG_TO_DOT
	_VERIFY
)

var task = []struct{ flag, explanation string }{{
	"structurize",
	"Lift every targeted function, structurize it and print the pseudo-code",
}, {
	"cfg-to-dot",
	"Create a graph for the normalized control-flow graph",
}, {
	"verify",
	"Lift and normalize every targeted function, running only the invariant checks",
}}

// CanColorize strips a colorization function down to plain formatting
// when -no-colorize is set.
func CanColorize(col func(...interface{}) string) func(...interface{}) string {
	if opts.noColorize {
		return func(is ...interface{}) string {
			return fmt.Sprintf(strings.Repeat("%s", len(is)), is...)
		}
	}
	return col
}

var opts = &options{}

type optInterface struct{}

type taskInterface struct{}

func Opts() optInterface {
	return optInterface{}
}

func (optInterface) NoColorize() bool {
	return opts.noColorize
}

func (optInterface) Minlen() uint {
	return opts.minlen
}
func (optInterface) Nodesep() float64 {
	return opts.nodesep
}
func (optInterface) Function() string {
	return opts.function
}
func (optInterface) OutputFormat() string {
	return opts.outputFormat
}
func (optInterface) GoPath() string {
	return opts.gopath
}
func (optInterface) ModulePath() string {
	return opts.modulePath
}
func (optInterface) Metadata() string {
	return opts.metadata
}
func (optInterface) Verbose() bool {
	return opts.verbose
}
func (optInterface) IncludeTests() bool {
	return opts.includeTests
}
func (optInterface) Visualize() bool {
	return opts.visualize
}
func (optInterface) Task() taskInterface {
	return taskInterface{}
}
func (taskInterface) IsStructurize() bool {
	return opts.task == task[_STRUCTURIZE].flag
}
func (taskInterface) IsCfgToDot() bool {
	return opts.task == task[_CFG_TO_DOT].flag
}
func (taskInterface) IsVerify() bool {
	return opts.task == task[_VERIFY].flag
}

func init() {
	taskFlag := "\n"
	for _, task := range task {
		taskFlag += task.flag + " -- " + task.explanation + "\n"
	}
	taskFlag += "\n"

	flag.UintVar(&(opts.minlen), "minlen", 2, "Minimum edge length (for wider output).")
	flag.Float64Var(&(opts.nodesep), "nodesep", 0.35, "Minimum space between two adjacent nodes in the same rank (for taller output).")
	flag.StringVar(&(opts.function), "fun", "main", "target a specific function w. r. t. the given task.\n"+
		"- Function names need not be fully qualified w.r.t. package name. If a simple name is provided, "+
		"the framework will search for a function matching that name in the main package. If one is not found, "+
		"it will proceed to do a search across all packages. Will return the first function matching that name.\n"+
		"- Use '.' to run the task on all functions in the main package.\n")
	flag.StringVar(&(opts.outputFormat), "format", "svg", "output file format [svg | png | jpg | ...]")
	flag.StringVar(&(opts.gopath), "gopath", "examples", "specify GOPATH to be used for packages.Load")
	flag.StringVar(&(opts.modulePath), "modulepath", "", `specify a path to a directory containing a Go module.
- If provided this will make our code loading tools (that piggyback on Go's tools) run
in "module-aware" mode (GO111MODULE=on).`)
	flag.StringVar(&(opts.metadata), "metadata", "", "path to a YAML sidecar with per-function metadata (virtual address, prototype flag)")
	flag.StringVar(&(opts.task), "task", task[_STRUCTURIZE].flag, "Set the task to do during execution. Options:"+taskFlag)
	flag.BoolVar(&(opts.noColorize), "no-colorize", false, "Disable pretty printer colorization")
	flag.BoolVar(&(opts.verbose), "verbose", false, "enable verbose output")
	flag.BoolVar(&(opts.includeTests), "include-tests", false, "include the test functions of local packages among the lifted functions.")
	flag.BoolVar(&(opts.visualize), "visualize", false, "render dot output to an image file")

	// Set up logging
	log.SetFlags(log.Ltime | log.Lshortfile)
}

func ParseArgs() {
	// Calling flag.Parse in init messes up unit tests.
	// See https://stackoverflow.com/questions/60235896/flag-provided-but-not-defined-test-v
	flag.Parse()

	validTask := false
	for _, task := range task {
		if task.flag == opts.task {
			validTask = true
			break
		}
	}

	if !validTask {
		log.Fatalf("Value \"%s\" is not valid for -task", opts.task)
	}

	if Opts().Task().IsCfgToDot() {
		opts.noColorize = true
	}
}

func (optInterface) AnalyzeAllFuncs() bool {
	return opts.function == "."
}

func (optInterface) OnVerbose(do func()) {
	if Opts().Verbose() {
		do()
	}
}
