package ast

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
)

// keyword highlights control-flow keywords in pretty-printed output.
// Honors color.NoColor, which the CLI toggles through -no-colorize.
var keyword = color.New(color.FgHiBlue).SprintFunc()

// Print renders a statement tree as indented pseudo-code. Nested
// sequences print flat, so the structure of intermediate folds does not
// leak into the output.
func Print(s Statement) string {
	p := &printer{}
	p.stmt(s)
	return p.sb.String()
}

type printer struct {
	sb    strings.Builder
	depth int
}

func (p *printer) line(format string, args ...interface{}) {
	p.sb.WriteString(strings.Repeat("  ", p.depth))
	fmt.Fprintf(&p.sb, format, args...)
	p.sb.WriteByte('\n')
}

// block prints s indented one level deeper, as the body of a brace pair.
func (p *printer) block(s Statement) {
	p.depth++
	if s != nil {
		p.stmt(s)
	}
	p.depth--
}

func (p *printer) stmt(s Statement) {
	switch s := s.(type) {
	case *Sequence:
		for _, sub := range s.Statements {
			p.stmt(sub)
		}
	case *IfElse:
		p.line("%s (%s) {", keyword("if"), s.Cond)
		p.block(s.Then)
		if s.Else != nil {
			p.line("} %s {", keyword("else"))
			p.block(s.Else)
		}
		p.line("}")
	case *Loop:
		switch s.Kind {
		case PreTested:
			p.line("%s (%s) {", keyword("while"), s.Cond)
			p.block(s.Body)
			p.line("}")
		case PostTested:
			p.line("%s {", keyword("do"))
			p.block(s.Body)
			p.line("} %s (%s)", keyword("while"), s.Cond)
		}
	case *Break:
		if _, unconditional := s.Cond.(*TrueExpr); unconditional {
			p.line("%s", keyword("break"))
		} else {
			p.line("%s (%s) %s", keyword("if"), s.Cond, keyword("break"))
		}
	case *Assignment:
		p.line("%s = %s", s.LHS, s.RHS)
	case *ExprStmt:
		p.line("%s", s.E)
	default:
		panic(fmt.Errorf("cannot print statement of type %T", s))
	}
}
