package backend

import (
	"fmt"
	"io"
)

// Summary is the shape of a parsed artifact.
type Summary struct {
	SourceFilename string
	Functions      []FunctionSummary
}

// FunctionSummary describes one function of a parsed module.
type FunctionSummary struct {
	Name        string
	Params      int
	Variadic    bool
	Return      Type
	Declaration bool
	Blocks      []BlockSummary
}

// BlockSummary lists the instructions of a basic block in order.
type BlockSummary struct {
	Name         string
	Instructions []InstructionSummary
}

// InstructionSummary records an opcode and, for returns, the returned constant.
type InstructionSummary struct {
	Opcode   string
	Constant *ConstantSummary
}

// ConstantSummary is an integer constant operand.
type ConstantSummary struct {
	Bits  int
	Value uint64
}

// Function returns the function named name, if present.
func (s *Summary) Function(name string) (*FunctionSummary, bool) {
	for i := range s.Functions {
		if s.Functions[i].Name == name {
			return &s.Functions[i], true
		}
	}
	return nil, false
}

// Write prints the summary in a stable, line-oriented form.
func (s *Summary) Write(w io.Writer) error {
	if s.SourceFilename != "" {
		if _, err := fmt.Fprintf(w, "source: %s\n", s.SourceFilename); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(w, "functions: %d\n", len(s.Functions)); err != nil {
		return err
	}
	for _, fn := range s.Functions {
		kind := "define"
		if fn.Declaration {
			kind = "declare"
		}
		if _, err := fmt.Fprintf(w, "%s %s @%s() params=%d variadic=%t\n",
			kind, fn.Return, fn.Name, fn.Params, fn.Variadic); err != nil {
			return err
		}
		for _, bb := range fn.Blocks {
			if _, err := fmt.Fprintf(w, "  %s:\n", bb.Name); err != nil {
				return err
			}
			for _, inst := range bb.Instructions {
				line := "    " + inst.Opcode
				if inst.Constant != nil {
					line += fmt.Sprintf(" i%d %d", inst.Constant.Bits, inst.Constant.Value)
				} else if inst.Opcode == "ret" {
					line += " void"
				}
				if _, err := fmt.Fprintln(w, line); err != nil {
					return err
				}
			}
		}
	}
	return nil
}
