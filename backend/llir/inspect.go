package llir

import (
	"fmt"
	"strings"

	"github.com/llir/llvm/asm"
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/types"

	"github.com/arc-language/core-emit/backend"
)

// Inspector parses textual IR with the llir assembler.
type Inspector struct{}

// Inspect parses the artifact at path and summarizes it.
func (Inspector) Inspect(path string) (*backend.Summary, error) {
	m, err := asm.ParseFile(path)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return Summarize(m), nil
}

// Summarize describes an in-memory llir module.
func Summarize(m *ir.Module) *backend.Summary {
	summary := &backend.Summary{SourceFilename: m.SourceFilename}
	for _, f := range m.Funcs {
		fs := backend.FunctionSummary{
			Name:        f.Name(),
			Params:      len(f.Params),
			Variadic:    f.Sig.Variadic,
			Return:      summarizeType(f.Sig.RetType),
			Declaration: len(f.Blocks) == 0,
		}
		for _, b := range f.Blocks {
			bs := backend.BlockSummary{Name: b.Name()}
			for _, inst := range b.Insts {
				bs.Instructions = append(bs.Instructions, backend.InstructionSummary{
					Opcode: opcodeName(fmt.Sprintf("%T", inst), "*ir.Inst"),
				})
			}
			if b.Term != nil {
				bs.Instructions = append(bs.Instructions, summarizeTerm(b.Term))
			}
			fs.Blocks = append(fs.Blocks, bs)
		}
		summary.Functions = append(summary.Functions, fs)
	}
	return summary
}

func summarizeType(t types.Type) backend.Type {
	switch t := t.(type) {
	case *types.VoidType:
		return backend.Void
	case *types.IntType:
		return backend.Int(int(t.BitSize))
	}
	return backend.Type{Kind: backend.OtherKind}
}

func summarizeTerm(term ir.Terminator) backend.InstructionSummary {
	ret, ok := term.(*ir.TermRet)
	if !ok {
		return backend.InstructionSummary{Opcode: opcodeName(fmt.Sprintf("%T", term), "*ir.Term")}
	}
	is := backend.InstructionSummary{Opcode: "ret"}
	if c, ok := ret.X.(*constant.Int); ok {
		is.Constant = &backend.ConstantSummary{
			Bits:  int(c.Typ.BitSize),
			Value: c.X.Uint64(),
		}
	}
	return is
}

// opcodeName turns "*ir.InstAdd" into "add".
func opcodeName(typeName, prefix string) string {
	return strings.ToLower(strings.TrimPrefix(typeName, prefix))
}
