package native

import (
	"fmt"

	"tinygo.org/x/go-llvm"

	"github.com/arc-language/core-emit/backend"
)

// Inspector reads bitcode or textual IR back through LLVM.
type Inspector struct{}

// Inspect parses the artifact at path in a private context.
func (Inspector) Inspect(path string) (*backend.Summary, error) {
	ctx := llvm.NewContext()
	if ctx.C == nil {
		return nil, fmt.Errorf("inspect: %w", backend.ErrNilHandle)
	}
	defer ctx.Dispose()

	buf, err := llvm.NewMemoryBufferFromFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	// ParseIR takes ownership of buf.
	mod, err := ctx.ParseIR(buf)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	defer mod.Dispose()

	summary := &backend.Summary{SourceFilename: sourceFileName(mod)}
	for fn := mod.FirstFunction(); !fn.IsNil(); fn = llvm.NextFunction(fn) {
		ft := fn.GlobalValueType()
		fs := backend.FunctionSummary{
			Name:        fn.Name(),
			Params:      ft.ParamTypesCount(),
			Variadic:    ft.IsFunctionVarArg(),
			Return:      summarizeType(ft.ReturnType()),
			Declaration: fn.IsDeclaration(),
		}
		// BasicBlocks indexes its first element, so walk the list instead:
		// declarations have no blocks.
		for bb := fn.FirstBasicBlock(); !bb.IsNil(); bb = llvm.NextBasicBlock(bb) {
			bs := backend.BlockSummary{Name: bb.AsValue().Name()}
			for inst := bb.FirstInstruction(); !inst.IsNil(); inst = llvm.NextInstruction(inst) {
				bs.Instructions = append(bs.Instructions, summarizeInstruction(inst))
			}
			fs.Blocks = append(fs.Blocks, bs)
		}
		summary.Functions = append(summary.Functions, fs)
	}
	return summary, nil
}

func summarizeType(t llvm.Type) backend.Type {
	switch t.TypeKind() {
	case llvm.VoidTypeKind:
		return backend.Void
	case llvm.IntegerTypeKind:
		return backend.Int(t.IntTypeWidth())
	}
	return backend.Type{Kind: backend.OtherKind}
}

func summarizeInstruction(inst llvm.Value) backend.InstructionSummary {
	op := inst.InstructionOpcode()
	if op != llvm.Ret {
		return backend.InstructionSummary{Opcode: fmt.Sprintf("op%d", int(op))}
	}

	is := backend.InstructionSummary{Opcode: "ret"}
	if inst.OperandsCount() > 0 {
		v := inst.Operand(0)
		if !v.IsAConstantInt().IsNil() {
			is.Constant = &backend.ConstantSummary{
				Bits:  v.Type().IntTypeWidth(),
				Value: v.ZExtValue(),
			}
		}
	}
	return is
}
