package native

import (
	"fmt"
	"os"
	"sync"

	"go.uber.org/zap"
	"tinygo.org/x/go-llvm"
)

var (
	targetOnce sync.Once
	targetErr  error
)

func initNativeTarget() error {
	targetOnce.Do(func() {
		if err := llvm.InitializeNativeTarget(); err != nil {
			targetErr = fmt.Errorf("initialize native target: %w", err)
			return
		}
		if err := llvm.InitializeNativeAsmPrinter(); err != nil {
			targetErr = fmt.Errorf("initialize native asm printer: %w", err)
		}
	})
	return targetErr
}

// emitObject compiles mod for the host triple and writes an object file.
func emitObject(mod llvm.Module, path string) error {
	if err := initNativeTarget(); err != nil {
		return err
	}

	triple := llvm.DefaultTargetTriple()
	target, err := llvm.GetTargetFromTriple(triple)
	if err != nil {
		return fmt.Errorf("target %s: %w", triple, err)
	}

	tm := target.CreateTargetMachine(triple, "", "",
		llvm.CodeGenLevelDefault, llvm.RelocDefault, llvm.CodeModelDefault)
	defer tm.Dispose()

	td := tm.CreateTargetData()
	defer td.Dispose()

	mod.SetTarget(triple)
	mod.SetDataLayout(td.String())

	buf, err := tm.EmitToMemoryBuffer(mod, llvm.ObjectFile)
	if err != nil {
		return fmt.Errorf("emit object: %w", err)
	}
	defer buf.Dispose()

	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("write object: %w", err)
	}
	Logger().Debug("object emitted", zap.String("triple", triple), zap.String("path", path))
	return nil
}
