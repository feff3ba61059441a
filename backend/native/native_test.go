package native

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arc-language/core-emit/backend"
	"github.com/arc-language/core-emit/session"
)

func emit(t *testing.T, mutate func(*session.Options)) *session.Result {
	t.Helper()
	opts := session.DefaultOptions()
	opts.WorkDir = t.TempDir()
	if mutate != nil {
		mutate(&opts)
	}
	res, err := session.New(New(), opts, nil).Run(context.Background())
	require.NoError(t, err)
	return res
}

func inspect(t *testing.T, path string) *backend.Summary {
	t.Helper()
	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Positive(t, info.Size())

	summary, err := Inspector{}.Inspect(path)
	require.NoError(t, err)
	return summary
}

func TestDefaultRunWritesMainBC(t *testing.T) {
	res := emit(t, nil)
	assert.Equal(t, "main.bc", filepath.Base(res.Output))
	assert.Equal(t, backend.FormatBitcode, res.Format)

	summary := inspect(t, res.Output)
	require.Len(t, summary.Functions, 1)

	fn := summary.Functions[0]
	assert.Equal(t, "main", fn.Name)
	assert.Zero(t, fn.Params)
	assert.False(t, fn.Variadic)
	assert.False(t, fn.Declaration)
	assert.Equal(t, backend.Int(8), fn.Return)

	require.Len(t, fn.Blocks, 1)
	assert.Equal(t, session.EntryBlockName, fn.Blocks[0].Name)
	require.Len(t, fn.Blocks[0].Instructions, 1)

	ret := fn.Blocks[0].Instructions[0]
	assert.Equal(t, "ret", ret.Opcode)
	require.NotNil(t, ret.Constant)
	assert.Equal(t, 8, ret.Constant.Bits)
	assert.EqualValues(t, 9, ret.Constant.Value)
}

func TestVoidVariant(t *testing.T) {
	res := emit(t, func(o *session.Options) { o.Variant = session.VariantVoid })

	summary := inspect(t, res.Output)
	require.Len(t, summary.Functions, 1)
	fn := summary.Functions[0]
	assert.Equal(t, backend.Void, fn.Return)
	require.Len(t, fn.Blocks, 1)
	require.Len(t, fn.Blocks[0].Instructions, 1)
	assert.Equal(t, "ret", fn.Blocks[0].Instructions[0].Opcode)
	assert.Nil(t, fn.Blocks[0].Instructions[0].Constant)
}

func TestDeclareVariant(t *testing.T) {
	res := emit(t, func(o *session.Options) { o.Variant = session.VariantDeclare })

	summary := inspect(t, res.Output)
	require.Len(t, summary.Functions, 1)
	fn := summary.Functions[0]
	assert.Equal(t, "main", fn.Name)
	assert.True(t, fn.Declaration)
	assert.Zero(t, fn.Params)
	assert.False(t, fn.Variadic)
	assert.Equal(t, backend.Void, fn.Return)
	assert.Empty(t, fn.Blocks)
}

func TestEmptyVariant(t *testing.T) {
	res := emit(t, func(o *session.Options) { o.Variant = session.VariantEmpty })

	summary := inspect(t, res.Output)
	assert.Empty(t, summary.Functions)
}

func TestGlobalContext(t *testing.T) {
	res := emit(t, func(o *session.Options) { o.GlobalContext = true })

	summary := inspect(t, res.Output)
	require.Len(t, summary.Functions, 1)
	assert.Equal(t, "main", summary.Functions[0].Name)
}

func TestRerunOverwritesDeterministically(t *testing.T) {
	dir := t.TempDir()
	setDir := func(o *session.Options) { o.WorkDir = dir }

	first := emit(t, setDir)
	a, err := os.ReadFile(first.Output)
	require.NoError(t, err)

	second := emit(t, setDir)
	b, err := os.ReadFile(second.Output)
	require.NoError(t, err)

	assert.Equal(t, first.Output, second.Output)
	assert.Equal(t, a, b)
}

func TestTextualIR(t *testing.T) {
	res := emit(t, func(o *session.Options) {
		o.Format = "ll"
		o.Dump = true
	})
	assert.Equal(t, "main.ll", filepath.Base(res.Output))
	assert.Contains(t, res.IR, "define i8 @main()")
	assert.Contains(t, res.IR, "ret i8 9")

	data, err := os.ReadFile(res.Output)
	require.NoError(t, err)
	assert.Equal(t, res.IR, string(data))

	summary := inspect(t, res.Output)
	require.Len(t, summary.Functions, 1)
}

func TestObjectFile(t *testing.T) {
	res := emit(t, func(o *session.Options) { o.Format = "obj" })
	assert.Equal(t, "main.o", filepath.Base(res.Output))
	assert.Positive(t, res.Size)
}

func TestWriteFailureIsReported(t *testing.T) {
	dir := t.TempDir()
	// A directory in place of the output file makes the create fail.
	require.NoError(t, os.Mkdir(filepath.Join(dir, "main.bc"), 0755))

	opts := session.DefaultOptions()
	opts.WorkDir = dir

	_, err := session.New(New(), opts, nil).Run(context.Background())
	require.Error(t, err)

	var stepErr *session.StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, session.StepSerialize, stepErr.Step)
}

func TestModuleReleasedAfterContextIsRefused(t *testing.T) {
	ctx, err := New().NewContext(false)
	require.NoError(t, err)

	mod, err := ctx.NewModule("main")
	require.NoError(t, err)

	require.NoError(t, ctx.Release())
	assert.Error(t, mod.Release())
}

func TestReleaseIsIdempotent(t *testing.T) {
	ctx, err := New().NewContext(false)
	require.NoError(t, err)
	mod, err := ctx.NewModule("main")
	require.NoError(t, err)
	b, err := ctx.NewBuilder()
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		assert.NoError(t, b.Release())
		assert.NoError(t, mod.Release())
		assert.NoError(t, ctx.Release())
	}
}

func TestBuilderChecksReturnType(t *testing.T) {
	ctx, err := New().NewContext(false)
	require.NoError(t, err)
	defer ctx.Release()

	mod, err := ctx.NewModule("main")
	require.NoError(t, err)
	defer mod.Release()

	b, err := ctx.NewBuilder()
	require.NoError(t, err)
	defer b.Release()

	sig, err := ctx.FunctionType(backend.Void)
	require.NoError(t, err)
	fn, err := mod.AddFunction(backend.FunctionDecl{Name: "main", Signature: sig, HasBody: true})
	require.NoError(t, err)

	_, err = mod.AddFunction(backend.FunctionDecl{Name: "main", Signature: sig, HasBody: true})
	assert.Error(t, err, "duplicate name")

	require.NoError(t, b.AppendBlock(fn, "entry"))
	assert.ErrorIs(t, b.ReturnConst(backend.Int(8), 9), backend.ErrInvalidType)

	// An unterminated block fails verification.
	assert.ErrorIs(t, mod.Verify(), backend.ErrVerify)

	require.NoError(t, b.ReturnVoid())
	assert.NoError(t, mod.Verify())
}

func TestSignatureFromOtherContextIsRefused(t *testing.T) {
	a, err := New().NewContext(false)
	require.NoError(t, err)
	defer a.Release()
	b, err := New().NewContext(false)
	require.NoError(t, err)
	defer b.Release()

	mod, err := a.NewModule("main")
	require.NoError(t, err)
	defer mod.Release()

	sig, err := b.FunctionType(backend.Void)
	require.NoError(t, err)
	_, err = mod.AddFunction(backend.FunctionDecl{Name: "main", Signature: sig})
	assert.Error(t, err)
}

func TestSourceFilename(t *testing.T) {
	res := emit(t, nil)
	assert.Equal(t, "main", inspect(t, res.Output).SourceFilename)

	res = emit(t, func(o *session.Options) { o.SourceFilename = "main.ura" })
	assert.Equal(t, "main.ura", inspect(t, res.Output).SourceFilename)

	res = emit(t, func(o *session.Options) {
		o.SourceFilename = "main.ura"
		o.Variant = session.VariantEmpty
		o.Format = "ll"
		o.Dump = true
	})
	assert.Contains(t, res.IR, `source_filename = "main.ura"`)
	assert.Equal(t, "main.ura", inspect(t, res.Output).SourceFilename)
}
