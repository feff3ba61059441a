package llir

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

func runVariant(t *testing.T, variant session.Variant) (*session.Result, *backend.Summary) {
	t.Helper()
	opts := session.DefaultOptions()
	opts.Variant = variant
	opts.Backend = Name
	opts.Format = "ll"
	opts.WorkDir = t.TempDir()

	res, err := session.New(New(), opts, nil).Run(context.Background())
	require.NoError(t, err)

	info, err := os.Stat(res.Output)
	require.NoError(t, err)
	require.Positive(t, info.Size())

	summary, err := Inspector{}.Inspect(res.Output)
	require.NoError(t, err)
	return res, summary
}

func TestConstVariant(t *testing.T) {
	res, summary := runVariant(t, session.VariantConst)
	assert.Equal(t, "main.ll", filepath.Base(res.Output))

	require.Len(t, summary.Functions, 1)
	fn := summary.Functions[0]
	assert.Equal(t, "main", fn.Name)
	assert.Zero(t, fn.Params)
	assert.False(t, fn.Variadic)
	assert.Equal(t, backend.Int(8), fn.Return)

	require.Len(t, fn.Blocks, 1)
	require.Len(t, fn.Blocks[0].Instructions, 1)
	inst := fn.Blocks[0].Instructions[0]
	assert.Equal(t, "ret", inst.Opcode)
	require.NotNil(t, inst.Constant)
	assert.Equal(t, 8, inst.Constant.Bits)
	assert.EqualValues(t, 9, inst.Constant.Value)
}

func TestVoidVariant(t *testing.T) {
	_, summary := runVariant(t, session.VariantVoid)

	require.Len(t, summary.Functions, 1)
	fn := summary.Functions[0]
	assert.Equal(t, backend.Void, fn.Return)
	require.Len(t, fn.Blocks, 1)
	require.Len(t, fn.Blocks[0].Instructions, 1)
	assert.Equal(t, "ret", fn.Blocks[0].Instructions[0].Opcode)
	assert.Nil(t, fn.Blocks[0].Instructions[0].Constant)
}

func TestDeclareVariant(t *testing.T) {
	_, summary := runVariant(t, session.VariantDeclare)

	require.Len(t, summary.Functions, 1)
	fn := summary.Functions[0]
	assert.Equal(t, "main", fn.Name)
	assert.True(t, fn.Declaration)
	assert.Empty(t, fn.Blocks)
}

func TestEmptyVariant(t *testing.T) {
	_, summary := runVariant(t, session.VariantEmpty)
	assert.Empty(t, summary.Functions)
}

func TestRerunIsDeterministic(t *testing.T) {
	opts := session.DefaultOptions()
	opts.Format = "ll"
	opts.WorkDir = t.TempDir()

	first, err := session.New(New(), opts, nil).Run(context.Background())
	require.NoError(t, err)
	a, err := os.ReadFile(first.Output)
	require.NoError(t, err)

	second, err := session.New(New(), opts, nil).Run(context.Background())
	require.NoError(t, err)
	b, err := os.ReadFile(second.Output)
	require.NoError(t, err)

	assert.Equal(t, first.Output, second.Output)
	assert.Equal(t, a, b)
}

func TestConfiguredReturnType(t *testing.T) {
	opts := session.DefaultOptions()
	opts.Format = "ll"
	opts.ReturnType = "i32"
	opts.Value = 70000
	opts.WorkDir = t.TempDir()

	res, err := session.New(New(), opts, nil).Run(context.Background())
	require.NoError(t, err)

	summary, err := Inspector{}.Inspect(res.Output)
	require.NoError(t, err)
	c := summary.Functions[0].Blocks[0].Instructions[0].Constant
	require.NotNil(t, c)
	assert.Equal(t, 32, c.Bits)
	assert.EqualValues(t, 70000, c.Value)
}

func TestBitcodeIsUnsupported(t *testing.T) {
	opts := session.DefaultOptions()
	opts.WorkDir = t.TempDir()

	_, err := session.New(New(), opts, nil).Run(context.Background())
	assert.ErrorIs(t, err, backend.ErrUnsupportedFormat)
}

func TestBuilderChecksReturnType(t *testing.T) {
	be := New()
	ctx, err := be.NewContext(false)
	require.NoError(t, err)
	defer ctx.Release()

	mod, err := ctx.NewModule("main")
	require.NoError(t, err)
	defer mod.Release()

	b, err := ctx.NewBuilder()
	require.NoError(t, err)
	defer b.Release()

	sig, err := ctx.FunctionType(backend.Int(8))
	require.NoError(t, err)
	fn, err := mod.AddFunction(backend.FunctionDecl{Name: "main", Signature: sig, HasBody: true})
	require.NoError(t, err)

	assert.Error(t, b.ReturnVoid(), "not positioned yet")

	require.NoError(t, b.AppendBlock(fn, "entry"))
	assert.ErrorIs(t, b.ReturnVoid(), backend.ErrInvalidType)
	assert.ErrorIs(t, b.ReturnConst(backend.Int(16), 1), backend.ErrInvalidType)
	assert.ErrorIs(t, b.ReturnConst(backend.Int(8), 300), backend.ErrInvalidType)

	// The block has no terminator yet.
	assert.ErrorIs(t, mod.Verify(), backend.ErrVerify)

	require.NoError(t, b.ReturnConst(backend.Int(8), 9))
	assert.NoError(t, mod.Verify())
}

func TestAddFunctionRejectsDuplicatesAndForeignSignatures(t *testing.T) {
	be := New()
	ctx, err := be.NewContext(false)
	require.NoError(t, err)
	other, err := be.NewContext(false)
	require.NoError(t, err)

	mod, err := ctx.NewModule("main")
	require.NoError(t, err)

	sig, err := ctx.FunctionType(backend.Void)
	require.NoError(t, err)
	_, err = mod.AddFunction(backend.FunctionDecl{Name: "main", Signature: sig})
	require.NoError(t, err)

	_, err = mod.AddFunction(backend.FunctionDecl{Name: "main", Signature: sig})
	assert.Error(t, err)

	foreign, err := other.FunctionType(backend.Void)
	require.NoError(t, err)
	_, err = mod.AddFunction(backend.FunctionDecl{Name: "start", Signature: foreign})
	assert.Error(t, err)
}

func TestReleasedContextRefusesWork(t *testing.T) {
	ctx, err := New().NewContext(false)
	require.NoError(t, err)
	require.NoError(t, ctx.Release())

	_, err = ctx.NewModule("main")
	assert.ErrorIs(t, err, backend.ErrReleased)
	_, err = ctx.FunctionType(backend.Void)
	assert.ErrorIs(t, err, backend.ErrReleased)
}

func TestSourceFilename(t *testing.T) {
	_, summary := runVariant(t, session.VariantEmpty)
	assert.Equal(t, "main", summary.SourceFilename)

	opts := session.DefaultOptions()
	opts.Backend = Name
	opts.Format = "ll"
	opts.SourceFilename = "main.ura"
	opts.WorkDir = t.TempDir()

	res, err := session.New(New(), opts, nil).Run(context.Background())
	require.NoError(t, err)

	data, err := os.ReadFile(res.Output)
	require.NoError(t, err)
	assert.Contains(t, string(data), `source_filename = "main.ura"`)

	summary, err = Inspector{}.Inspect(res.Output)
	require.NoError(t, err)
	assert.Equal(t, "main.ura", summary.SourceFilename)
}
