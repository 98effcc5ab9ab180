package shape

import (
	"context"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify_PlainInputsMonoOutput(t *testing.T) {
	fn := func(a int, b string) float64 { return 0 }
	sig, err := Classify(fn)
	require.NoError(t, err)
	assert.False(t, sig.HasCoreArg)
	assert.Nil(t, sig.OptOutputsType)
	assert.Len(t, sig.InputTypes, 2)
	assert.Equal(t, ReturnMono, sig.ReturnKind)
	assert.Equal(t, 1, sig.NumRequiredOutputs())
}

func TestClassify_CoreArgAndError(t *testing.T) {
	fn := func(ctx context.Context, a int) (int, error) { return 0, nil }
	sig, err := Classify(fn)
	require.NoError(t, err)
	assert.True(t, sig.HasCoreArg)
	assert.True(t, sig.ReturnsError)
	assert.Equal(t, ReturnMono, sig.ReturnKind)
}

func TestClassify_OptionalOutputsStruct(t *testing.T) {
	type Outputs struct {
		Total *int
	}
	fn := func(ctx context.Context, outs *Outputs, a, b int) {}
	sig, err := Classify(fn)
	require.NoError(t, err)
	assert.True(t, sig.HasCoreArg)
	require.NotNil(t, sig.OptOutputsType)
	assert.Equal(t, "Outputs", sig.OptOutputsType.Name())
	assert.Len(t, sig.InputTypes, 2)
	assert.Equal(t, ReturnVoid, sig.ReturnKind)
	assert.Equal(t, 0, sig.NumRequiredOutputs())
}

func TestClassify_StructReturnIsMultipleRequiredOutputs(t *testing.T) {
	type Result struct {
		Score     float64
		Reasoning string
	}
	fn := func(a string) Result { return Result{} }
	sig, err := Classify(fn)
	require.NoError(t, err)
	assert.Equal(t, ReturnStruct, sig.ReturnKind)
	assert.Equal(t, 2, sig.NumRequiredOutputs())
}

func TestClassify_RejectsNonFunc(t *testing.T) {
	_, err := Classify(42)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid node shape")
}

func TestClassify_RejectsTooManyReturnValues(t *testing.T) {
	fn := func() (int, string, error) { return 0, "", nil }
	_, err := Classify(fn)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required-outputs")
}

func TestClassify_OptionalOutputsMustPrecedeInputs(t *testing.T) {
	type Outputs struct {
		Total *int
	}
	fn := func(a int, outs *Outputs) {}
	sig, err := Classify(fn)
	require.Error(t, err)
	assert.Nil(t, sig)
}

func TestValidateElementType_RejectsFuncChanUnsafe(t *testing.T) {
	assert.Error(t, ValidateElementType(reflect.TypeOf(func() {})))
	assert.Error(t, ValidateElementType(reflect.TypeOf(make(chan int))))
	assert.NoError(t, ValidateElementType(reflect.TypeOf(0)))
	assert.NoError(t, ValidateElementType(reflect.TypeOf("")))
}
