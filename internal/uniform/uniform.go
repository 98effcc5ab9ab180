// Package uniform implements the type-erased node-registration surface
// (spec §6, original_source's api/uniform.hpp and detail/UNode.hpp): nodes
// declared by sizes (input count, required- and optional-output counts)
// rather than by a concrete Go function signature, whose callable exchanges
// values as []any across the boundary. This is the surface the out-of-scope
// C FFI shim would bind to, since a foreign caller has no way to hand Go a
// generically-typed function value.
//
// Internally a uniform node is still an ordinary engine.Node: NewNode builds
// a reflect.MakeFunc-backed callable whose declared shape (an optional
// pointer-to-struct-of-*any optional-outputs argument, N `any`-typed input
// parameters, a single `any` or struct-of-any required-output value) is
// classified by the same internal/shape rules every other node goes
// through. The uniform API is an adapter in front of engine.NewNode, not a
// second execution path.
package uniform

import (
	"context"
	"fmt"
	"reflect"

	"github.com/nilgate/gate/internal/domain"
	"github.com/nilgate/gate/internal/engine"
)

var (
	anyType     = reflect.TypeOf((*any)(nil)).Elem()
	contextType = reflect.TypeOf((*context.Context)(nil)).Elem()
	errorType   = reflect.TypeOf((*error)(nil)).Elem()
)

// EqualAny is the equality function uniform ports are created with. Two
// `any` values are considered equal only under ==. This is a restriction of
// the uniform layer (a typed Port[T] takes a caller-supplied equality
// function): a non-comparable dynamic value (a slice, map, or func boxed in
// the any) makes == panic when a later write is compared against it.
func EqualAny(a, b any) bool { return a == b }

// NewPort creates an independent `any`-typed port for use as a uniform
// node's input, or as an ordinary port a uniform node's output feeds into.
func NewPort(g *engine.Graph) *engine.Port[any] {
	return engine.NewGraphPort[any](g, EqualAny)
}

// Fn is a uniform node's callable. ins has length equal to the Spec's input
// count. reqOuts must have length equal to NumReqOutputs — a mismatch is
// reported as a *domain.ShapeMismatchError rather than silently truncated or
// zero-padded, since a type-erased callable has no compile-time arity check
// the way a classified Go function does. optOuts may be shorter than
// NumOptOutputs or nil; a missing or nil entry means "not produced this
// cycle", the same convention as a nil pointer field in a typed
// optional-outputs struct.
type Fn func(ctx context.Context, ins []any) (reqOuts []any, optOuts []any, err error)

// Spec declares a uniform node's shape by sizes rather than by a concrete Go
// signature (original_source's UNode.hpp declares a node's input, required-
// and optional-output counts on its Info struct; this is the Go shape of
// that declaration).
type Spec struct {
	ID             string
	NumInputs      int
	NumReqOutputs  int
	NumOptOutputs  int
	OutputNames    []string // len must equal NumReqOutputs
	OptOutputNames []string // len must equal NumOptOutputs
	Fn             Fn
}

// NewNode registers a uniform node against g, wiring inputs (each an
// `any`-typed port created by NewPort) as its input ports in order.
func NewNode(g *engine.Graph, spec Spec, inputs []*engine.Port[any]) (*engine.Node, error) {
	if len(inputs) != spec.NumInputs {
		return nil, domain.NewConfigError(spec.ID,
			fmt.Sprintf("uniform spec declares %d inputs, got %d input ports",
				spec.NumInputs, len(inputs)), nil)
	}

	anyInputs := make([]engine.AnyPort, len(inputs))
	for i, p := range inputs {
		anyInputs[i] = p
	}

	return engine.NewNode(g, engine.NodeSpec{
		ID:             spec.ID,
		Fn:             buildCallable(spec),
		Inputs:         anyInputs,
		OutputNames:    spec.OutputNames,
		OptOutputNames: spec.OptOutputNames,
	})
}

// buildCallable constructs, via reflect.MakeFunc, a func value whose
// declared signature internal/shape classifies into exactly the shape spec
// describes, and whose body adapts between that signature's reflect.Values
// and spec.Fn's []any values.
func buildCallable(spec Spec) any {
	inTypes := []reflect.Type{contextType}

	var optStructType reflect.Type
	if spec.NumOptOutputs > 0 {
		optStructType = reflect.StructOf(optFields(spec.NumOptOutputs))
		inTypes = append(inTypes, reflect.PointerTo(optStructType))
	}
	for i := 0; i < spec.NumInputs; i++ {
		inTypes = append(inTypes, anyType)
	}

	var reqStructType reflect.Type
	var outTypes []reflect.Type
	switch {
	case spec.NumReqOutputs == 1:
		outTypes = append(outTypes, anyType)
	case spec.NumReqOutputs > 1:
		reqStructType = reflect.StructOf(reqFields(spec.NumReqOutputs))
		outTypes = append(outTypes, reqStructType)
	}
	outTypes = append(outTypes, errorType)

	funcType := reflect.FuncOf(inTypes, outTypes, false)

	impl := func(args []reflect.Value) []reflect.Value {
		idx := 0
		ctx := args[idx].Interface().(context.Context)
		idx++

		var optPtr reflect.Value
		if optStructType != nil {
			optPtr = args[idx]
			idx++
		}

		ins := make([]any, spec.NumInputs)
		for i := 0; i < spec.NumInputs; i++ {
			ins[i] = args[idx+i].Interface()
		}

		reqOuts, optOuts, err := spec.Fn(ctx, ins)

		if optStructType != nil {
			writeOptOutputs(optPtr, optOuts, spec.NumOptOutputs)
		}

		if err == nil && len(reqOuts) != spec.NumReqOutputs {
			err = &domain.ShapeMismatchError{
				NodeID:   spec.ID,
				Expected: spec.NumReqOutputs,
				Got:      len(reqOuts),
			}
		}

		return requiredResults(spec.NumReqOutputs, reqStructType, reqOuts, err)
	}

	return reflect.MakeFunc(funcType, impl).Interface()
}

func optFields(n int) []reflect.StructField {
	fields := make([]reflect.StructField, n)
	for i := range fields {
		fields[i] = reflect.StructField{
			Name: fmt.Sprintf("Opt%d", i),
			Type: reflect.PointerTo(anyType),
		}
	}
	return fields
}

func reqFields(n int) []reflect.StructField {
	fields := make([]reflect.StructField, n)
	for i := range fields {
		fields[i] = reflect.StructField{
			Name: fmt.Sprintf("Req%d", i),
			Type: anyType,
		}
	}
	return fields
}

// writeOptOutputs fills optPtr's (a *struct-of-*any) fields from optOuts. A
// missing or nil entry leaves the corresponding field nil — "not produced
// this cycle" — exactly as engine.Node.writeOptOutputs interprets a nil
// pointer field on a typed optional-outputs struct.
func writeOptOutputs(optPtr reflect.Value, optOuts []any, n int) {
	elem := optPtr.Elem()
	for i := 0; i < n; i++ {
		var v any
		if i < len(optOuts) {
			v = optOuts[i]
		}
		if v == nil {
			continue
		}
		boxed := reflect.New(anyType)
		boxed.Elem().Set(reflect.ValueOf(v))
		elem.Field(i).Set(boxed)
	}
}

// requiredResults builds the reflect.Value slice matching the return types
// buildCallable declared: zero, one, or a struct-of-any value, followed
// always by the trailing error.
func requiredResults(numReq int, reqStructType reflect.Type, reqOuts []any, err error) []reflect.Value {
	var results []reflect.Value

	switch {
	case numReq == 1:
		rv := reflect.New(anyType).Elem()
		if err == nil && len(reqOuts) > 0 && reqOuts[0] != nil {
			rv.Set(reflect.ValueOf(reqOuts[0]))
		}
		results = append(results, rv)
	case numReq > 1:
		sv := reflect.New(reqStructType).Elem()
		if err == nil {
			for i := 0; i < numReq; i++ {
				if reqOuts[i] == nil {
					continue
				}
				sv.Field(i).Set(reflect.ValueOf(reqOuts[i]))
			}
		}
		results = append(results, sv)
	}

	errRV := reflect.New(errorType).Elem()
	if err != nil {
		errRV.Set(reflect.ValueOf(err))
	}
	results = append(results, errRV)

	return results
}
