package contract

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"

	"github.com/mitchellh/mapstructure"
)

// parameters lists the positional argument names for each method.
var parameters = map[string][]string{
	MethodTransfer:   {"to", "amount"},
	MethodGetBalance: {"address"},
}

// DecodeArgs converts a method name and its positional arguments into an
// operation. A single map argument is decoded as named arguments.
func DecodeArgs(method string, args ...any) (Operation, error) {
	names, exists := parameters[method]
	if !exists {
		return nil, fmt.Errorf("%w: %q", ErrMethodNotFound, method)
	}

	if len(args) == 1 {
		if named, ok := args[0].(map[string]any); ok {
			return DecodeOperation(method, named)
		}
	}

	if len(args) != len(names) {
		return nil, fmt.Errorf("%w: %s expects %d arguments, got %d", ErrInvalidArguments, method, len(names), len(args))
	}

	named := make(map[string]any, len(names))
	for i, name := range names {
		named[name] = args[i]
	}

	return DecodeOperation(method, named)
}

// DecodeOperation converts a method name and a set of named arguments into
// an operation. Unknown argument names, missing arguments and amounts that
// are not whole non-negative numbers are rejected.
func DecodeOperation(method string, args map[string]any) (Operation, error) {
	switch method {
	case MethodTransfer:
		var op Transfer
		if err := decode(method, args, &op); err != nil {
			return nil, err
		}
		return op, nil

	case MethodGetBalance:
		var op GetBalance
		if err := decode(method, args, &op); err != nil {
			return nil, err
		}
		return op, nil
	}

	return nil, fmt.Errorf("%w: %q", ErrMethodNotFound, method)
}

// decode applies the named arguments to the operation value.
func decode(method string, args map[string]any, op any) error {
	var md mapstructure.Metadata

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:  wholeAmounts,
		ErrorUnused: true,
		Metadata:    &md,
		Result:      op,
	})
	if err != nil {
		return fmt.Errorf("constructing decoder: %w", err)
	}

	if err := decoder.Decode(args); err != nil {
		return fmt.Errorf("%w: %s: %s", ErrInvalidArguments, method, err)
	}

	if len(md.Unset) > 0 {
		return fmt.Errorf("%w: %s: missing %v", ErrInvalidArguments, method, md.Unset)
	}

	return nil
}

// wholeAmounts converts json numbers into amounts exactly and rejects
// floating point values with a fractional part or outside the uint64 range
// before they are truncated into an amount.
func wholeAmounts(from reflect.Type, to reflect.Type, data any) (any, error) {
	if n, ok := data.(json.Number); ok {
		switch to.Kind() {
		case reflect.Uint64:
			v, err := strconv.ParseUint(n.String(), 10, 64)
			if err != nil {
				return nil, fmt.Errorf("%s is not a whole non-negative number", n)
			}
			return v, nil

		case reflect.String:
			return nil, fmt.Errorf("%s is not a string", n)
		}
		return data, nil
	}

	if to.Kind() != reflect.Uint64 {
		return data, nil
	}

	switch from.Kind() {
	case reflect.Float32, reflect.Float64:
		f := reflect.ValueOf(data).Float()
		if f < 0 || f != math.Trunc(f) || f >= math.MaxUint64 {
			return nil, fmt.Errorf("%v is not a whole non-negative number", f)
		}
	}

	return data, nil
}
