package errors

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorString(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{"message only", New("boom"), "boom"},
		{"full", Wrap(io.EOF, "read").WithOperation("Load").WithComponent("dataset"), "dataset: Load: read: EOF"},
		{"formatted", Errorf("bad value %d", 3).WithComponent("config"), "config: bad value 3"},
		{"wrapf", Wrapf(io.ErrUnexpectedEOF, "line %d", 7), "line 7: unexpected EOF"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestWrapNil(t *testing.T) {
	assert.Nil(t, Wrap(nil, "x"))
	assert.Nil(t, Wrapf(nil, "x %d", 1))
}

func TestChain(t *testing.T) {
	err := Wrap(io.EOF, "read")
	assert.True(t, Is(err, io.EOF))
	assert.Equal(t, io.EOF, err.Unwrap())

	var target *Error
	require.True(t, As(error(err), &target))
	assert.Equal(t, "read", target.Message)
	assert.NotEmpty(t, target.StackTrace())
}
