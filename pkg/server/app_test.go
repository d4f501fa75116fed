package server

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShutdownClosesInReverseOrder(t *testing.T) {
	var order []string
	closer := func(name string, err error) Closer {
		return Closer{Name: name, Close: func() error {
			order = append(order, name)
			return err
		}}
	}

	a := New(nil, nil, WithClosers(
		closer("store", nil),
		closer("journal", errors.New("flush failed")),
		closer("publisher", nil),
	))
	require.NoError(t, a.Start())

	err := a.Shutdown(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "close journal: flush failed")
	assert.Equal(t, []string{"publisher", "journal", "store"}, order)
}
