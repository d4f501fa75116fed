package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingStore struct {
	saved []interface{}
	err   error
}

func (s *recordingStore) Load(context.Context, string, interface{}) error { return ErrDocumentNotFound }

func (s *recordingStore) Save(_ context.Context, _ string, v interface{}) error {
	if s.err != nil {
		return s.err
	}
	s.saved = append(s.saved, v)
	return nil
}

func TestSaveSequencer_DropsOlderSnapshots(t *testing.T) {
	ctx := context.Background()
	store := &recordingStore{}
	var seq SaveSequencer

	v1, v2 := seq.Next(), seq.Next()
	require.NoError(t, seq.Save(ctx, store, KeyPerformance, v2, "two"))
	require.NoError(t, seq.Save(ctx, store, KeyPerformance, v1, "one"))
	assert.Equal(t, []interface{}{"two"}, store.saved)

	store.err = errors.New("disk full")
	v3 := seq.Next()
	require.Error(t, seq.Save(ctx, store, KeyPerformance, v3, "three"))

	store.err = nil
	require.NoError(t, seq.Save(ctx, store, KeyPerformance, v3, "three"))
	assert.Equal(t, []interface{}{"two", "three"}, store.saved)
}

func TestPersistError(t *testing.T) {
	err := error(&PersistError{Key: KeyStrategies, Err: errors.New("connection refused")})
	assert.True(t, IsPersistError(err))
	assert.True(t, IsPersistError(errors.Join(errors.New("other"), err)))
	assert.False(t, IsPersistError(errors.New("connection refused")))
	assert.EqualError(t, err, "persist strategies: connection refused")
}
