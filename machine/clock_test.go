package machine

import (
	"encoding/binary"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type propertyStore struct {
	Store
	sync.Mutex
	props    map[string][]byte
	failures int
}

func (s *propertyStore) WriteProperty(key, val []byte) error {
	s.Lock()
	defer s.Unlock()
	if s.failures > 0 {
		s.failures--
		return errors.New("store closed")
	}
	s.props[string(key)] = val
	return nil
}

func (s *propertyStore) ReadProperty(key []byte) ([]byte, error) {
	s.Lock()
	defer s.Unlock()
	return s.props[string(key)], nil
}

func TestClock(t *testing.T) {
	s := &propertyStore{props: make(map[string][]byte)}
	future := time.Now().Add(time.Hour)
	s.props[clockStorePropertyKey] = binary.BigEndian.AppendUint64(nil, uint64(future.UnixNano()))

	clock, err := NewClock(s)
	require.NoError(t, err)

	last := clock.Now()
	assert.True(t, last.After(future))
	for i := 0; i < 100; i++ {
		now := clock.Now()
		assert.True(t, now.After(last))
		last = now
	}
	stored := binary.BigEndian.Uint64(s.props[clockStorePropertyKey])
	assert.Equal(t, uint64(last.UnixNano()), stored)

	empty, err := NewClock(&propertyStore{props: make(map[string][]byte)})
	require.NoError(t, err)
	assert.False(t, empty.Now().IsZero())
}

func TestClockRetriesWrite(t *testing.T) {
	s := &propertyStore{props: make(map[string][]byte)}
	clock, err := NewClock(s)
	require.NoError(t, err)

	s.failures = 2
	now := clock.Now()
	assert.Equal(t, 0, s.failures)
	assert.Equal(t, uint64(now.UnixNano()), binary.BigEndian.Uint64(s.props[clockStorePropertyKey]))
}
