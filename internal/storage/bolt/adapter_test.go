package bolt

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kurihiro0119/github-mirror/internal/storage"
	"github.com/kurihiro0119/github-mirror/internal/storage/storagetest"
)

func TestBoltStorage(t *testing.T) {
	path := storagetest.PathPerTest(t.TempDir(), ".bolt")
	storagetest.Run(t, func(t *testing.T) storage.Store {
		s, err := NewBoltStorage(path(t))
		require.NoError(t, err)
		return s
	})
}

func TestBoltStorageIsExclusive(t *testing.T) {
	path := storagetest.PathPerTest(t.TempDir(), ".bolt")(t)
	s, err := NewBoltStorage(path)
	require.NoError(t, err)
	defer s.Close()

	_, err = NewBoltStorage(path)
	require.Error(t, err)
}
