package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppErrorMessage(t *testing.T) {
	cause := errors.New("exit status 128")
	err := NewMirrorOpError("foo", "clone", cause)

	assert.Equal(t, "MIRROR_OP_FAILED: foo: clone failed: exit status 128", err.Error())
	assert.ErrorIs(t, err, cause)
}

func TestPredicatesFollowWrapping(t *testing.T) {
	wrapped := fmt.Errorf("run: %w", NewRemoteUnavailableError("octocat", errors.New("401")))

	assert.True(t, IsRemoteUnavailable(wrapped))
	assert.False(t, IsMirrorOpFailed(wrapped))
	assert.Equal(t, ErrCodeRemoteUnavailable, CodeOf(wrapped))

	assert.True(t, IsConfigInvalid(NewConfigError("database", "is required")))
	assert.True(t, IsNotFound(NewNotFoundError("mirror foo")))
	assert.True(t, IsConflict(NewConflictError("busy")))
	assert.Equal(t, ErrCodeInternal, CodeOf(errors.New("plain")))
}

func TestWithRepoNamesPathErrors(t *testing.T) {
	cause := errors.New("exit status 128")
	err := WithRepo(NewMirrorPathError("/srv/git/foo.git", "fetch", cause), "foo")

	var appErr *AppError
	assert.True(t, errors.As(err, &appErr))
	assert.Equal(t, "foo", appErr.Repo)
	assert.Equal(t, "/srv/git/foo.git", appErr.Path)
	assert.Equal(t, "MIRROR_OP_FAILED: foo: fetch failed (/srv/git/foo.git): exit status 128", err.Error())
	assert.ErrorIs(t, err, cause)

	kept := NewStorageError("bar", "unable to save", cause)
	assert.Same(t, kept, WithRepo(kept, "foo"))

	plain := errors.New("boom")
	assert.Equal(t, plain, WithRepo(plain, "foo"))
}
