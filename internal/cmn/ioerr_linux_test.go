package cmn

import (
	"fmt"
	"syscall"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsSevereIOErrorClassifiesStorageFaults(t *testing.T) {
	require.True(t, IsSevereIOError(syscall.ENOSPC))
	require.True(t, IsSevereIOError(fmt.Errorf("read: %w", syscall.EROFS)))
	require.False(t, IsSevereIOError(nil))
	require.False(t, IsSevereIOError(fmt.Errorf("unexpected EOF")))
}
