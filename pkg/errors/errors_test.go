package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestError_Error(t *testing.T) {
	e := New(ErrCodeConfig, "bad config")
	assert.Equal(t, "[CONFIG_ERROR] bad config", e.Error())

	w := Wrap(ErrCodeBackend, "write failed", stderrors.New("disk full"))
	assert.Equal(t, "[BACKEND_ERROR] write failed: disk full", w.Error())
}

func TestIs_WrappedChain(t *testing.T) {
	inner := RemoteFailure("snapshot", "snap-1", "Failed")
	outer := fmt.Errorf("phase backup: %w", inner)

	assert.True(t, Is(outer, ErrCodeRemoteFailure))
	assert.False(t, Is(outer, ErrCodeTimeout))
	assert.False(t, Is(stderrors.New("plain"), ErrCodeRemoteFailure))
	assert.Equal(t, ErrCodeRemoteFailure, CodeOf(outer))
	assert.Equal(t, ErrorCode(""), CodeOf(nil))
}

func TestTimeoutScopes(t *testing.T) {
	cmd := CommandTimeout("aura-cli instance get x", 5*time.Second, "", "")
	wait := WaitTimeout("instance", "x", time.Minute, "loading")

	assert.Equal(t, ErrCodeTimeout, cmd.Code)
	assert.Equal(t, ErrCodeTimeout, wait.Code)
	assert.Equal(t, ScopeCommand, cmd.Details["scope"])
	assert.Equal(t, ScopeOperation, wait.Details["scope"])
	assert.Equal(t, "loading", wait.Details["last_status"])
}

func TestCommandFailed_Details(t *testing.T) {
	e := CommandFailed("aura-cli x", 2, "out", "err", nil)

	assert.Equal(t, 2, e.Details["exit_code"])
	assert.Equal(t, "out", e.Details["stdout"])
	assert.Equal(t, "err", e.Details["stderr"])
	assert.Contains(t, e.Error(), "exited with code 2")
}

func TestWithDetail_NilMap(t *testing.T) {
	e := &Error{Code: ErrCodeConfig, Message: "x"}
	e.WithDetail("environment", "prod").WithDetails(map[string]interface{}{"keys": []string{"prod"}})

	assert.Equal(t, "prod", e.Details["environment"])
	assert.Equal(t, []string{"prod"}, e.Details["keys"])
}
