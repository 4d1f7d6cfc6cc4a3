package errors

import (
	stderrors "errors"
	"testing"

	"pvcapacity/domain/core"

	"github.com/stretchr/testify/assert"
)

func TestWrap_KeepsCodeAndCause(t *testing.T) {
	base := WithCode(CodeOutputCollision, core.NewOutputCollisionError("mc_run"))
	wrapped := Wrap(base, "driver aborted")

	assert.Equal(t, CodeOutputCollision, GetCode(wrapped))
	assert.True(t, core.IsOutputCollision(wrapped))
	assert.Contains(t, wrapped.Error(), "driver aborted")
}

func TestWrap_PlainErrorIsInternal(t *testing.T) {
	wrapped := Wrapf(stderrors.New("boom"), "step %d", 3)

	assert.Equal(t, CodeInternalError, GetCode(wrapped))
	assert.Equal(t, "step 3: boom", wrapped.Error())
}

func TestWrap_Nil(t *testing.T) {
	assert.Nil(t, Wrap(nil, "ignored"))
	assert.Nil(t, WithCode(CodeConfigInvalid, nil))
	assert.Equal(t, "UNKNOWN", GetCode(stderrors.New("x")))
}
