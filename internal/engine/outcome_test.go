package engine

import (
	"errors"
	"fmt"
	"testing"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTry(t *testing.T) {
	assert.Equal(t, Succeeded, Try("render", nil).Status)
	assert.True(t, Try("render", nil).OK())

	o := Try("parallel scale", fmt.Errorf("view: %w", ErrNotSupported))
	assert.Equal(t, NotApplicable, o.Status)
	assert.False(t, o.OK())

	o = Try("scalar bar", errors.New("boom"))
	assert.Equal(t, Failed, o.Status)
	assert.Equal(t, "failed", o.Status.String())
}

func TestOutcome_Log(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	entry := logrus.NewEntry(logger)

	Try("ok", nil).Log(entry)
	assert.Empty(t, hook.AllEntries())

	Try("skip", ErrNotSupported).Log(entry)
	require.Len(t, hook.AllEntries(), 1)
	assert.Equal(t, logrus.DebugLevel, hook.LastEntry().Level)

	Try("bar", errors.New("boom")).Log(entry)
	require.Len(t, hook.AllEntries(), 2)
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
	assert.Equal(t, "bar", hook.LastEntry().Data["op"])
	assert.Contains(t, hook.LastEntry().Message, "boom")
}
