package logger

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestSetLevel(t *testing.T) {
	original := defaultLogger.Logger.GetLevel()
	defer defaultLogger.Logger.SetLevel(original)

	assert.NoError(t, SetLevel("warn"))
	assert.Equal(t, logrus.WarnLevel, defaultLogger.Logger.GetLevel())
	assert.False(t, defaultLogger.Logger.IsLevelEnabled(logrus.InfoLevel))

	assert.NoError(t, SetLevel("DEBUG"))
	assert.Equal(t, logrus.DebugLevel, defaultLogger.Logger.GetLevel())

	assert.Error(t, SetLevel("loud"))
	assert.Equal(t, logrus.DebugLevel, defaultLogger.Logger.GetLevel(), "无效级别不改变当前级别")
}
