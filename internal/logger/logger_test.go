package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromContext_TagsRequestID(t *testing.T) {
	var buf bytes.Buffer
	l := New("debug", &buf)

	ctx := WithRequestID(context.Background(), "rid-1")
	FromContext(ctx, l).Info("hello")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "rid-1", line["request_id"])
	assert.Equal(t, "hello", line["msg"])
}

func TestFromContext_Unknown(t *testing.T) {
	var buf bytes.Buffer
	l := New("info", &buf)

	FromContext(context.Background(), l).Info("x")
	assert.Contains(t, buf.String(), `"request_id":"unknown"`)
}

func TestLogError(t *testing.T) {
	var buf bytes.Buffer
	l := New("info", &buf)

	LogError(l, "entry", "Process", "backend call", map[string]string{"sid": "s1"}, errors.New("boom"))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "boom", line["msg"])
	assert.Equal(t, "entry", line["module"])
	assert.Equal(t, "Process", line["funcName"])
	assert.NotNil(t, line["data"])
}

func TestNew_BadLevel(t *testing.T) {
	l := New("loud", nil)
	assert.Equal(t, logrus.InfoLevel, l.GetLevel())
}
