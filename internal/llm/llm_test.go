package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResult(t *testing.T) {
	ok := Answer("forty-two")
	assert.True(t, ok.OK())
	assert.Equal(t, "forty-two", ok.Text())
	assert.Empty(t, ok.Kind())
	assert.NoError(t, ok.Err())

	failed := Failure(KindTimeout, "deadline exceeded after 30s")
	assert.False(t, failed.OK())
	assert.Empty(t, failed.Text())
	assert.Equal(t, KindTimeout, failed.Kind())
	assert.Equal(t, "deadline exceeded after 30s", failed.Detail())
	assert.EqualError(t, failed.Err(), "llm timeout: deadline exceeded after 30s")
}

func TestResult_EmptyAnswerIsStillOK(t *testing.T) {
	assert.True(t, Answer("").OK())
}
