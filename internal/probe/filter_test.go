package probe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessFilter(t *testing.T) {
	assert.Nil(t, ProcessFilter(0))

	f := ProcessFilter(42)
	assert.True(t, f(Task{Context: 1, TGID: 42}))
	assert.False(t, f(Task{Context: 1, TGID: 43}))
}

func TestAllOf(t *testing.T) {
	assert.Nil(t, AllOf(nil, nil))

	even := func(t Task) bool { return t.Context%2 == 0 }
	f := AllOf(ProcessFilter(42), nil, even)
	assert.True(t, f(Task{Context: 2, TGID: 42}))
	assert.False(t, f(Task{Context: 3, TGID: 42}))
	assert.False(t, f(Task{Context: 2, TGID: 41}))
}

func TestCompileFilter(t *testing.T) {
	f, err := CompileFilter("")
	require.NoError(t, err)
	assert.Nil(t, f)

	f, err = CompileFilter("tgid == 4242 && pid != 7")
	require.NoError(t, err)
	assert.True(t, f(Task{Context: 1, TGID: 4242}))
	assert.False(t, f(Task{Context: 7, TGID: 4242}))
	assert.False(t, f(Task{Context: 1, TGID: 1}))
}

func TestCompileFilter_Errors(t *testing.T) {
	_, err := CompileFilter("tgid ==")
	assert.Error(t, err)

	_, err = CompileFilter("tgid + 1")
	assert.Error(t, err, "non-bool expression")

	_, err = CompileFilter("unknown == 1")
	assert.Error(t, err)
}
