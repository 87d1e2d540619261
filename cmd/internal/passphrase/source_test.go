package passphrase

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func fakeSource(env map[string]string, prompted string, promptErr error) (*Source, *int) {
	calls := 0
	return &Source{
		envVar: "MARKET_KEY_PASS",
		lookup: func(key string) (string, bool) {
			v, ok := env[key]
			return v, ok
		},
		prompt: func(string) (string, error) {
			calls++
			return prompted, promptErr
		},
	}, &calls
}

func TestSourcePrefersEnvironment(t *testing.T) {
	src, calls := fakeSource(map[string]string{"MARKET_KEY_PASS": "from-env"}, "typed", nil)
	value, err := src.Get()
	require.NoError(t, err)
	require.Equal(t, "from-env", value)
	require.Zero(t, *calls)
}

func TestSourceRejectsBlankEnvironment(t *testing.T) {
	src, _ := fakeSource(map[string]string{"MARKET_KEY_PASS": "  "}, "typed", nil)
	_, err := src.Get()
	require.ErrorContains(t, err, "MARKET_KEY_PASS is set but empty")
}

func TestSourcePromptsOnceAndCaches(t *testing.T) {
	src, calls := fakeSource(nil, "typed", nil)
	for i := 0; i < 3; i++ {
		value, err := src.Get()
		require.NoError(t, err)
		require.Equal(t, "typed", value)
	}
	require.Equal(t, 1, *calls)
}

func TestSourcePromptFailureNamesEnv(t *testing.T) {
	src, _ := fakeSource(nil, "", errors.New("no tty"))
	_, err := src.Get()
	require.ErrorContains(t, err, "no tty")
	require.ErrorContains(t, err, "MARKET_KEY_PASS")
}

func TestStaticRejectsBlank(t *testing.T) {
	_, err := Static(" ").Get()
	require.ErrorIs(t, err, ErrEmpty)

	value, err := Static("hunter2").Get()
	require.NoError(t, err)
	require.Equal(t, "hunter2", value)
}
