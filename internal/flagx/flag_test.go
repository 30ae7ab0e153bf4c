package flagx

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterArgs(t *testing.T) {
	tests := []struct {
		name         string
		args         []string
		allowedFlags []string
		want         []string
	}{
		{
			name:         "short flag with separate value",
			args:         []string{"-c", "conf.json", "-a", "localhost"},
			allowedFlags: []string{"-c", "--config"},
			want:         []string{"-c", "conf.json"},
		},
		{
			name:         "long flag with equals",
			args:         []string{"--config=alt.json", "-a", "localhost"},
			allowedFlags: []string{"-c", "--config"},
			want:         []string{"--config=alt.json"},
		},
		{
			name:         "double dash matches single dash allowance",
			args:         []string{"--n", "8", "file.bin"},
			allowedFlags: []string{"-n"},
			want:         []string{"--n", "8"},
		},
		{
			name:         "unknown flags and positionals ignored",
			args:         []string{"-x", "1", "--y=2", "positional"},
			allowedFlags: []string{"-c", "--config"},
			want:         []string{},
		},
		{
			name:         "flag without value at end is kept as-is",
			args:         []string{"-c"},
			allowedFlags: []string{"-c"},
			want:         []string{"-c"},
		},
		{
			name:         "next dash-starting token is not a value",
			args:         []string{"-c", "--config=alt.json"},
			allowedFlags: []string{"-c", "--config"},
			want:         []string{"-c", "--config=alt.json"},
		},
		{
			name:         "repeated allowed flag is preserved in order",
			args:         []string{"-c", "one.json", "-c", "two.json"},
			allowedFlags: []string{"-c"},
			want:         []string{"-c", "one.json", "-c", "two.json"},
		},
		{
			name:         "empty args",
			args:         []string{},
			allowedFlags: []string{"-c"},
			want:         []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FilterArgs(tt.args, tt.allowedFlags))
		})
	}
}

func TestFilterArgsWithBools(t *testing.T) {
	allowed := []string{"-n", "-A"}
	bools := []string{"-A"}

	assert.Equal(t, []string{"-A", "-n", "4"}, FilterArgsWithBools([]string{"-A", "a.bin", "-n", "4"}, allowed, bools))
	assert.Equal(t, []string{"-A=false"}, FilterArgsWithBools([]string{"-A=false", "a.bin"}, allowed, bools))
	assert.Equal(t, []string{"-n", "4"}, FilterArgsWithBools([]string{"-n", "4"}, allowed, nil))
}

func TestPositional(t *testing.T) {
	valueFlags := []string{"-s", "-n", "-c"}

	tests := []struct {
		name string
		args []string
		want []string
	}{
		{"only files", []string{"a.bin", "b.bin"}, []string{"a.bin", "b.bin"}},
		{"flags with values are skipped", []string{"-s", "http://x", "a.bin", "-n", "4", "b.bin"}, []string{"a.bin", "b.bin"}},
		{"equals form consumes nothing extra", []string{"-n=4", "a.bin"}, []string{"a.bin"}},
		{"double dash ends flags", []string{"-n", "4", "--", "-weird-name"}, []string{"-weird-name"}},
		{"unknown flag does not swallow next arg", []string{"-v", "a.bin"}, []string{"a.bin"}},
		{"nothing", nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Positional(tt.args, valueFlags))
		})
	}
}

func TestJsonConfigFlags(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	t.Run("short -c with value", func(t *testing.T) {
		os.Args = []string{"testbin", "-c", "/path/short.json"}
		assert.Equal(t, "/path/short.json", JsonConfigFlags())
	})

	t.Run("long -config with value", func(t *testing.T) {
		os.Args = []string{"testbin", "-config", "/path/long.json"}
		assert.Equal(t, "/path/long.json", JsonConfigFlags())
	})

	t.Run("unknown flags are ignored", func(t *testing.T) {
		os.Args = []string{"testbin", "-x", "1", "-y", "2"}
		assert.Empty(t, JsonConfigFlags())
	})

	t.Run("multiple flags, last wins", func(t *testing.T) {
		assert.Equal(t, "/path/2.json", ConfigPath([]string{"-c", "/path/1.json", "-config", "/path/2.json"}))
	})
}
