// Package flagx lets several components parse their own subset of os.Args
// without stepping on each other's flags.
package flagx

import (
	"flag"
	"os"
	"strings"
)

// FilterArgs returns only the allowed flags from args, together with their
// values. Both "-f value" and "-f=value" forms are recognised, and a
// double-dash spelling ("--f") matches an allowed "-f".
func FilterArgs(args []string, allowedFlags []string) []string {
	return FilterArgsWithBools(args, allowedFlags, nil)
}

// FilterArgsWithBools is FilterArgs where the flags in boolFlags never take
// the following argument as their value, so "-A file.bin" keeps file.bin
// out of the result.
func FilterArgsWithBools(args []string, allowedFlags []string, boolFlags []string) []string {
	allowed := normalise(allowedFlags)
	isBool := normalise(boolFlags)

	filtered := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		name, hasValue := flagName(args[i])
		if name == "" {
			continue
		}
		if _, ok := allowed[name]; !ok {
			continue
		}
		filtered = append(filtered, args[i])
		if _, ok := isBool[name]; ok {
			continue
		}
		if !hasValue && i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
			filtered = append(filtered, args[i+1])
			i++
		}
	}

	return filtered
}

// Positional returns the arguments that are neither flags nor the value of a
// flag in valueFlags. A lone "--" ends flag processing.
func Positional(args []string, valueFlags []string) []string {
	takesValue := normalise(valueFlags)

	var out []string
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			return append(out, args[i+1:]...)
		}
		name, hasValue := flagName(arg)
		if name == "" {
			out = append(out, arg)
			continue
		}
		if _, ok := takesValue[name]; ok && !hasValue && i+1 < len(args) {
			i++
		}
	}
	return out
}

func normalise(flags []string) map[string]struct{} {
	set := make(map[string]struct{}, len(flags))
	for _, f := range flags {
		if name, _ := flagName(f); name != "" {
			set[name] = struct{}{}
		}
	}
	return set
}

// flagName normalises "--x=1" to ("-x", true) and "-x" to ("-x", false).
// Non-flag arguments yield "".
func flagName(arg string) (string, bool) {
	if len(arg) < 2 || arg[0] != '-' || arg == "--" {
		return "", false
	}
	name := "-" + strings.TrimLeft(arg, "-")
	if i := strings.IndexByte(name, '='); i >= 0 {
		return name[:i], true
	}
	return name, false
}

// JsonConfigFlags returns the config file path given via -c or -config, or
// "" when neither is present.
func JsonConfigFlags() string {
	return ConfigPath(os.Args[1:])
}

// ConfigPath is JsonConfigFlags over an explicit argument list.
func ConfigPath(args []string) string {
	var config string

	fs := flag.NewFlagSet("json", flag.ContinueOnError)
	fs.StringVar(&config, "config", "", "Path to config file")
	fs.StringVar(&config, "c", "", "Path to config file (short)")
	_ = fs.Parse(FilterArgs(args, []string{"-c", "-config"}))

	return config
}
