// Package flagx holds small helpers for layered configuration: picking a
// component's own flags out of a shared argument list and locating the JSON
// config file.
package flagx

import (
	"flag"
	"io"
	"strings"
)

// FilterArgs keeps only the flags listed in allowed (and their values) from
// args, preserving order. Both "-f value" and "-f=value" forms are recognised.
// A following token that starts with "-" is never consumed as a value.
func FilterArgs(args []string, allowed []string) []string {
	known := make(map[string]struct{}, len(allowed))
	for _, f := range allowed {
		known[f] = struct{}{}
	}

	filtered := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]

		if strings.HasPrefix(arg, "-") {
			if name, _, ok := strings.Cut(arg, "="); ok {
				if _, keep := known[name]; keep {
					filtered = append(filtered, arg)
				}
				continue
			}
		}

		if _, keep := known[arg]; !keep {
			continue
		}
		filtered = append(filtered, arg)
		if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
			filtered = append(filtered, args[i+1])
			i++
		}
	}
	return filtered
}

// ConfigPath returns the value of -c / -config found in args, or "" when the
// flag is absent.
func ConfigPath(args []string) string {
	var path string
	fs := flag.NewFlagSet("config", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&path, "config", "", "path to JSON config file")
	fs.StringVar(&path, "c", "", "path to JSON config file (short)")
	_ = fs.Parse(FilterArgs(args, []string{"-c", "-config", "--config"}))
	return path
}
