// FILE: lixenwraith/properties/discovery.go
package properties

import (
	"os"
	"path/filepath"
	"strings"
)

// FileDiscoveryOptions configures where a properties file is looked for
type FileDiscoveryOptions struct {
	Name          string   // file base name without extension
	Extensions    []string // tried in order within each directory
	Paths         []string // searched before the standard directories
	EnvVar        string   // holds an explicit path
	CLIFlag       string   // e.g. "--properties"; both "flag path" and "flag=path" are accepted
	UseXDG        bool
	UseCurrentDir bool
}

// DefaultDiscoveryOptions returns options for an application named appName:
// `appName.properties` or `appName.props`, the APPNAME_PROPERTIES variable and
// the --properties flag, searching the working directory and XDG directories.
func DefaultDiscoveryOptions(appName string) FileDiscoveryOptions {
	return FileDiscoveryOptions{
		Name:          appName,
		Extensions:    []string{".properties", ".props"},
		EnvVar:        strings.ToUpper(appName) + "_PROPERTIES",
		CLIFlag:       "--properties",
		UseXDG:        true,
		UseCurrentDir: true,
	}
}

// WithFileDiscovery locates the properties file. A path set earlier with WithFile is
// kept when nothing is found, so it acts as the location for a new file.
func (b *Builder) WithFileDiscovery(opts FileDiscoveryOptions) *Builder {
	if path := DiscoverFile(opts, b.args); path != "" {
		b.file = path
	}
	return b
}

// DiscoverFile returns the properties file selected by a CLI flag in args, the
// environment variable, or the first existing file on the search paths, in that order.
// It returns an empty string when nothing is found.
func DiscoverFile(opts FileDiscoveryOptions, args []string) string {
	if path, ok := flagValue(args, opts.CLIFlag); ok {
		return path
	}
	if opts.EnvVar != "" {
		if path := os.Getenv(opts.EnvVar); path != "" {
			return path
		}
	}

	for _, dir := range opts.searchDirs() {
		for _, ext := range opts.Extensions {
			candidate := filepath.Join(dir, opts.Name+ext)
			if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
				return candidate
			}
		}
	}
	return ""
}

// flagValue extracts the value of flag from args
func flagValue(args []string, flag string) (string, bool) {
	if flag == "" {
		return "", false
	}
	for i, arg := range args {
		if value, found := strings.CutPrefix(arg, flag+"="); found {
			return value, true
		}
		if arg == flag && i+1 < len(args) {
			return args[i+1], true
		}
	}
	return "", false
}

// searchDirs lists directories in lookup order: custom paths, the working
// directory, then the XDG user and system directories.
func (o FileDiscoveryOptions) searchDirs() []string {
	dirs := append([]string(nil), o.Paths...)
	if o.UseCurrentDir {
		if cwd, err := os.Getwd(); err == nil {
			dirs = append(dirs, cwd)
		}
	}
	if !o.UseXDG {
		return dirs
	}

	userHome := os.Getenv("XDG_CONFIG_HOME")
	if userHome == "" {
		if home, err := os.UserHomeDir(); err == nil {
			userHome = filepath.Join(home, ".config")
		}
	}
	if userHome != "" {
		dirs = append(dirs, filepath.Join(userHome, o.Name))
	}

	system := filepath.SplitList(os.Getenv("XDG_CONFIG_DIRS"))
	if len(system) == 0 {
		system = []string{"/etc/xdg", "/etc"}
	}
	for _, dir := range system {
		dirs = append(dirs, filepath.Join(dir, o.Name))
	}
	return dirs
}
