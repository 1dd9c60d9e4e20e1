// Package platform reports the host operating system family and the
// working-directory based names FastGithub uses for its CA artifacts.
package platform

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// OS identifies an operating system family
type OS int

const (
	Unknown OS = iota
	Linux
	Windows
	MacOS
)

func (o OS) String() string {
	switch o {
	case Linux:
		return "linux"
	case Windows:
		return "windows"
	case MacOS:
		return "macos"
	default:
		return "unknown"
	}
}

// FromGOOS maps a runtime.GOOS value to an OS family
func FromGOOS(goos string) OS {
	switch goos {
	case "linux":
		return Linux
	case "windows":
		return Windows
	case "darwin":
		return MacOS
	default:
		return Unknown
	}
}

// Detect returns the OS family the binary is running on
func Detect() OS {
	return FromGOOS(runtime.GOOS)
}

// Info describes the host as seen by the CA store and installers
type Info struct {
	OS         OS
	WorkDir    string
	SystemName string
}

// Current returns Info for the running process. The system name is the
// leaf of the working directory.
func Current() (Info, error) {
	wd, err := os.Getwd()
	if err != nil {
		return Info{}, err
	}
	return New(Detect(), wd), nil
}

// New builds Info for an explicit OS and working directory
func New(os OS, workDir string) Info {
	return Info{
		OS:         os,
		WorkDir:    workDir,
		SystemName: SystemName(workDir),
	}
}

// SystemName returns the trailing path segment of dir
func SystemName(dir string) string {
	cleaned := filepath.Clean(dir)
	// Accept both separators so Windows paths resolve on any host.
	if i := strings.LastIndexAny(cleaned, `/\`); i >= 0 {
		return cleaned[i+1:]
	}
	return cleaned
}

// SystemPath returns the working directory with a trailing separator
func (i Info) SystemPath() string {
	return i.WorkDir + string(filepath.Separator)
}

func (i Info) IsLinux() bool   { return i.OS == Linux }
func (i Info) IsWindows() bool { return i.OS == Windows }
func (i Info) IsMacOS() bool   { return i.OS == MacOS }
