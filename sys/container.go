package sys

import (
	"os"
	"regexp"
	"strings"
)

var isCgroupMatch = regexp.MustCompile("(docker|lxc|rkt|libpod|kubepods|containerd)")

// markerFiles are written by container runtimes into the root filesystem.
var markerFiles = []string{"/.dockerenv", "/run/.containerenv"}

// cgroupFile is read when no marker file is present.
var cgroupFile = "/proc/1/cgroup"

// IsRunningInsideContainer returns true if the process is running inside a container environment.
func IsRunningInsideContainer() bool {
	for _, fn := range markerFiles {
		if exists(fn) {
			return true
		}
	}
	buf, err := os.ReadFile(cgroupFile)
	if err != nil || len(buf) == 0 {
		return false
	}
	return isCgroupMatch.MatchString(strings.TrimSpace(string(buf)))
}

func exists(fn string) bool {
	_, err := os.Stat(fn)
	return err == nil
}
