package backup

import (
	"fmt"
	"os/exec"
	"strings"
)

// RequiredTools are the external programs the backup stages invoke
var RequiredTools = []string{"tar", "mysqldump"}

// CheckRequiredTools verifies that every required external tool is present
// on PATH. A missing tool is a fatal condition: the run cannot proceed and
// the caller must terminate with a nonzero exit code.
func CheckRequiredTools(tools []string) error {
	var missing []string
	for _, tool := range tools {
		if _, err := exec.LookPath(tool); err != nil {
			missing = append(missing, tool)
		}
	}

	if len(missing) > 0 {
		return NewToolError(fmt.Sprintf("required tools not found on PATH: %s", strings.Join(missing, ", ")), nil)
	}

	return nil
}
