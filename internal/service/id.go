package service

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

const idSuffixLen = 9

// newTaskID builds "task_<unix millis>_<random>". Uniqueness comes from the
// random suffix; the timestamp keeps ids roughly sortable.
func newTaskID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:idSuffixLen]
	return fmt.Sprintf("task_%d_%s", now.UnixMilli(), suffix)
}

// photoFileName names a stored photo after its task, keeping the source
// extension and falling back to jpg.
func photoFileName(taskID, source string) string {
	ext := strings.TrimPrefix(path.Ext(filepath.ToSlash(source)), ".")
	if ext == "" {
		ext = "jpg"
	}
	return taskID + "." + ext
}
