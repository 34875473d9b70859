package open

import (
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/ewhitmore/sessionlens/internal/model"
)

// OpenSession opens the source file behind a session in $EDITOR. With a
// valid message index, the file backing that specific message is used.
func OpenSession(s *model.Session, msgIdx int) error {
	if len(s.Messages) == 0 {
		return fmt.Errorf("session has no messages: %s", s.Key())
	}

	m := s.Messages[0]
	if msgIdx >= 0 && msgIdx < len(s.Messages) {
		m = s.Messages[msgIdx]
	}

	if m.SourcePath == "" {
		return fmt.Errorf("no source file recorded for %s", s.Key())
	}
	if _, err := os.Stat(m.SourcePath); err != nil {
		return fmt.Errorf("file not found: %s", m.SourcePath)
	}

	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = "less"
	}
	return openInEditor(editor, m.SourcePath, 1)
}

func openInEditor(editor, filePath string, lineNum int) error {
	var cmd *exec.Cmd

	switch {
	case strings.Contains(editor, "vim") || strings.Contains(editor, "nvim"):
		cmd = exec.Command(editor, fmt.Sprintf("+%d", lineNum), filePath)
	case strings.Contains(editor, "code"):
		cmd = exec.Command(editor, "--goto", filePath+":"+strconv.Itoa(lineNum))
	case strings.Contains(editor, "less"):
		cmd = exec.Command(editor, "+"+strconv.Itoa(lineNum), filePath)
	default:
		cmd = exec.Command(editor, filePath)
	}

	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}
