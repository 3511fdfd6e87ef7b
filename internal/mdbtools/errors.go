package mdbtools

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os/exec"
	"strings"
	"unicode/utf8"

	"github.com/koustreak/mdbread/internal/errs"
)

// maxStderr caps how much diagnostic output is copied into an error message.
const maxStderr = 512

// mapError translates a Runner failure into a *errs.Error.
func mapError(ctx context.Context, err error, res *Result, msg string) *errs.Error {
	if ctx.Err() != nil || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		cause := err
		if cause == nil {
			cause = ctx.Err()
		}
		return errs.Wrap(errs.ErrKindTimeout, msg, cause)
	}

	if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) {
		return errs.Wrap(errs.ErrKindToolFailed, msg+": not installed", err)
	}
	if errors.Is(err, fs.ErrPermission) {
		return errs.Wrap(errs.ErrKindToolFailed, msg+": not executable", err)
	}

	code := 0
	var stderr []byte
	if res != nil {
		code = res.ExitCode
		stderr = res.Stderr
	}
	if err == nil {
		err = fmt.Errorf("exit status %d", code)
	}
	if diag := trimStderr(stderr); diag != "" {
		msg = fmt.Sprintf("%s (exit %d): %s", msg, code, diag)
	} else {
		msg = fmt.Sprintf("%s (exit %d)", msg, code)
	}
	return errs.Wrap(errs.ErrKindToolFailed, msg, err)
}

func trimStderr(b []byte) string {
	s := strings.TrimSpace(strings.ToValidUTF8(string(b), "�"))
	if len(s) > maxStderr {
		cut := maxStderr
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		s = s[:cut] + "…"
	}
	return s
}
