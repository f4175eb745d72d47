package argtype

import (
	"os"

	"github.com/spf13/afero"
)

// Filepath accepts a path that can be opened for appending. Strict
// validation creates the file if it does not exist yet.
type Filepath struct {
	fs afero.Fs
}

// Kind implements ArgType.
func (t *Filepath) Kind() string { return TypeFilepath }

// Validate implements ArgType. Partial validation, used only for ranking,
// does not touch the filesystem.
func (t *Filepath) Validate(token string, partial bool) (Value, error) {
	if partial {
		return Value{Val: token}, nil
	}

	f, err := t.fs.OpenFile(token, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return Value{}, &Error{Kind: KindValidation, Msg: "can't open " + token, Err: err}
	}
	if err := f.Close(); err != nil {
		return Value{}, &Error{Kind: KindValidation, Msg: "can't close " + token, Err: err}
	}
	return Value{Val: token}, nil
}

func (t *Filepath) String() string {
	return "<outfilename>"
}

// Socketpath accepts the path of an existing unix socket, such as a
// daemon admin socket.
type Socketpath struct {
	fs afero.Fs
}

// Kind implements ArgType.
func (t *Socketpath) Kind() string { return TypeSocketpath }

// Validate implements ArgType. Partial validation does not stat the path.
func (t *Socketpath) Validate(token string, partial bool) (Value, error) {
	if partial {
		return Value{Val: token}, nil
	}

	fi, err := t.fs.Stat(token)
	if err != nil {
		return Value{}, &Error{Kind: KindValidation, Msg: "can't stat " + token, Err: err}
	}
	if fi.Mode()&os.ModeSocket == 0 {
		return Value{}, ValidationError("socket path %s is not a socket", token)
	}
	return Value{Val: token}, nil
}

func (t *Socketpath) String() string {
	return "<admin-socket-path>"
}
