// Package transport sends resolved commands to a cluster.
//
// A command is addressed to a target: the monitors, one OSD, or the OSD
// serving a placement group. The Cluster interface is the minimal surface a
// client needs for that; HTTPCluster implements it against a REST gateway.
// Every failure of a send is wrapped in a *CommandError that carries the
// command that was being sent.
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cephforge/cephcli/pkg/argtype"
)

// TargetKind is the destination role of a command.
type TargetKind string

// Supported destination roles.
const (
	TargetMon TargetKind = "mon"
	TargetOSD TargetKind = "osd"
	TargetPG  TargetKind = "pg"
)

// Target addresses a command. ID is a mon name (or empty for any mon), an
// osd id, or a pgid.
type Target struct {
	Kind TargetKind
	ID   string
}

// DefaultTarget sends to any monitor.
var DefaultTarget = Target{Kind: TargetMon}

// String renders the target as kind.id.
func (t Target) String() string {
	if t.ID == "" {
		return string(t.Kind)
	}
	return string(t.Kind) + "." + t.ID
}

// ParseTarget parses "mon", "mon.a", "osd.3" or "pg.1.2f".
func ParseTarget(s string) (Target, error) {
	kind, id, _ := strings.Cut(s, ".")
	t := Target{Kind: TargetKind(kind), ID: id}
	switch t.Kind {
	case TargetMon:
	case TargetOSD:
		if _, err := strconv.Atoi(id); err != nil {
			return Target{}, fmt.Errorf("invalid osd target %q", s)
		}
	case TargetPG:
		if _, err := (&argtype.Pgid{}).Validate(id, false); err != nil {
			return Target{}, fmt.Errorf("invalid pg target %q: %w", s, err)
		}
	default:
		return Target{}, fmt.Errorf("unknown target kind %q", kind)
	}
	return t, nil
}

// Reply is what a daemon returns for a command.
type Reply struct {
	// Status is the numeric return code; zero on success.
	Status int
	// Out is the bulk output buffer.
	Out []byte
	// Message is the human-readable status string.
	Message string
}

// Cluster sends raw commands to cluster daemons.
type Cluster interface {
	MonCommand(ctx context.Context, mon string, cmd []string, inbuf []byte) (*Reply, error)
	OSDCommand(ctx context.Context, osd int, cmd []string, inbuf []byte) (*Reply, error)
	PGCommand(ctx context.Context, pgid string, cmd []string, inbuf []byte) (*Reply, error)
}

// CommandError wraps a failed send with the command being sent.
type CommandError struct {
	Command string
	Err     error
}

// Error implements the error interface.
func (e *CommandError) Error() string {
	return fmt.Sprintf("%q: %v", e.Command, e.Err)
}

// Unwrap returns the underlying cause.
func (e *CommandError) Unwrap() error {
	return e.Err
}

// SendCommand routes cmd to target. A positive timeout bounds the call.
func SendCommand(ctx context.Context, cluster Cluster, target Target, cmd []string, inbuf []byte, timeout time.Duration) (*Reply, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	reply, err := send(ctx, cluster, target, cmd, inbuf)
	if err != nil {
		return nil, &CommandError{Command: strings.Join(cmd, " "), Err: err}
	}
	return reply, nil
}

func send(ctx context.Context, cluster Cluster, target Target, cmd []string, inbuf []byte) (*Reply, error) {
	switch target.Kind {
	case TargetOSD:
		id, err := strconv.Atoi(target.ID)
		if err != nil {
			return nil, fmt.Errorf("invalid osd id %q", target.ID)
		}
		return cluster.OSDCommand(ctx, id, cmd, inbuf)
	case TargetPG:
		return cluster.PGCommand(ctx, target.ID, cmd, inbuf)
	case TargetMon, "":
		return cluster.MonCommand(ctx, target.ID, cmd, inbuf)
	default:
		return nil, fmt.Errorf("unknown target kind %q", target.Kind)
	}
}

// JSONCommand encodes prefix and args as one JSON command and sends it.
// For osd targets a "target" argument naming an osd overrides the given id.
func JSONCommand(ctx context.Context, cluster Cluster, target Target, prefix string, args map[string]any, inbuf []byte, timeout time.Duration) (*Reply, error) {
	cmd := make(map[string]any, len(args)+1)
	for k, v := range args {
		cmd[k] = v
	}
	if prefix != "" {
		cmd["prefix"] = prefix
	}
	prefix, _ = cmd["prefix"].(string)
	if prefix == "" {
		return nil, &CommandError{Command: fmt.Sprint(args), Err: errors.New("command has no prefix")}
	}

	if target.Kind == TargetOSD {
		target = osdTarget(target, cmd)
	}

	data, err := json.Marshal(cmd)
	if err != nil {
		return nil, &CommandError{Command: prefix, Err: err}
	}

	reply, err := SendCommand(ctx, cluster, target, []string{string(data)}, inbuf, timeout)
	if err != nil {
		return nil, &CommandError{Command: prefix, Err: err}
	}
	return reply, nil
}

// osdTarget prefers a valid osd name found under "target" in cmd, which is
// removed from the command either way.
func osdTarget(target Target, cmd map[string]any) Target {
	name := target.String()
	if v, ok := cmd["target"].(string); ok {
		name = v
		delete(cmd, "target")
	}

	v, err := (&argtype.Name{}).Validate(name, false)
	if err != nil || v.NameType != "osd" {
		return target
	}
	return Target{Kind: TargetOSD, ID: v.NameID}
}

// DescriptionsPrefix is the command asking a daemon for its signatures.
const DescriptionsPrefix = "get_command_descriptions"

// FetchDescriptions asks target for its command descriptions and returns
// the raw JSON.
func FetchDescriptions(ctx context.Context, cluster Cluster, target Target, timeout time.Duration) ([]byte, error) {
	reply, err := JSONCommand(ctx, cluster, target, DescriptionsPrefix, nil, nil, timeout)
	if err != nil {
		return nil, err
	}
	if reply.Status != 0 {
		return nil, &CommandError{
			Command: DescriptionsPrefix,
			Err:     fmt.Errorf("status %d: %s", reply.Status, reply.Message),
		}
	}
	return reply.Out, nil
}
