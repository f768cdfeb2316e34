package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

type Command string

const (
	CommandServe      Command = "serve"
	CommandSimulate   Command = "simulate"
	CommandStatus     Command = "status"
	CommandSend       Command = "send"
	CommandTrigger    Command = "trigger"
	CommandQueueClear Command = "queue-clear"
	CommandPorts      Command = "ports"
	CommandHistory    Command = "history"
	CommandDoctor     Command = "doctor"
	CommandVersion    Command = "version"
	CommandHelp       Command = "help"
)

// maxArgs bounds positional arguments accepted after each command.
var maxArgs = map[Command]int{
	CommandServe:      0,
	CommandSimulate:   0,
	CommandStatus:     0,
	CommandSend:       2,
	CommandTrigger:    0,
	CommandQueueClear: 0,
	CommandPorts:      0,
	CommandHistory:    1,
	CommandDoctor:     0,
	CommandVersion:    0,
	CommandHelp:       0,
}

type Parsed struct {
	Command    Command
	ConfigPath string
	Timeout    time.Duration
	HTTPAddr   string
	Args       []string
	ShowHelp   bool
}

func Parse(args []string) (Parsed, error) {
	parsed := Parsed{Command: CommandHelp, ShowHelp: true}
	haveCommand := false

	for i := 0; i < len(args); i++ {
		arg := args[i]

		switch arg {
		case "-h", "--help":
			parsed.ShowHelp = true
			parsed.Command = CommandHelp
		case "--version":
			parsed.ShowHelp = false
			parsed.Command = CommandVersion
		case "--config":
			i++
			if i >= len(args) {
				return Parsed{}, errors.New("--config requires a path")
			}
			parsed.ConfigPath = args[i]
		case "--timeout":
			i++
			if i >= len(args) {
				return Parsed{}, errors.New("--timeout requires a duration")
			}
			d, err := parseTimeout(args[i])
			if err != nil {
				return Parsed{}, err
			}
			parsed.Timeout = d
		case "--http":
			i++
			if i >= len(args) {
				return Parsed{}, errors.New("--http requires an address")
			}
			parsed.HTTPAddr = args[i]
		default:
			if strings.HasPrefix(arg, "-") && !haveCommand {
				return Parsed{}, fmt.Errorf("unknown flag: %s", arg)
			}

			if haveCommand {
				if len(parsed.Args) >= maxArgs[parsed.Command] {
					return Parsed{}, fmt.Errorf("unexpected arguments after command %q", parsed.Command)
				}
				parsed.Args = append(parsed.Args, arg)
				continue
			}

			cmd := Command(arg)
			if _, ok := maxArgs[cmd]; !ok {
				return Parsed{}, fmt.Errorf("unknown command: %s", arg)
			}
			parsed.Command = cmd
			parsed.ShowHelp = cmd == CommandHelp
			haveCommand = true
		}
	}

	if parsed.Command == CommandSend && len(parsed.Args) == 0 {
		return Parsed{}, errors.New("send requires an action")
	}
	if parsed.HTTPAddr != "" && parsed.Command != CommandServe && parsed.Command != CommandSimulate {
		return Parsed{}, fmt.Errorf("--http only applies to serve and simulate")
	}

	return parsed, nil
}

// parseTimeout accepts Go durations ("1500ms") or bare seconds ("2.5").
func parseTimeout(raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if d, err := time.ParseDuration(raw); err == nil && d > 0 {
		return d, nil
	}
	secs, err := strconv.ParseFloat(raw, 64)
	if err != nil || secs <= 0 {
		return 0, fmt.Errorf("invalid --timeout %q: expected a positive duration", raw)
	}
	return time.Duration(secs * float64(time.Second)), nil
}

func HelpText(binaryName string) string {
	return fmt.Sprintf(`Usage:
  %[1]s [--config PATH] [--timeout DURATION] <command> [args]

Commands:
  serve                   Run the MCP server on stdio (and HTTP when enabled)
  simulate                Run the server against an in-process FL Studio simulator
  status                  Print bridge connection status
  send ACTION [PARAMS]    Send one controller command; PARAMS is a JSON object
  trigger                 Fire the piano roll script trigger
  queue-clear             Discard queued piano roll requests
  ports                   List MIDI output ports
  history [LIMIT]         Print recent command exchanges
  doctor                  Run configuration and environment checks
  version                 Print version information
  help                    Show this help

Flags:
  --config PATH           Config file path (default: $XDG_CONFIG_HOME/flmcp/config.jsonc)
  --timeout DURATION      Response timeout for send (default: config timeout)
  --http ADDR             Also serve HTTP on ADDR (serve, simulate)
  -h, --help              Show help
  --version               Show version
`, binaryName)
}
